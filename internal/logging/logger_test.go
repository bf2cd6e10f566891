package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_releaseWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, slog.LevelInfo, "prod", "1.2.3", "server")

	logger.Info("station imported", "station_id", 42)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	for key, want := range map[string]any{
		"msg":     "station imported",
		"app":     "server",
		"version": "1.2.3",
		"env":     "prod",
	} {
		if rec[key] != want {
			t.Errorf("%s = %v; want %v", key, rec[key], want)
		}
	}
	if rec["station_id"] != float64(42) {
		t.Errorf("station_id = %v; want 42", rec["station_id"])
	}
}

func TestNew_respectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, slog.LevelWarn, "prod", "1.2.3", "server")

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn not logged: %q", buf.String())
	}
}

func TestNew_devUsesTextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, slog.LevelDebug, "dev", "dev", "pricefeed")

	logger.Debug("poll done")
	out := buf.String()
	if !strings.Contains(out, "poll done") {
		t.Fatalf("output missing message: %q", out)
	}
	if json.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Errorf("dev output should not be JSON: %q", out)
	}
}
