package utils

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	t.Run("sets content-type and status", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := map[string]string{"key": "value"}
		WriteJSON(w, http.StatusOK, body)

		if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
			t.Errorf("Content-Type = %q; want application/json; charset=utf-8", got)
		}
		if w.Code != http.StatusOK {
			t.Errorf("Code = %d; want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("encodes body as JSON", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := map[string]string{"foo": "bar"}
		WriteJSON(w, http.StatusCreated, body)

		var got map[string]string
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("body is not valid JSON: %v", err)
		}
		if got["foo"] != "bar" {
			t.Errorf("body[foo] = %q; want bar", got["foo"])
		}
	})
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	status := http.StatusBadRequest
	msg := "invalid input"
	WriteError(w, status, msg)

	if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q; want application/json; charset=utf-8", got)
	}
	if w.Code != status {
		t.Errorf("Code = %d; want %d", w.Code, status)
	}

	var got map[string]any
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if got["error"] != http.StatusText(status) {
		t.Errorf("error = %q; want %q", got["error"], http.StatusText(status))
	}
	if got["message"] != msg {
		t.Errorf("message = %q; want %q", got["message"], msg)
	}
}

func TestWriteHTML(t *testing.T) {
	w := httptest.NewRecorder()
	WriteHTML(w, http.StatusNotFound, bytes.NewBufferString("<p>missing</p>"))

	if got := w.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q; want text/html; charset=utf-8", got)
	}
	if w.Code != http.StatusNotFound {
		t.Errorf("Code = %d; want %d", w.Code, http.StatusNotFound)
	}
	if w.Body.String() != "<p>missing</p>" {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestIsHTMX(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/stations/results", nil)
	if IsHTMX(r) {
		t.Error("IsHTMX without header = true; want false")
	}
	r.Header.Set("HX-Request", "true")
	if !IsHTMX(r) {
		t.Error("IsHTMX with header = false; want true")
	}
}

func TestClientIP(t *testing.T) {
	proxies, err := ParseProxyList("10.0.0.0/8, 192.0.2.1")
	if err != nil {
		t.Fatalf("ParseProxyList: %v", err)
	}
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		trusted    []netip.Prefix
		want       string
	}{
		{name: "remote addr", remoteAddr: "10.0.0.7:5123", want: "10.0.0.7"},
		{name: "no port", remoteAddr: "10.0.0.7", want: "10.0.0.7"},
		{name: "forwarded ignored without trusted proxies", remoteAddr: "203.0.113.7:5555", forwarded: "198.51.100.1", want: "203.0.113.7"},
		{name: "forwarded ignored from untrusted peer", remoteAddr: "203.0.113.7:5555", forwarded: "198.51.100.1", trusted: proxies, want: "203.0.113.7"},
		{name: "right-most untrusted hop", remoteAddr: "10.0.0.7:5123", forwarded: "198.51.100.1, 203.0.113.9, 192.0.2.1", trusted: proxies, want: "203.0.113.9"},
		{name: "all hops trusted", remoteAddr: "10.0.0.7:5123", forwarded: "10.1.1.1", trusted: proxies, want: "10.0.0.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/contact", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := ClientIP(r, tt.trusted); got != tt.want {
				t.Errorf("ClientIP() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestParseProxyList(t *testing.T) {
	got, err := ParseProxyList(" 10.0.0.0/8 ,,::1, 192.0.2.1")
	if err != nil {
		t.Fatalf("ParseProxyList: %v", err)
	}
	want := []string{"10.0.0.0/8", "::1/128", "192.0.2.1/32"}
	if len(got) != len(want) {
		t.Fatalf("got %v; want %v", got, want)
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Errorf("prefix %d = %s; want %s", i, got[i], want[i])
		}
	}
	if _, err := ParseProxyList("not-an-ip"); err == nil {
		t.Error("ParseProxyList(not-an-ip) = nil error")
	}
}
