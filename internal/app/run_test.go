package app

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/config"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/geocoding"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/metrics"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/repository"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"
)

type recordingImporter struct {
	got [][]types.Station
}

func (r *recordingImporter) Import(stations []types.Station) (repository.ImportResult, error) {
	r.got = append(r.got, stations)
	return repository.ImportResult{Upserted: len(stations)}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestImportStations(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file keeps stored data", func(t *testing.T) {
		imp := &recordingImporter{}
		err := importStations(filepath.Join(dir, "nope.json"), imp, discardLogger())
		require.NoError(t, err)
		assert.Empty(t, imp.got)
	})

	t.Run("valid file is imported", func(t *testing.T) {
		path := filepath.Join(dir, "ok.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"id": 1, "name": "BP Carlton", "prices": {"unleaded": 185.5}}]`), 0o644))

		imp := &recordingImporter{}
		require.NoError(t, importStations(path, imp, discardLogger()))
		require.Len(t, imp.got, 1)
		assert.Equal(t, "BP Carlton", imp.got[0][0].Name)
	})

	t.Run("invalid file fails startup", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))

		imp := &recordingImporter{}
		assert.Error(t, importStations(path, imp, discardLogger()))
		assert.Empty(t, imp.got)
	})
}

func TestNewGeocoder(t *testing.T) {
	m := metrics.NewNop()

	p, err := newGeocoder(config.Config{GeocoderProvider: "none"}, m, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, geocoding.Nop{}, p)

	p, err = newGeocoder(config.Config{
		GeocoderProvider:  "mapbox",
		GeocoderKey:       "pk.test",
		GeocoderTimeout:   time.Second,
		GeocoderCacheSize: 10,
	}, m, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &geocoding.CachedProvider{}, p)

	_, err = newGeocoder(config.Config{GeocoderProvider: "mapbox"}, m, discardLogger())
	assert.Error(t, err)
}
