package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/geocoding"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/metrics"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/repository"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"
)

func TestMain(m *testing.M) {
	// googlemaps pulls in opencensus, whose view worker starts at init.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func ptr(f float64) *float64 { return &f }

type mockRepo struct {
	mu        sync.Mutex
	stations  []types.Station
	gets      int
	upserts   []types.PriceUpdate
	changed   bool
	upsertErr error
	locations map[int][2]float64
	imported  []types.Station
}

func (m *mockRepo) GetStations() ([]types.Station, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	return append([]types.Station(nil), m.stations...), nil
}

func (m *mockRepo) GetStation(id int) (types.Station, error) {
	for _, s := range m.stations {
		if s.ID == id {
			return s, nil
		}
	}
	return types.Station{}, repository.ErrNotFound
}

func (m *mockRepo) CountStations() (int, error) { return len(m.stations), nil }

func (m *mockRepo) ReplaceStations(stations []types.Station) (repository.ImportResult, error) {
	if len(stations) == 0 {
		return repository.ImportResult{}, repository.ErrEmptyImport
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imported = stations
	m.stations = stations
	return repository.ImportResult{Upserted: len(stations)}, nil
}

func (m *mockRepo) UpsertPrice(u types.PriceUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts = append(m.upserts, u)
	return m.changed, m.upsertErr
}

func (m *mockRepo) GetStationsMissingLocation() ([]types.Station, error) {
	var out []types.Station
	for _, s := range m.stations {
		if !s.HasLocation() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockRepo) UpdateLocation(id int, lat, lng float64) error {
	if m.locations == nil {
		m.locations = make(map[int][2]float64)
	}
	m.locations[id] = [2]float64{lat, lng}
	return nil
}

func (m *mockRepo) getCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets
}

func newTestService(t *testing.T, repo *mockRepo, clock clockwork.Clock) (*Service, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	s := NewService(repo, Options{
		Metrics:         m,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:           clock,
		InvalidateAfter: time.Second,
	})
	t.Cleanup(s.Close)
	return s, m
}

func sampleStations() []types.Station {
	return []types.Station{
		{ID: 1, Name: "Shell Richmond", Suburb: "Richmond", Latitude: -37.82, Longitude: 144.99,
			Prices: types.Prices{types.Unleaded: ptr(185.5)}},
		{ID: 2, Name: "BP Carlton", Suburb: "Carlton", Address: "1 Lygon St", Postcode: "3053"},
	}
}

func TestStations_cachesSnapshot(t *testing.T) {
	repo := &mockRepo{stations: sampleStations()}
	s, m := newTestService(t, repo, clockwork.NewFakeClock())

	for range 3 {
		list, err := s.Stations()
		if err != nil {
			t.Fatalf("Stations: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("len = %d; want 2", len(list))
		}
	}
	if got := repo.getCount(); got != 1 {
		t.Errorf("repository loads = %d; want 1", got)
	}
	if got := testutil.ToFloat64(m.StationCache.WithLabelValues("hit")); got != 2 {
		t.Errorf("cache hits = %v; want 2", got)
	}

	s.Invalidate()
	if _, err := s.Stations(); err != nil {
		t.Fatalf("Stations: %v", err)
	}
	if got := repo.getCount(); got != 2 {
		t.Errorf("repository loads after invalidate = %d; want 2", got)
	}
}

func TestStation_lookup(t *testing.T) {
	s, _ := newTestService(t, &mockRepo{stations: sampleStations()}, clockwork.NewFakeClock())

	st, err := s.Station(2)
	if err != nil || st.Name != "BP Carlton" {
		t.Fatalf("Station(2) = %+v, %v", st, err)
	}
	if _, err := s.Station(99); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Station(99) err = %v; want ErrNotFound", err)
	}
}

func TestHandlePriceUpdate_debouncesInvalidation(t *testing.T) {
	clock := clockwork.NewFakeClock()
	repo := &mockRepo{stations: sampleStations(), changed: true}
	s, m := newTestService(t, repo, clock)

	if _, err := s.Stations(); err != nil {
		t.Fatal(err)
	}
	u := types.PriceUpdate{StationID: 1, FuelType: types.Unleaded, PriceCents: ptr(179.9), UpdatedAt: clock.Now()}
	for range 3 {
		if err := s.HandlePriceUpdate(u); err != nil {
			t.Fatalf("HandlePriceUpdate: %v", err)
		}
	}
	if got := testutil.ToFloat64(m.PriceUpdates.WithLabelValues("stored")); got != 3 {
		t.Errorf("stored = %v; want 3", got)
	}

	// still served from the old snapshot until the debounce fires
	if _, err := s.Stations(); err != nil {
		t.Fatal(err)
	}
	if got := repo.getCount(); got != 1 {
		t.Fatalf("loads before debounce = %d; want 1", got)
	}

	if err := clock.BlockUntilContext(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Second)

	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.RLock()
		loaded := s.loaded
		s.mu.RUnlock()
		if !loaded {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("snapshot not invalidated after debounce")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandlePriceUpdate_outcomes(t *testing.T) {
	valid := types.PriceUpdate{StationID: 1, FuelType: types.Diesel, PriceCents: ptr(190), UpdatedAt: time.Now()}

	tests := []struct {
		name    string
		update  types.PriceUpdate
		changed bool
		err     error
		outcome string
		wantErr bool
	}{
		{name: "invalid", update: types.PriceUpdate{StationID: 0, FuelType: "x"}, outcome: "invalid", wantErr: true},
		{name: "unknown station", update: valid, err: repository.ErrNotFound, outcome: "invalid", wantErr: true},
		{name: "db error", update: valid, err: errors.New("disk I/O error"), outcome: "error", wantErr: true},
		{name: "unchanged", update: valid, outcome: "unchanged"},
		{name: "stored", update: valid, changed: true, outcome: "stored"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepo{stations: sampleStations(), changed: tt.changed, upsertErr: tt.err}
			s, m := newTestService(t, repo, clockwork.NewFakeClock())

			err := s.HandlePriceUpdate(tt.update)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v; wantErr %v", err, tt.wantErr)
			}
			if got := testutil.ToFloat64(m.PriceUpdates.WithLabelValues(tt.outcome)); got != 1 {
				t.Errorf("%s count = %v; want 1", tt.outcome, got)
			}
			if tt.changed != s.invalidator.Pending() {
				t.Errorf("invalidation pending = %v; want %v", s.invalidator.Pending(), tt.changed)
			}
		})
	}
}

func TestImport_invalidatesImmediately(t *testing.T) {
	repo := &mockRepo{stations: sampleStations()}
	s, m := newTestService(t, repo, clockwork.NewFakeClock())
	if _, err := s.Stations(); err != nil {
		t.Fatal(err)
	}

	next := []types.Station{{ID: 3, Name: "Ampol Brunswick", Suburb: "Brunswick"}}
	res, err := s.Import(next)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Upserted != 1 {
		t.Errorf("Upserted = %d; want 1", res.Upserted)
	}
	list, err := s.Stations()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != 3 {
		t.Errorf("Stations after import = %+v", list)
	}

	if _, err := s.Import(nil); !errors.Is(err, repository.ErrEmptyImport) {
		t.Errorf("Import(nil) err = %v; want ErrEmptyImport", err)
	}
	if got := testutil.ToFloat64(m.DataReloads.WithLabelValues("error")); got != 1 {
		t.Errorf("reload errors = %v; want 1", got)
	}
}

type fakeGeocoder struct {
	coords map[string]*geocoding.Coordinates
}

func (f fakeGeocoder) Geocode(_ context.Context, address string) (*geocoding.Coordinates, error) {
	c, ok := f.coords[address]
	if !ok {
		return nil, geocoding.ErrEmptyResponse
	}
	return c, nil
}

func TestGeocodeMissing(t *testing.T) {
	stations := append(sampleStations(), types.Station{ID: 3, Name: "Nowhere", Address: "?", Suburb: "Nowhere", Postcode: "0000"})
	repo := &mockRepo{stations: stations}
	s, _ := newTestService(t, repo, clockwork.NewFakeClock())

	geo := fakeGeocoder{coords: map[string]*geocoding.Coordinates{
		"1 Lygon St, Carlton VIC 3053": {Latitude: -37.80, Longitude: 144.97},
	}}
	n, err := s.GeocodeMissing(context.Background(), geo)
	if err != nil {
		t.Fatalf("GeocodeMissing: %v", err)
	}
	if n != 1 {
		t.Errorf("updated = %d; want 1", n)
	}
	if got := repo.locations[2]; got != [2]float64{-37.80, 144.97} {
		t.Errorf("location for 2 = %v", got)
	}
	if _, ok := repo.locations[3]; ok {
		t.Error("station 3 updated despite empty geocode response")
	}
}

type fakeSubscriber struct {
	handler func(types.PriceUpdate) error
}

func (f *fakeSubscriber) SetMessageHandler(h func(types.PriceUpdate) error) { f.handler = h }

func TestRegister_wiresHandler(t *testing.T) {
	repo := &mockRepo{stations: sampleStations(), changed: true}
	s, _ := newTestService(t, repo, clockwork.NewFakeClock())

	sub := &fakeSubscriber{}
	s.Register(sub)
	if sub.handler == nil {
		t.Fatal("handler not registered")
	}
	u := types.PriceUpdate{StationID: 1, FuelType: types.LPG, UpdatedAt: time.Now()}
	if err := sub.handler(u); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(repo.upserts) != 1 || repo.upserts[0].FuelType != types.LPG {
		t.Errorf("upserts = %+v", repo.upserts)
	}
}
