package pricefeed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/metrics"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSource struct {
	mu      sync.Mutex
	updates []types.PriceUpdate
	err     error
	fetches chan struct{}
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(context.Context) ([]types.PriceUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetches != nil {
		f.fetches <- struct{}{}
	}
	return append([]types.PriceUpdate(nil), f.updates...), f.err
}

func (f *fakeSource) set(updates ...types.PriceUpdate) {
	f.mu.Lock()
	f.updates = updates
	f.mu.Unlock()
}

type fakePublisher struct {
	mu        sync.Mutex
	published []types.PriceUpdate
	err       error
}

func (f *fakePublisher) Publish(u types.PriceUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, u)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

var at = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func update(station int, fuel types.FuelType, price *float64) types.PriceUpdate {
	return types.PriceUpdate{StationID: station, FuelType: fuel, PriceCents: price, UpdatedAt: at}
}

func TestApp_Poll(t *testing.T) {
	src := &fakeSource{}
	pub := &fakePublisher{}
	m := metrics.NewNop()
	app := NewApp(src, pub, Options{Metrics: m, Logger: discard})
	ctx := context.Background()

	src.set(
		update(1, types.Unleaded, ptr(189.9)),
		update(1, types.Diesel, nil),
		update(2, types.Unleaded, ptr(179.9)),
	)
	n, err := app.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "first poll publishes everything")

	n, err = app.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "unchanged prices are not republished")

	src.set(
		update(1, types.Unleaded, ptr(184.9)),
		update(1, types.Diesel, ptr(199.9)),
		update(2, types.Unleaded, ptr(179.9)),
	)
	n, err = app.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, 5, pub.count())
	assert.Equal(t, 3.0, testutil.ToFloat64(m.FeedPolls.WithLabelValues("fake", "ok")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.FeedPublished))
}

func TestApp_PollRetriesFailedPublishes(t *testing.T) {
	src := &fakeSource{}
	pub := &fakePublisher{err: errNotConnected}
	app := NewApp(src, pub, Options{Logger: discard})
	src.set(update(1, types.LPG, ptr(99.9)), update(2, types.LPG, ptr(98.9)))

	n, err := app.Poll(context.Background())
	assert.Equal(t, 0, n)
	require.Error(t, err)
	assert.ErrorIs(t, err, errNotConnected)
	assert.Contains(t, err.Error(), "2 updates not published")

	pub.mu.Lock()
	pub.err = nil
	pub.mu.Unlock()

	n, err = app.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestApp_PollSkipsInvalid(t *testing.T) {
	src := &fakeSource{}
	pub := &fakePublisher{}
	app := NewApp(src, pub, Options{Logger: discard})
	bad := update(3, types.Diesel, ptr(-1))
	src.set(bad, update(3, types.Unleaded, ptr(180)))

	n, err := app.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestApp_PollFetchError(t *testing.T) {
	src := &fakeSource{err: errors.New("upstream 503")}
	m := metrics.NewNop()
	app := NewApp(src, &fakePublisher{}, Options{Metrics: m, Logger: discard})

	_, err := app.Poll(context.Background())
	assert.EqualError(t, err, "upstream 503")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedPolls.WithLabelValues("fake", "error")))
}

func TestApp_RunPollsEveryInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &fakeSource{fetches: make(chan struct{}, 4)}
	src.set(update(1, types.Unleaded, ptr(189.9)))
	pub := &fakePublisher{}
	app := NewApp(src, pub, Options{Interval: time.Minute, Clock: clock, Logger: discard})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	<-src.fetches // immediate first poll

	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	src.set(update(1, types.Unleaded, ptr(187.9)))
	clock.Advance(time.Minute)

	select {
	case <-src.fetches:
	case <-time.After(5 * time.Second):
		t.Fatal("no poll after the interval elapsed")
	}

	require.Eventually(t, func() bool { return pub.count() == 2 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
