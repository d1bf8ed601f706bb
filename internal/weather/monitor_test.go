package weather

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource returns canned snapshots keyed by coordinates, optionally
// blocking until released so tests can hold a fetch in flight.
type stubSource struct {
	mu    sync.Mutex
	err   error
	gates map[[2]float64]chan struct{}
	calls int
}

func newStubSource() *stubSource {
	return &stubSource{gates: make(map[[2]float64]chan struct{})}
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubSource) gate(lat, lon float64) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{})
	s.gates[[2]float64{lat, lon}] = ch
	return ch
}

func (s *stubSource) CurrentWeather(ctx context.Context, lat, lon float64) (*Snapshot, error) {
	s.mu.Lock()
	s.calls++
	gate := s.gates[[2]float64{lat, lon}]
	err := s.err
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &Snapshot{Location: Location{Lat: lat, Lon: lon}}, nil
}

type stubLocator struct {
	mu    sync.Mutex
	loc   Location
	calls int
}

func (l *stubLocator) LocationWithFallback(context.Context) Location {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.loc
}

func (l *stubLocator) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

var (
	locA = Location{Lat: 40.7128, Lon: -74.006, Name: "New York", Country: "US"}
	locB = Location{Lat: 51.5074, Lon: -0.1278, Name: "London", Country: "GB"}
)

func TestFirstImplicitFetchNotifiesGPSOnce(t *testing.T) {
	source := newStubSource()
	locator := &stubLocator{loc: locA}

	var notified []Location
	var gpsFlags []bool
	m := NewMonitor(source, locator, DefaultMonitorConfig(), func(loc Location, isGPS bool) {
		notified = append(notified, loc)
		gpsFlags = append(gpsFlags, isGPS)
	})

	m.FetchWeather(context.Background(), nil)
	m.FetchWeather(context.Background(), nil) // remembered location, no re-notify

	require.Len(t, notified, 1)
	assert.Equal(t, locA, notified[0])
	assert.Equal(t, []bool{true}, gpsFlags)
	assert.Equal(t, 1, locator.callCount())

	state := m.State()
	require.NotNil(t, state.Data)
	assert.Equal(t, locA.Lat, state.Data.Location.Lat)
	require.NotNil(t, state.CurrentLocation)
	assert.Equal(t, locA, *state.CurrentLocation)
	assert.False(t, state.Loading)
}

func TestExplicitFetchDoesNotNotify(t *testing.T) {
	source := newStubSource()
	locator := &stubLocator{loc: locA}

	notifies := 0
	m := NewMonitor(source, locator, DefaultMonitorConfig(), func(Location, bool) { notifies++ })

	m.FetchWeather(context.Background(), &locB)

	assert.Zero(t, notifies)
	assert.Zero(t, locator.callCount())
	assert.Equal(t, locB.Lat, m.State().Data.Location.Lat)
}

func TestNewerFetchSupersedesInFlight(t *testing.T) {
	source := newStubSource()
	m := NewMonitor(source, &stubLocator{loc: locA}, DefaultMonitorConfig(), nil)

	gateA := source.gate(locA.Lat, locA.Lon)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.FetchWeather(context.Background(), &locA)
	}()

	// Wait until A's request is actually in flight, then let B land first
	// and release A afterwards.
	require.Eventually(t, func() bool { return source.callCount() == 1 },
		2*time.Second, time.Millisecond)
	m.FetchWeather(context.Background(), &locB)
	close(gateA)
	wg.Wait()

	state := m.State()
	require.NotNil(t, state.Data)
	assert.Equal(t, locB.Lat, state.Data.Location.Lat)
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)
}

func TestFetchFailureSurfacesMessage(t *testing.T) {
	source := newStubSource()
	source.err = &APIError{Message: "Invalid API key", Code: 401}
	m := NewMonitor(source, &stubLocator{loc: locA}, DefaultMonitorConfig(), nil)

	m.FetchWeather(context.Background(), &locA)

	state := m.State()
	assert.Nil(t, state.Data)
	assert.Equal(t, "Invalid API key", state.Error)
	assert.False(t, state.Loading)
	assert.True(t, state.LastUpdated.IsZero())
}

func TestRefreshReResolvesAndReNotifies(t *testing.T) {
	source := newStubSource()
	locator := &stubLocator{loc: locA}

	var notified []Location
	m := NewMonitor(source, locator, DefaultMonitorConfig(), func(loc Location, isGPS bool) {
		assert.True(t, isGPS)
		notified = append(notified, loc)
	})

	m.FetchWeather(context.Background(), nil)

	// The device moved; refresh must pick up the new position.
	locator.mu.Lock()
	locator.loc = locB
	locator.mu.Unlock()

	m.Refresh(context.Background())

	require.Len(t, notified, 2)
	assert.Equal(t, locA, notified[0])
	assert.Equal(t, locB, notified[1])
	assert.Equal(t, 2, locator.callCount())
	assert.Equal(t, locB, *m.State().CurrentLocation)
}

func TestIsStale(t *testing.T) {
	source := newStubSource()
	m := NewMonitor(source, &stubLocator{loc: locA}, DefaultMonitorConfig(), nil)

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	assert.False(t, m.IsStale()) // no data yet

	m.FetchWeather(context.Background(), &locA)
	assert.False(t, m.IsStale())

	now = now.Add(StaleDuration + time.Second)
	assert.True(t, m.IsStale())
}

func TestCloseDiscardsInFlightFetch(t *testing.T) {
	source := newStubSource()
	m := NewMonitor(source, &stubLocator{loc: locA}, DefaultMonitorConfig(), nil)

	gate := source.gate(locA.Lat, locA.Lon)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.FetchWeather(context.Background(), &locA)
	}()

	m.Close()
	close(gate)
	wg.Wait()

	assert.Nil(t, m.State().Data)

	// Fetch after close is a no-op.
	m.FetchWeather(context.Background(), &locB)
	assert.Nil(t, m.State().Data)
}

func TestBackgroundTickHonorsVisibilityAndCacheAge(t *testing.T) {
	source := newStubSource()
	locator := &stubLocator{loc: locA}
	m := NewMonitor(source, locator, DefaultMonitorConfig(), nil)

	base := time.Now()
	m.now = func() time.Time { return base }

	m.FetchWeather(context.Background(), &locA)
	require.Equal(t, 1, source.callCount())

	// Fresh data: tick is a no-op.
	m.tick()
	assert.Equal(t, 1, source.callCount())
	assert.Zero(t, locator.callCount())

	// Expired but hidden: still a no-op.
	m.now = func() time.Time { return base.Add(CacheDuration + time.Second) }
	m.SetVisible(false)
	m.tick()
	assert.Equal(t, 1, source.callCount())
	assert.Zero(t, locator.callCount())

	// Becoming visible re-checks immediately and refreshes.
	m.SetVisible(true)
	assert.Equal(t, 2, source.callCount())
	assert.Equal(t, 1, locator.callCount())
}

func TestCanceledFetchClearsLoadingWithoutError(t *testing.T) {
	source := newStubSource()
	source.err = context.Canceled
	m := NewMonitor(source, &stubLocator{loc: locA}, DefaultMonitorConfig(), nil)

	m.FetchWeather(context.Background(), &locA)

	state := m.State()
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)
	assert.Nil(t, state.Data)
}
