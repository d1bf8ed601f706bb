package weather

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

const (
	// CacheDuration is how long a snapshot is served before the background
	// poll refreshes it.
	CacheDuration = 10 * time.Minute

	// StaleDuration marks data as stale for UI hinting; it never blocks reads.
	StaleDuration = 5 * time.Minute

	// pollInterval is how often the staleness check runs.
	pollInterval = time.Minute

	fetchTimeout = 30 * time.Second
)

// Source fetches a weather snapshot for a coordinate pair. *Client satisfies this.
type Source interface {
	CurrentWeather(ctx context.Context, lat, lon float64) (*Snapshot, error)
}

// Locator resolves the device's location, never failing. *Resolver satisfies this.
type Locator interface {
	LocationWithFallback(ctx context.Context) Location
}

// MonitorConfig tunes staleness and the background refresh poll. Zero fields
// fall back to the defaults above.
type MonitorConfig struct {
	CacheDuration time.Duration
	StaleDuration time.Duration
	PollInterval  time.Duration
}

// DefaultMonitorConfig matches the dashboard's stock timings.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		CacheDuration: CacheDuration,
		StaleDuration: StaleDuration,
		PollInterval:  pollInterval,
	}
}

func (c MonitorConfig) withDefaults() MonitorConfig {
	def := DefaultMonitorConfig()
	if c.CacheDuration <= 0 {
		c.CacheDuration = def.CacheDuration
	}
	if c.StaleDuration <= 0 {
		c.StaleDuration = def.StaleDuration
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	return c
}

// State is the externally observable fetch state.
type State struct {
	Data            *Snapshot `json:"data"`
	Loading         bool      `json:"loading"`
	Error           string    `json:"error,omitempty"`
	LastUpdated     time.Time `json:"lastUpdated,omitzero"`
	Stale           bool      `json:"isStale"`
	CurrentLocation *Location `json:"currentLocation,omitempty"`
}

// Monitor resolves the active location and keeps its weather current.
//
// Overlapping fetches are not queued: every FetchWeather/Refresh call bumps
// a generation counter, and only the newest generation may commit to state.
// A superseded call aborts silently before each state-affecting step, so its
// eventual outcome never overwrites newer data and is never surfaced as an
// error.
type Monitor struct {
	source  Source
	locator Locator

	// onLocationFetched fires when a GPS-derived location is resolved; the
	// owner decides whether to record it (the monitor never persists).
	onLocationFetched func(Location, bool)

	cfg       MonitorConfig
	scheduler *gocron.Scheduler

	mu          sync.Mutex
	gen         uint64
	data        *Snapshot
	loading     bool
	errMsg      string
	lastUpdated time.Time
	current     *Location
	visible     bool
	closed      bool

	now func() time.Time
}

// NewMonitor builds a monitor. onLocationFetched may be nil.
func NewMonitor(source Source, locator Locator, cfg MonitorConfig, onLocationFetched func(loc Location, isGPS bool)) *Monitor {
	return &Monitor{
		source:            source,
		locator:           locator,
		onLocationFetched: onLocationFetched,
		cfg:               cfg.withDefaults(),
		visible:           true,
		now:               time.Now,
	}
}

// FetchWeather fetches weather for loc. A nil loc means the remembered
// location if one exists, else the device position with a default-location
// fallback; that very first implicit resolution is reported through
// onLocationFetched as GPS-derived. Starting a new fetch supersedes any
// in-flight one.
func (m *Monitor) FetchWeather(ctx context.Context, loc *Location) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.gen++
	gen := m.gen
	m.loading = true
	m.errMsg = ""
	remembered := m.current
	m.mu.Unlock()

	var target Location
	notifyGPS := false

	switch {
	case loc != nil:
		target = *loc
	case remembered != nil:
		target = *remembered
	default:
		target = m.locator.LocationWithFallback(ctx)
		notifyGPS = true
	}

	if !m.commitLocation(gen, target) {
		return
	}
	if notifyGPS && m.onLocationFetched != nil {
		m.onLocationFetched(target, true)
	}

	m.fetchInto(ctx, gen, target)
}

// Refresh re-resolves the device's position (not the remembered location),
// fetches weather for it, and reports the new reading as GPS-derived.
func (m *Monitor) Refresh(ctx context.Context) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.gen++
	gen := m.gen
	m.loading = true
	m.errMsg = ""
	m.mu.Unlock()

	target := m.locator.LocationWithFallback(ctx)

	m.mu.Lock()
	if gen != m.gen || m.closed {
		m.mu.Unlock()
		return
	}
	m.current = &target
	m.mu.Unlock()

	if m.onLocationFetched != nil {
		m.onLocationFetched(target, true)
	}

	m.fetchInto(ctx, gen, target)
}

// commitLocation remembers the first resolved location. It reports whether
// gen is still the newest fetch.
func (m *Monitor) commitLocation(gen uint64, target Location) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.closed {
		return false
	}
	if m.current == nil {
		m.current = &target
	}
	return true
}

func (m *Monitor) fetchInto(ctx context.Context, gen uint64, target Location) {
	snap, err := m.source.CurrentWeather(ctx, target.Lat, target.Lon)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.closed {
		return
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Cancellation is not an error and mutates nothing, but a
			// canceled call that is still the newest one must not leave
			// the state machine stuck in Loading.
			m.loading = false
			return
		}
		m.data = nil
		m.loading = false
		m.errMsg = errorMessage(err)
		m.lastUpdated = time.Time{}
		return
	}

	m.data = snap
	m.loading = false
	m.errMsg = ""
	m.lastUpdated = m.now()
}

func errorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "Failed to fetch weather data"
}

// State returns a copy of the observable state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		Data:            m.data,
		Loading:         m.loading,
		Error:           m.errMsg,
		LastUpdated:     m.lastUpdated,
		Stale:           m.staleLocked(),
		CurrentLocation: m.current,
	}
}

// IsStale reports whether the data is older than StaleDuration.
func (m *Monitor) IsStale() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.staleLocked()
}

func (m *Monitor) staleLocked() bool {
	if m.lastUpdated.IsZero() {
		return false
	}
	return m.now().Sub(m.lastUpdated) > m.cfg.StaleDuration
}

// SetVisible records page visibility. Becoming visible triggers an immediate
// staleness check; while hidden the background poll does not refresh.
func (m *Monitor) SetVisible(visible bool) {
	m.mu.Lock()
	was := m.visible
	m.visible = visible
	m.mu.Unlock()

	if visible && !was {
		m.tick()
	}
}

// Start begins the background refresh poll.
func (m *Monitor) Start() error {
	s := gocron.NewScheduler(time.UTC)
	if _, err := s.Every(m.cfg.PollInterval).Do(m.tick); err != nil {
		return err
	}
	s.StartAsync()

	m.mu.Lock()
	m.scheduler = s
	m.mu.Unlock()
	return nil
}

func (m *Monitor) tick() {
	m.mu.Lock()
	visible := m.visible
	lastUpdated := m.lastUpdated
	closed := m.closed
	m.mu.Unlock()

	if closed || !visible || lastUpdated.IsZero() {
		return
	}
	if m.now().Sub(lastUpdated) <= m.cfg.CacheDuration {
		return
	}

	logrus.Debug("cached weather expired; refreshing")
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	m.Refresh(ctx)
}

// Close stops the poller and invalidates any in-flight fetch. Safe to call
// with fetches still running; their results are discarded without panics.
func (m *Monitor) Close() {
	m.mu.Lock()
	m.closed = true
	m.gen++
	s := m.scheduler
	m.scheduler = nil
	m.mu.Unlock()

	if s != nil {
		s.Stop()
	}
}
