package service

import (
	"context"
	"sync"

	"github.com/gtsops/gts-workflow/internal/application/dispatcher"
	"github.com/gtsops/gts-workflow/internal/application/port"
	"github.com/gtsops/gts-workflow/internal/domain/event"
	"github.com/gtsops/gts-workflow/internal/domain/trip"
	"github.com/gtsops/gts-workflow/internal/infrastructure/memstore"
)

// Test fixtures shared by the service tests. Stores are the real in-memory
// implementations; external collaborators are function-field stubs.

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type stubGauge struct {
	snapshotFn func(ctx context.Context) (trip.ReadingSnapshot, error)
}

func (g *stubGauge) Snapshot(ctx context.Context) (trip.ReadingSnapshot, error) {
	if g.snapshotFn != nil {
		return g.snapshotFn(ctx)
	}
	return trip.ReadingSnapshot{Pressure: 9.0, Flow: 45.0, MFM: 12000}, nil
}

type stubDirectory struct {
	lookupFn func(ctx context.Context, userID string) (*port.User, error)
}

func (d *stubDirectory) Lookup(ctx context.Context, userID string) (*port.User, error) {
	if d.lookupFn != nil {
		return d.lookupFn(ctx, userID)
	}
	return nil, port.ErrUserNotFound
}

type stubSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *stubSender) Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, deviceToken+"|"+title)
	return nil
}

func (s *stubSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// eventRecorder captures dispatched events for assertions. Call the
// dispatcher's Close before reading to drain async handlers.
type eventRecorder struct {
	mu     sync.Mutex
	events []*event.Event
}

func (r *eventRecorder) record(ctx context.Context, evt *event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *eventRecorder) ofType(t event.Type) []*event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*event.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	tokenStore   *memstore.TokenStore
	tripStore    *memstore.TripStore
	sessionStore *memstore.SessionStore
	dispatcher   dispatcher.Dispatcher
	recorder     *eventRecorder
	directory    *stubDirectory
	gauge        *stubGauge

	tokens  TokenService
	trips   TripService
	station StationService
}

func newTestEnv(allowMock bool) *testEnv {
	env := &testEnv{
		tokenStore:   memstore.NewTokenStore(),
		tripStore:    memstore.NewTripStore(),
		sessionStore: memstore.NewSessionStore(),
		recorder:     &eventRecorder{},
		directory:    &stubDirectory{},
		gauge:        &stubGauge{},
	}
	env.dispatcher = dispatcher.New()
	for _, t := range []event.Type{
		event.TypeTripAccepted, event.TypeTripArrived,
		event.TypeDecantStarted, event.TypeDecantEnded, event.TypeDecantConfirmed,
		event.TypeTripCompleted, event.TypeSessionCompleted,
		event.TypeTokenRevoked, event.TypeEmergencyReported,
	} {
		env.dispatcher.Subscribe(t, "recorder", env.recorder.record)
	}

	env.tokens = NewTokenService(env.tokenStore, env.directory, env.dispatcher, allowMock, nopLogger{})
	env.trips = NewTripService(env.tripStore, env.tokens, env.gauge, env.dispatcher, nopLogger{})
	env.station = NewStationService(env.sessionStore, env.tripStore, env.tokens, env.dispatcher, nopLogger{})
	return env
}

// drain waits for async event handlers; the dispatcher is unusable afterwards.
func (e *testEnv) drain() {
	e.dispatcher.Close()
}

func (e *testEnv) seedTrip(id string) {
	e.tripStore.Seed(trip.New(id))
}
