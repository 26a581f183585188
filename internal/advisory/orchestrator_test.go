package advisory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cropsathi/sathi/internal/api"
	"github.com/cropsathi/sathi/internal/catalog"
	"github.com/cropsathi/sathi/internal/form"
	"github.com/cropsathi/sathi/internal/session"
)

// mockBackend implements advisoryAPI with gates for ordering tests.
type mockBackend struct {
	mu        sync.Mutex
	lastInput api.FarmerInput
	advCalls  int32
	advErr    error
	advGate   chan struct{} // when non-nil, CreateAdvisory blocks until closed

	marketCalls int32
	marketErr   error
	marketGate  chan struct{} // when non-nil, MarketPrice blocks until closed
	marketSeen  chan string   // receives the crop of each MarketPrice call
}

func (m *mockBackend) CreateAdvisory(ctx context.Context, input api.FarmerInput) (*api.Advisory, error) {
	atomic.AddInt32(&m.advCalls, 1)
	m.mu.Lock()
	m.lastInput = input
	gate := m.advGate
	err := m.advErr
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &api.Advisory{
		Recommendation: "Scout for aphids twice a week.",
		DailyAdvice:    "Irrigate in the morning.",
		PestPredictions: []api.PestPrediction{
			{Pest: "Aphids", Risk: "High"},
		},
	}, nil
}

func (m *mockBackend) MarketPrice(ctx context.Context, crop string) (*api.MarketPrice, error) {
	atomic.AddInt32(&m.marketCalls, 1)
	m.mu.Lock()
	gate := m.marketGate
	seen := m.marketSeen
	err := m.marketErr
	m.mu.Unlock()
	if seen != nil {
		seen <- crop
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &api.MarketPrice{
		Crop:    crop,
		Unit:    "INR/Quintal",
		History: []api.PricePoint{{Date: "2025-05-30", Price: 2250}},
	}, nil
}

type fixedSession struct{ sess session.Session }

func (f *fixedSession) Current() session.Session { return f.sess }

type fixedCatalog struct {
	cat *catalog.Catalog
	err error
}

func (f *fixedCatalog) Get() (*catalog.Catalog, error) { return f.cat, f.err }

func wheatCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Crops: map[string]api.CropInfo{
			"wheat": {Stages: []string{"sowing", "growth", "harvest"}},
		},
		SoilTypes: []string{"loamy"},
	}
}

func loggedIn() *fixedSession {
	return &fixedSession{sess: session.Session{
		Token: "tok",
		User:  &api.User{ID: 1, Name: "Asha", PhoneNumber: "+919876543210"},
	}}
}

func wheatForm() form.State {
	return form.State{Crop: "wheat", StageIndex: 1, SoilType: "loamy", EnableSMS: true}
}

func newOrchestrator(t *testing.T, backend *mockBackend, sess sessionSource, cat catalogSource) *Orchestrator {
	t.Helper()
	o, err := New(Opts{API: backend, Session: sess, Catalog: cat, Language: "English"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

// viewSink collects view updates for assertions.
type viewSink struct {
	ch chan View
}

func newViewSink(o *Orchestrator) *viewSink {
	s := &viewSink{ch: make(chan View, 16)}
	o.Subscribe(func(v View) { s.ch <- v })
	return s
}

// waitFor returns the next view matching pred, failing after a timeout.
func (s *viewSink) waitFor(t *testing.T, pred func(View) bool) View {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-s.ch:
			if pred(v) {
				return v
			}
		case <-deadline:
			t.Fatal("timed out waiting for view update")
		}
	}
}

func TestSubmit_NotAuthenticated(t *testing.T) {
	backend := &mockBackend{}
	o := newOrchestrator(t, backend, &fixedSession{}, &fixedCatalog{cat: wheatCatalog()})

	_, err := o.Submit(context.Background(), wheatForm())
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
	if n := atomic.LoadInt32(&backend.advCalls); n != 0 {
		t.Errorf("advisory calls = %d, want 0 (no network while logged out)", n)
	}
}

func TestSubmit_InvalidForm_NeverHitsNetwork(t *testing.T) {
	cases := []struct {
		name string
		cat  catalogSource
		st   form.State
	}{
		{"catalog unavailable", &fixedCatalog{err: catalog.ErrUnavailable}, wheatForm()},
		{"unknown crop", &fixedCatalog{cat: wheatCatalog()}, form.State{Crop: "mango", SoilType: "loamy"}},
		{"stage out of bounds", &fixedCatalog{cat: wheatCatalog()}, form.State{Crop: "wheat", StageIndex: 7, SoilType: "loamy"}},
		{"bad soil", &fixedCatalog{cat: wheatCatalog()}, form.State{Crop: "wheat", StageIndex: 0, SoilType: "sand"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := &mockBackend{}
			o := newOrchestrator(t, backend, loggedIn(), tc.cat)

			_, err := o.Submit(context.Background(), tc.st)
			var ferr *InvalidFormError
			if !errors.As(err, &ferr) {
				t.Fatalf("err = %v, want *InvalidFormError", err)
			}
			if n := atomic.LoadInt32(&backend.advCalls); n != 0 {
				t.Errorf("advisory calls = %d, want 0", n)
			}
		})
	}
}

func TestSubmit_Success(t *testing.T) {
	backend := &mockBackend{}
	o := newOrchestrator(t, backend, loggedIn(), &fixedCatalog{cat: wheatCatalog()})
	sink := newViewSink(o)

	v, err := o.Submit(context.Background(), wheatForm())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if v.Advisory.Recommendation != "Scout for aphids twice a week." {
		t.Errorf("Recommendation = %q, want server string verbatim", v.Advisory.Recommendation)
	}
	if v.Market != MarketPending {
		t.Errorf("Market = %q, want pending right after submit", v.Market)
	}

	// Payload merges identity, resolved stage, language, and flags.
	backend.mu.Lock()
	in := backend.lastInput
	backend.mu.Unlock()
	if in.Name != "Asha" || in.PhoneNumber != "+919876543210" {
		t.Errorf("identity = %q/%q, want from session profile", in.Name, in.PhoneNumber)
	}
	if in.CropStage != "growth" {
		t.Errorf("CropStage = %q, want growth (index 1 resolved)", in.CropStage)
	}
	if in.Language != "English" {
		t.Errorf("Language = %q, want English", in.Language)
	}
	if !in.EnableSMS || in.EnableWhatsApp {
		t.Errorf("channel flags = %+v", in)
	}

	// The market section fills in without another submission.
	got := sink.waitFor(t, func(v View) bool { return v.Market == MarketReady })
	if got.Prices == nil || got.Prices.Unit != "INR/Quintal" {
		t.Errorf("Prices = %+v", got.Prices)
	}
	if got.Advisory.Recommendation != "Scout for aphids twice a week." {
		t.Error("advisory section must survive the market update")
	}
}

func TestSubmit_RequestFailureKeepsPreviousView(t *testing.T) {
	backend := &mockBackend{}
	o := newOrchestrator(t, backend, loggedIn(), &fixedCatalog{cat: wheatCatalog()})
	sink := newViewSink(o)

	if _, err := o.Submit(context.Background(), wheatForm()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	sink.waitFor(t, func(v View) bool { return v.Market == MarketReady })

	backend.mu.Lock()
	backend.advErr = &api.RequestError{Status: 503, Message: "weather service down"}
	backend.mu.Unlock()

	_, err := o.Submit(context.Background(), wheatForm())
	var rerr *api.RequestError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want *RequestError", err)
	}

	cur, ok := o.CurrentView()
	if !ok {
		t.Fatal("previous view must survive a failed submission")
	}
	if cur.Seq != 1 || cur.Market != MarketReady {
		t.Errorf("view = %+v, want untouched submission 1", cur)
	}
}

func TestSubmit_MarketFailureDegradesOnlyItsSection(t *testing.T) {
	backend := &mockBackend{marketErr: errors.New("price feed unreachable")}
	o := newOrchestrator(t, backend, loggedIn(), &fixedCatalog{cat: wheatCatalog()})
	sink := newViewSink(o)

	if _, err := o.Submit(context.Background(), wheatForm()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	got := sink.waitFor(t, func(v View) bool { return v.Market == MarketUnavailable })
	if got.Advisory == nil || got.Advisory.Recommendation == "" {
		t.Error("advisory section must stay fully populated")
	}
	if got.Prices != nil {
		t.Errorf("Prices = %+v, want nil when unavailable", got.Prices)
	}
}

func TestSubmit_RejectsConcurrentSubmission(t *testing.T) {
	backend := &mockBackend{advGate: make(chan struct{})}
	o := newOrchestrator(t, backend, loggedIn(), &fixedCatalog{cat: wheatCatalog()})

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background(), wheatForm())
		done <- err
	}()

	// Wait until the first submission is in flight.
	deadline := time.After(2 * time.Second)
	for !o.Busy() {
		select {
		case <-deadline:
			t.Fatal("first submission never became busy")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	_, err := o.Submit(context.Background(), wheatForm())
	if !errors.Is(err, ErrSubmissionInFlight) {
		t.Fatalf("second submit err = %v, want ErrSubmissionInFlight", err)
	}

	close(backend.advGate)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if n := atomic.LoadInt32(&backend.advCalls); n != 1 {
		t.Errorf("advisory calls = %d, want 1", n)
	}
}

func TestMarketFetch_StaleResultDiscarded(t *testing.T) {
	gate := make(chan struct{})
	backend := &mockBackend{marketGate: gate, marketSeen: make(chan string, 4)}
	o := newOrchestrator(t, backend, loggedIn(), &fixedCatalog{cat: wheatCatalog()})
	sink := newViewSink(o)

	// Submission 1: market fetch parks on the gate.
	if _, err := o.Submit(context.Background(), wheatForm()); err != nil {
		t.Fatalf("Submit 1: %v", err)
	}
	<-backend.marketSeen

	// Submission 2 supersedes it; let its market fetch through.
	backend.mu.Lock()
	backend.marketGate = nil
	backend.mu.Unlock()
	if _, err := o.Submit(context.Background(), wheatForm()); err != nil {
		t.Fatalf("Submit 2: %v", err)
	}
	<-backend.marketSeen
	v2 := sink.waitFor(t, func(v View) bool { return v.Seq == 2 && v.Market == MarketReady })

	// Release submission 1's fetch; its late result must be dropped.
	close(gate)
	time.Sleep(50 * time.Millisecond)

	cur, ok := o.CurrentView()
	if !ok {
		t.Fatal("expected a current view")
	}
	if cur.Seq != 2 || cur != v2 {
		t.Errorf("view = %+v, want submission 2 untouched by stale result", cur)
	}
}

func TestReset_CancelsPendingMarketFetch(t *testing.T) {
	gate := make(chan struct{})
	backend := &mockBackend{marketGate: gate, marketSeen: make(chan string, 1)}
	o := newOrchestrator(t, backend, loggedIn(), &fixedCatalog{cat: wheatCatalog()})

	if _, err := o.Submit(context.Background(), wheatForm()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-backend.marketSeen

	o.Reset()
	time.Sleep(50 * time.Millisecond)

	if _, ok := o.CurrentView(); ok {
		t.Error("view must be cleared after Reset")
	}
	// The parked fetch was cancelled via its context; when the gate opens
	// nothing may resurrect the discarded view.
	close(gate)
	time.Sleep(50 * time.Millisecond)
	if _, ok := o.CurrentView(); ok {
		t.Error("stale market result resurrected a discarded view")
	}
}
