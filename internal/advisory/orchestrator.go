// Package advisory composes the session store, form state, and API client
// to submit advisory requests and reconcile the result into a dashboard
// view-model. The market-price series is fetched separately after a
// successful submission: its failure degrades only its own section, and a
// late result for a superseded submission is discarded.
package advisory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/cropsathi/sathi/internal/api"
	"github.com/cropsathi/sathi/internal/catalog"
	"github.com/cropsathi/sathi/internal/form"
	"github.com/cropsathi/sathi/internal/session"
)

// ErrNotAuthenticated gates submission before any request is built.
var ErrNotAuthenticated = errors.New("advisory: not authenticated")

// ErrSubmissionInFlight rejects a second submission while one is pending.
var ErrSubmissionInFlight = errors.New("advisory: a submission is already in flight")

// InvalidFormError is a local validation failure. It never reaches the
// network.
type InvalidFormError struct {
	Field  string
	Reason string
}

func (e *InvalidFormError) Error() string {
	return fmt.Sprintf("advisory: invalid form: %s: %s", e.Field, e.Reason)
}

// advisoryAPI abstracts the backend calls, enabling test mocks.
type advisoryAPI interface {
	CreateAdvisory(ctx context.Context, input api.FarmerInput) (*api.Advisory, error)
	MarketPrice(ctx context.Context, crop string) (*api.MarketPrice, error)
}

// sessionSource yields the current session. Satisfied by *session.Store.
type sessionSource interface {
	Current() session.Session
}

// catalogSource yields the loaded taxonomy. Satisfied by *catalog.Cache.
type catalogSource interface {
	Get() (*catalog.Catalog, error)
}

// Recorder persists successful results locally. Optional; failures are
// logged, never surfaced.
type Recorder interface {
	RecordAdvisory(crop, stage string, adv *api.Advisory) error
	RecordMarket(crop string, mp *api.MarketPrice) error
}

// Orchestrator owns the current submission's view-model.
type Orchestrator struct {
	api      advisoryAPI
	session  sessionSource
	catalog  catalogSource
	language string
	recorder Recorder

	mu           sync.Mutex
	busy         bool
	seq          uint64
	view         *View
	cancelMarket context.CancelFunc
	subs         []func(View)
}

// Opts holds parameters for creating an Orchestrator.
type Opts struct {
	API     advisoryAPI
	Session sessionSource
	Catalog catalogSource
	// Language is sent with every submission. Defaults to "English".
	Language string
	// Recorder caches successful results locally. Optional.
	Recorder Recorder
}

// New creates an Orchestrator.
func New(opts Opts) (*Orchestrator, error) {
	if opts.API == nil {
		return nil, fmt.Errorf("advisory: api is required")
	}
	if opts.Session == nil {
		return nil, fmt.Errorf("advisory: session is required")
	}
	if opts.Catalog == nil {
		return nil, fmt.Errorf("advisory: catalog is required")
	}
	lang := opts.Language
	if lang == "" {
		lang = "English"
	}
	return &Orchestrator{
		api:      opts.API,
		session:  opts.Session,
		catalog:  opts.Catalog,
		language: lang,
		recorder: opts.Recorder,
	}, nil
}

// Subscribe registers fn to be called with every view-model change.
func (o *Orchestrator) Subscribe(fn func(View)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subs = append(o.subs, fn)
}

// Busy reports whether a submission is in flight; the submit control is
// disabled while true.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

// CurrentView returns the view-model of the latest successful submission.
func (o *Orchestrator) CurrentView() (View, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.view == nil {
		return View{}, false
	}
	return *o.view, true
}

// Submit validates the form, sends the advisory request, and on success
// installs a new view-model and launches the tagged market-price fetch.
// The previous view is untouched on any failure.
func (o *Orchestrator) Submit(ctx context.Context, st form.State) (View, error) {
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return View{}, ErrSubmissionInFlight
	}
	o.busy = true
	o.mu.Unlock()

	v, err := o.submit(ctx, st)

	o.mu.Lock()
	o.busy = false
	o.mu.Unlock()
	return v, err
}

func (o *Orchestrator) submit(ctx context.Context, st form.State) (View, error) {
	sess := o.session.Current()
	if !sess.LoggedIn() {
		return View{}, ErrNotAuthenticated
	}

	payload, err := o.buildPayload(sess, st)
	if err != nil {
		return View{}, err
	}

	adv, err := o.api.CreateAdvisory(ctx, *payload)
	if err != nil {
		return View{}, err
	}

	o.mu.Lock()
	// Supersede any pending market fetch from the previous submission.
	if o.cancelMarket != nil {
		o.cancelMarket()
	}
	o.seq++
	seq := o.seq
	mctx, cancel := context.WithCancel(context.Background())
	o.cancelMarket = cancel
	o.view = &View{
		Seq:      seq,
		Crop:     st.Crop,
		Stage:    payload.CropStage,
		Advisory: adv,
		Market:   MarketPending,
	}
	v := *o.view
	o.mu.Unlock()

	o.notify(v)
	if o.recorder != nil {
		if err := o.recorder.RecordAdvisory(st.Crop, payload.CropStage, adv); err != nil {
			log.Printf("advisory: record advisory: %v", err)
		}
	}

	// The market fetch starts only after the advisory view is installed.
	// It must never delay or revert the advisory display.
	go o.fetchMarket(mctx, seq, st.Crop)

	return v, nil
}

// buildPayload resolves the stage label and merges farmer identity, form
// fields, language, and channel flags. All failures here are local.
func (o *Orchestrator) buildPayload(sess session.Session, st form.State) (*api.FarmerInput, error) {
	cat, err := o.catalog.Get()
	if err != nil {
		return nil, &InvalidFormError{Field: "crop", Reason: "form configuration not loaded"}
	}
	stage, err := cat.StageLabel(st.Crop, st.StageIndex)
	if err != nil {
		return nil, &InvalidFormError{Field: "crop_stage", Reason: err.Error()}
	}
	if st.SoilType == "" || !cat.ValidSoil(st.SoilType) {
		return nil, &InvalidFormError{Field: "soil_type", Reason: fmt.Sprintf("unknown soil type %q", st.SoilType)}
	}

	return &api.FarmerInput{
		Name:           sess.User.Name,
		PhoneNumber:    sess.User.PhoneNumber,
		Crop:           st.Crop,
		CropStage:      stage,
		SoilType:       st.SoilType,
		Language:       o.language,
		GPSLocation:    st.Location,
		EnableSMS:      st.EnableSMS,
		EnableWhatsApp: st.EnableWhatsApp,
		EnableVoice:    st.EnableVoice,
	}, nil
}

// fetchMarket fetches the price series for the submission tagged seq and
// applies it only if that submission still owns the dashboard.
func (o *Orchestrator) fetchMarket(ctx context.Context, seq uint64, crop string) {
	mp, err := o.api.MarketPrice(ctx, crop)

	o.mu.Lock()
	if o.view == nil || o.view.Seq != seq {
		// Stale result for a superseded submission; drop it.
		o.mu.Unlock()
		return
	}
	if err != nil {
		o.view.Market = MarketUnavailable
	} else {
		o.view.Market = MarketReady
		o.view.Prices = mp
	}
	v := *o.view
	o.mu.Unlock()

	if err != nil {
		log.Printf("advisory: market price for %q: %v", crop, err)
	} else if o.recorder != nil {
		if rerr := o.recorder.RecordMarket(crop, mp); rerr != nil {
			log.Printf("advisory: record market: %v", rerr)
		}
	}
	o.notify(v)
}

// Reset discards the current view and cancels any pending market fetch.
// Called when the dashboard is abandoned, e.g. on logout.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	if o.cancelMarket != nil {
		o.cancelMarket()
		o.cancelMarket = nil
	}
	o.view = nil
	o.mu.Unlock()
}

// notify calls subscribers outside the lock.
func (o *Orchestrator) notify(v View) {
	o.mu.Lock()
	subs := make([]func(View), len(o.subs))
	copy(subs, o.subs)
	o.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}
