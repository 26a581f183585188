package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cropsathi/sathi/internal/advisory"
	"github.com/cropsathi/sathi/internal/api"
	"github.com/cropsathi/sathi/internal/config"
	"github.com/cropsathi/sathi/internal/form"
	"github.com/cropsathi/sathi/internal/store"
)

// Submitter abstracts the advisory orchestrator for testability.
type Submitter interface {
	Submit(ctx context.Context, st form.State) (advisory.View, error)
}

// Default watch schedules, used when the config leaves them empty.
const (
	DefaultRefreshSchedule = "0 6 * * *"
	DefaultDigestSchedule  = "0 18 * * *"
)

// Watcher runs watch mode: it re-submits the saved advisory form on the
// refresh schedule and delivers a digest of the day's results on the
// digest schedule.
type Watcher struct {
	submitter Submitter
	store     *store.Store
	adapter   Adapter
	formState form.State
	refresh   string
	digest    string

	mu            sync.Mutex
	lastRefreshAt time.Time
	lastDigestAt  time.Time
}

// WatcherOpts holds parameters for creating a Watcher.
type WatcherOpts struct {
	Submitter Submitter
	Store     *store.Store
	Adapter   Adapter // optional; nil disables digest delivery
	Form      config.WatchForm
	Refresh   string // 5-field cron, defaults to DefaultRefreshSchedule
	Digest    string // 5-field cron, defaults to DefaultDigestSchedule
}

// NewWatcher creates a Watcher.
func NewWatcher(opts WatcherOpts) (*Watcher, error) {
	if opts.Submitter == nil {
		return nil, fmt.Errorf("notify: watcher: submitter is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("notify: watcher: store is required")
	}
	refresh := opts.Refresh
	if refresh == "" {
		refresh = DefaultRefreshSchedule
	}
	digest := opts.Digest
	if digest == "" {
		digest = DefaultDigestSchedule
	}
	if err := ValidateSchedule(refresh); err != nil {
		return nil, err
	}
	if err := ValidateSchedule(digest); err != nil {
		return nil, err
	}
	return &Watcher{
		submitter: opts.Submitter,
		store:     opts.Store,
		adapter:   opts.Adapter,
		formState: formFromConfig(opts.Form),
		refresh:   refresh,
		digest:    digest,
	}, nil
}

// formFromConfig converts the saved YAML form into a submission state.
// SMS defaults on when the config does not say otherwise, matching the
// form controller's default.
func formFromConfig(f config.WatchForm) form.State {
	st := form.State{
		Crop:           f.Crop,
		StageIndex:     f.StageIndex,
		SoilType:       f.SoilType,
		EnableSMS:      true,
		EnableWhatsApp: f.EnableWhatsApp,
		EnableVoice:    f.EnableVoice,
	}
	if f.EnableSMS != nil {
		st.EnableSMS = *f.EnableSMS
	}
	if f.Latitude != nil && f.Longitude != nil {
		st.Location = &api.GPSLocation{Latitude: *f.Latitude, Longitude: *f.Longitude}
	}
	return st
}

// Run blocks until ctx is cancelled, firing refreshes and digests on
// their schedules. Failures are logged and the loop keeps going.
func (w *Watcher) Run(ctx context.Context) error {
	if w.adapter != nil {
		if err := w.adapter.Connect(); err != nil {
			return fmt.Errorf("notify: watcher: connect: %w", err)
		}
		defer func() {
			if err := w.adapter.Close(); err != nil {
				log.Printf("notify: close adapter: %v", err)
			}
		}()
	}

	refreshTimer := time.NewTimer(nextCronDuration(w.refresh))
	defer refreshTimer.Stop()
	digestTimer := time.NewTimer(nextCronDuration(w.digest))
	defer digestTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-refreshTimer.C:
			if err := w.Refresh(ctx); err != nil {
				log.Printf("notify: scheduled refresh: %v", err)
			}
			refreshTimer.Reset(nextCronDuration(w.refresh))
		case <-digestTimer.C:
			if err := w.Digest(ctx); err != nil {
				log.Printf("notify: scheduled digest: %v", err)
			}
			digestTimer.Reset(nextCronDuration(w.digest))
		}
	}
}

// Refresh submits the saved form once. The orchestrator's recorder
// caches the result, so a later digest picks it up.
func (w *Watcher) Refresh(ctx context.Context) error {
	if _, err := w.submitter.Submit(ctx, w.formState); err != nil {
		return fmt.Errorf("notify: refresh: %w", err)
	}
	w.mu.Lock()
	w.lastRefreshAt = time.Now()
	w.mu.Unlock()
	return nil
}

// Digest builds the daily digest and delivers it through the adapter.
// A nil digest (no activity) and a nil adapter both skip delivery.
func (w *Watcher) Digest(ctx context.Context) error {
	msg, err := BuildDigest(w.store, time.Now())
	if err != nil {
		return err
	}
	if msg == nil || w.adapter == nil {
		return nil
	}
	if err := w.adapter.Send(*msg); err != nil {
		return fmt.Errorf("notify: send digest: %w", err)
	}
	w.mu.Lock()
	w.lastDigestAt = time.Now()
	w.mu.Unlock()
	return nil
}

// LastRefreshAt returns when the last successful refresh ran.
func (w *Watcher) LastRefreshAt() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRefreshAt
}

// LastDigestAt returns when the last digest was delivered.
func (w *Watcher) LastDigestAt() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastDigestAt
}
