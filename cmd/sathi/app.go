package main

import (
	"context"
	"fmt"

	"github.com/cropsathi/sathi/internal/advisory"
	"github.com/cropsathi/sathi/internal/api"
	"github.com/cropsathi/sathi/internal/catalog"
	"github.com/cropsathi/sathi/internal/config"
	"github.com/cropsathi/sathi/internal/session"
	"github.com/cropsathi/sathi/internal/store"
)

// defaultConfigPath is the --config default for every subcommand.
func defaultConfigPath() string { return config.DefaultPath() }

// app bundles the client-side components every command needs.
type app struct {
	cfg      *config.Config
	client   *api.Client
	sessions *session.Store
	catalog  *catalog.Cache
}

// newApp loads the config and wires the API client, session store, and
// catalog cache. It restores any persisted session before returning, so
// commands see the logged-in state immediately.
func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	tokens, err := session.NewFileTokenStore(cfg.StateDir)
	if err != nil {
		return nil, err
	}

	// The client and the session store reference each other: the client
	// asks the store for bearer tokens, the store uses the client to
	// validate them. Late-bind the token lookup to break the cycle.
	var sessions *session.Store
	client, err := api.New(api.Opts{
		BaseURL: cfg.BaseURL,
		Tokens: api.TokenFunc(func() string {
			if sessions == nil {
				return ""
			}
			return sessions.Token()
		}),
	})
	if err != nil {
		return nil, err
	}

	sessions, err = session.New(session.Opts{API: client, Tokens: tokens})
	if err != nil {
		return nil, err
	}
	sessions.Restore(ctx)

	cat, err := catalog.NewCache(client)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, client: client, sessions: sessions, catalog: cat}, nil
}

// openCache opens the local advisory cache configured in cfg.
func (a *app) openCache() (*store.Store, error) {
	c := a.cfg.Cache
	return store.Open(store.Opts{
		Driver:   c.Driver,
		Path:     c.Path,
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Database: c.Database,
	})
}

// newOrchestrator builds the advisory orchestrator. Logging out resets it
// so a stale view never outlives its session.
func (a *app) newOrchestrator(rec advisory.Recorder) (*advisory.Orchestrator, error) {
	orch, err := advisory.New(advisory.Opts{
		API:      a.client,
		Session:  a.sessions,
		Catalog:  a.catalog,
		Language: a.cfg.Language,
		Recorder: rec,
	})
	if err != nil {
		return nil, err
	}
	a.sessions.Subscribe(func(s session.Session) {
		if !s.LoggedIn() {
			orch.Reset()
		}
	})
	return orch, nil
}
