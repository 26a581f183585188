// Package history loads the logged-in user's past advisories in the
// order the server returned them. An empty history is a valid result,
// distinct from a fetch failure.
package history

import (
	"context"
	"fmt"

	"github.com/cropsathi/sathi/internal/api"
	"github.com/cropsathi/sathi/internal/session"
)

// historyAPI abstracts the backend call, enabling test mocks.
type historyAPI interface {
	History(ctx context.Context) ([]api.HistoryItem, error)
}

// sessionSource yields the current session. Satisfied by *session.Store.
type sessionSource interface {
	Current() session.Session
}

// Loader fetches advisory history for the logged-in user.
type Loader struct {
	api     historyAPI
	session sessionSource
}

// New creates a Loader.
func New(a historyAPI, s sessionSource) (*Loader, error) {
	if a == nil {
		return nil, fmt.Errorf("history: api is required")
	}
	if s == nil {
		return nil, fmt.Errorf("history: session is required")
	}
	return &Loader{api: a, session: s}, nil
}

// Load returns the user's past advisories, newest first as ordered by the
// server. Fails with api.ErrAuthRequired while logged out; a nil or empty
// slice with nil error means "no history yet".
func (l *Loader) Load(ctx context.Context) ([]api.HistoryItem, error) {
	if !l.session.Current().LoggedIn() {
		return nil, api.ErrAuthRequired
	}
	items, err := l.api.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("history: load: %w", err)
	}
	return items, nil
}
