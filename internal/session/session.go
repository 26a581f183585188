// Package session maintains the logged-in/logged-out state of the client
// and keeps it consistent with the persisted token. Every state transition
// notifies subscribers so dependent surfaces can re-render.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/cropsathi/sathi/internal/api"
)

// authAPI abstracts the backend calls the store needs, enabling test mocks.
type authAPI interface {
	PasswordToken(ctx context.Context, phone, password string) (string, error)
	CurrentUser(ctx context.Context) (*api.User, error)
	CreateUser(ctx context.Context, name, phone, password string) (*api.User, error)
}

// Session is the current authentication state. Token is set iff User is
// set; the store never exposes a half-built session.
type Session struct {
	Token string
	User  *api.User
}

// LoggedIn reports whether a validated session is active.
func (s Session) LoggedIn() bool { return s.Token != "" }

// Store owns the Session. It validates persisted tokens at startup,
// performs login/registration/logout, and implements api.TokenProvider so
// the API client always sees the token of the session being established.
type Store struct {
	api    authAPI
	tokens TokenStore

	mu     sync.Mutex
	cur    Session
	staged string // token under validation, visible to Token() before commit
	subs   []func(Session)
}

// Opts holds parameters for creating a Store.
type Opts struct {
	API    authAPI
	Tokens TokenStore
}

// New creates a Store.
func New(opts Opts) (*Store, error) {
	if opts.API == nil {
		return nil, fmt.Errorf("session: api is required")
	}
	if opts.Tokens == nil {
		return nil, fmt.Errorf("session: token store is required")
	}
	return &Store{api: opts.API, tokens: opts.Tokens}, nil
}

// Token implements api.TokenProvider. During login or restore the staged
// token takes precedence so the profile fetch authenticates with the token
// being validated.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staged != "" {
		return s.staged
	}
	return s.cur.Token
}

// Current returns the session as of now.
func (s *Store) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Subscribe registers fn to be called after every session transition.
func (s *Store) Subscribe(fn func(Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Restore reads the persisted token and validates it against the profile
// endpoint. Validation failure (expired token, network error) clears the
// session and the persisted token without surfacing an error; token expiry
// on startup is expected behavior. Returns the resulting session.
func (s *Store) Restore(ctx context.Context) Session {
	tok, err := s.tokens.Load()
	if err != nil {
		log.Printf("session: load persisted token: %v", err)
	}
	if tok == "" {
		return s.Current()
	}

	user, err := s.validate(ctx, tok)
	if err != nil {
		log.Printf("session: restore failed, logging out: %v", err)
		s.Logout()
		return s.Current()
	}

	if err := s.commit(tok, user); err != nil {
		log.Printf("session: %v", err)
	}
	return s.Current()
}

// Login exchanges credentials for a token, fetches the profile, and
// establishes the session. On any failure the session is left untouched
// and the reason is returned.
func (s *Store) Login(ctx context.Context, phone, password string) error {
	tok, err := s.api.PasswordToken(ctx, phone, password)
	if err != nil {
		return err
	}

	user, err := s.validate(ctx, tok)
	if err != nil {
		return fmt.Errorf("session: fetch profile: %w", err)
	}

	return s.commit(tok, user)
}

// Register creates a user and performs an implicit login with the same
// credentials. When registration succeeds but the login fails, the error
// is surfaced and the created user is not rolled back.
func (s *Store) Register(ctx context.Context, name, phone, password string) error {
	if _, err := s.api.CreateUser(ctx, name, phone, password); err != nil {
		return err
	}
	if err := s.Login(ctx, phone, password); err != nil {
		return fmt.Errorf("session: registered but login failed: %w", err)
	}
	return nil
}

// Logout clears the session and the persisted token unconditionally.
func (s *Store) Logout() {
	s.mu.Lock()
	s.cur = Session{}
	s.staged = ""
	s.mu.Unlock()

	if err := s.tokens.Clear(); err != nil {
		log.Printf("session: %v", err)
	}
	s.notify()
}

// validate fetches the profile for tok. The token is staged so the API
// client authenticates with it; it is unstaged before returning, leaving
// the committed session untouched on failure.
func (s *Store) validate(ctx context.Context, tok string) (*api.User, error) {
	s.mu.Lock()
	s.staged = tok
	s.mu.Unlock()

	user, err := s.api.CurrentUser(ctx)

	s.mu.Lock()
	s.staged = ""
	s.mu.Unlock()
	return user, err
}

// commit sets the session and re-persists the token, then notifies.
func (s *Store) commit(tok string, user *api.User) error {
	s.mu.Lock()
	s.cur = Session{Token: tok, User: user}
	s.mu.Unlock()

	err := s.tokens.Save(tok)
	s.notify()
	if err != nil {
		return fmt.Errorf("session: persist token: %w", err)
	}
	return nil
}

// notify calls subscribers with the current session, outside the lock.
func (s *Store) notify() {
	s.mu.Lock()
	cur := s.cur
	subs := make([]func(Session), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(cur)
	}
}
