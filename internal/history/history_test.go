package history

import (
	"context"
	"errors"
	"testing"

	"github.com/cropsathi/sathi/internal/api"
	"github.com/cropsathi/sathi/internal/session"
)

type mockHistoryAPI struct {
	items []api.HistoryItem
	err   error
	calls int
}

func (m *mockHistoryAPI) History(ctx context.Context) ([]api.HistoryItem, error) {
	m.calls++
	return m.items, m.err
}

type fixedSession struct{ sess session.Session }

func (f *fixedSession) Current() session.Session { return f.sess }

func loggedIn() *fixedSession {
	return &fixedSession{sess: session.Session{
		Token: "tok",
		User:  &api.User{Name: "Asha", PhoneNumber: "+919876543210"},
	}}
}

func TestLoad_RequiresAuth(t *testing.T) {
	mock := &mockHistoryAPI{}
	l, err := New(mock, &fixedSession{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = l.Load(context.Background())
	if !errors.Is(err, api.ErrAuthRequired) {
		t.Fatalf("err = %v, want ErrAuthRequired", err)
	}
	if mock.calls != 0 {
		t.Errorf("backend calls = %d, want 0", mock.calls)
	}
}

func TestLoad_PreservesServerOrder(t *testing.T) {
	mock := &mockHistoryAPI{items: []api.HistoryItem{
		{Crop: "wheat", DateSent: "2025-06-02T10:00:00", AdvisoryText: "newest"},
		{Crop: "rice", DateSent: "2025-05-20T09:00:00", AdvisoryText: "older"},
	}}
	l, _ := New(mock, loggedIn())

	items, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(items) != 2 || items[0].AdvisoryText != "newest" || items[1].AdvisoryText != "older" {
		t.Errorf("items = %+v, want server order preserved", items)
	}
}

func TestLoad_EmptyIsNotAnError(t *testing.T) {
	l, _ := New(&mockHistoryAPI{items: []api.HistoryItem{}}, loggedIn())

	items, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v (empty history is a valid state)", err)
	}
	if len(items) != 0 {
		t.Errorf("items = %+v, want empty", items)
	}
}

func TestLoad_FailureIsDistinctFromEmpty(t *testing.T) {
	mock := &mockHistoryAPI{err: &api.RequestError{Status: 500, Message: "boom"}}
	l, _ := New(mock, loggedIn())

	_, err := l.Load(context.Background())
	var rerr *api.RequestError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want *RequestError", err)
	}
}
