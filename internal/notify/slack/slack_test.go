package slack

import (
	"errors"
	"sync"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/cropsathi/sathi/internal/notify"
)

// mockClient implements slackClient for testing.
type mockClient struct {
	mu          sync.Mutex
	authErr     error
	postErrs    []error // consumed in order; nil entries mean success
	postCalls   int
	lastChannel string
}

func (m *mockClient) AuthTest() (*slackapi.AuthTestResponse, error) {
	if m.authErr != nil {
		return nil, m.authErr
	}
	return &slackapi.AuthTestResponse{UserID: "U123"}, nil
}

func (m *mockClient) PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.postCalls++
	m.lastChannel = channelID
	if len(m.postErrs) > 0 {
		err := m.postErrs[0]
		m.postErrs = m.postErrs[1:]
		if err != nil {
			return "", "", err
		}
	}
	return channelID, "1234567890.123456", nil
}

func newConnectedAdapter(t *testing.T, client *mockClient) *Adapter {
	t.Helper()
	a, err := New(AdapterOpts{Client: client, ChannelID: "C123"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return a
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(AdapterOpts{ChannelID: "C123"}); err == nil {
		t.Error("expected error for missing bot token")
	}
	if _, err := New(AdapterOpts{BotToken: "xoxb-test"}); err == nil {
		t.Error("expected error for missing channel id")
	}
}

func TestConnect_AuthFailure(t *testing.T) {
	a, err := New(AdapterOpts{Client: &mockClient{authErr: errors.New("invalid_auth")}, ChannelID: "C123"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Connect(); err == nil {
		t.Fatal("Connect = nil, want error")
	}
}

func TestSend_RequiresConnect(t *testing.T) {
	a, err := New(AdapterOpts{Client: &mockClient{}, ChannelID: "C123"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Send(notify.Message{Title: "test"}); err == nil {
		t.Fatal("Send before Connect = nil, want error")
	}
}

func TestSend_PostsToConfiguredChannel(t *testing.T) {
	client := &mockClient{}
	a := newConnectedAdapter(t, client)

	msg := notify.Message{
		Title: "Crop Sathi Daily Digest",
		Body:  "**Advisories**: 1 received",
		Color: "#2a9d8f",
		Fields: []notify.Field{
			{Name: "Advisories", Value: "1", Short: true},
		},
	}
	if err := a.Send(msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if client.postCalls != 1 {
		t.Errorf("postCalls = %d, want 1", client.postCalls)
	}
	if client.lastChannel != "C123" {
		t.Errorf("channel = %q, want %q", client.lastChannel, "C123")
	}
}

func TestSend_RetriesOnRateLimit(t *testing.T) {
	client := &mockClient{
		postErrs: []error{
			&slackapi.RateLimitedError{RetryAfter: time.Millisecond},
			nil,
		},
	}
	a := newConnectedAdapter(t, client)

	if err := a.Send(notify.Message{Title: "test"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if client.postCalls != 2 {
		t.Errorf("postCalls = %d, want 2 (one retry)", client.postCalls)
	}
}

func TestSend_NonRateLimitErrorNotRetried(t *testing.T) {
	client := &mockClient{
		postErrs: []error{errors.New("channel_not_found")},
	}
	a := newConnectedAdapter(t, client)

	if err := a.Send(notify.Message{Title: "test"}); err == nil {
		t.Fatal("Send = nil, want error")
	}
	if client.postCalls != 1 {
		t.Errorf("postCalls = %d, want 1 (no retry)", client.postCalls)
	}
}

func TestClose_ThenConnectFails(t *testing.T) {
	a := newConnectedAdapter(t, &mockClient{})
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Connect(); err == nil {
		t.Fatal("Connect after Close = nil, want error")
	}
}
