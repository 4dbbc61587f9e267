package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotify_OK(t *testing.T) {
	var got Event
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	n := NewWebhookNotifier(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := n.Notify(ctx, Event{Kind: EventPointsCredited, AccountID: 7, Delta: 1, Balance: 3})
	require.NoError(t, err)
	assert.Equal(t, EventPointsCredited, got.Kind)
	assert.Equal(t, int64(7), got.AccountID)
	assert.Equal(t, int64(3), got.Balance)
}

func TestWebhookNotify_TooManyRequests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	n := NewWebhookNotifier(ts.URL)

	err := n.Notify(context.Background(), Event{Kind: EventRedemptionConfirmed, AccountID: 1})
	var throttled *ThrottledError
	require.True(t, errors.As(err, &throttled), "expected ThrottledError, got %v", err)
	assert.Equal(t, 5*time.Second, throttled.RetryAfter)
}

func TestWebhookNotify_UnexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	n := NewWebhookNotifier(ts.URL)

	err := n.Notify(context.Background(), Event{Kind: EventPointsCredited, AccountID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNewWebhookNotifier_AddsScheme(t *testing.T) {
	n := NewWebhookNotifier("push.local:9000/hooks/")
	assert.Equal(t, "http://push.local:9000/hooks", n.url)
}
