package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// captureServer records requests so assertions run on the test
// goroutine, not inside the handler.
type captureServer struct {
	mu       sync.Mutex
	requests []capturedRequest
	status   func(hit int) int
}

type capturedRequest struct {
	method      string
	contentType string
	auth        string
	body        []byte
}

func newCaptureServer(t *testing.T, status func(hit int) int) (*captureServer, *httptest.Server) {
	t.Helper()
	cs := &captureServer{status: status}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		cs.mu.Lock()
		cs.requests = append(cs.requests, capturedRequest{
			method:      r.Method,
			contentType: r.Header.Get("Content-Type"),
			auth:        r.Header.Get("Authorization"),
			body:        body,
		})
		hit := len(cs.requests)
		cs.mu.Unlock()
		w.WriteHeader(cs.status(hit))
	}))
	t.Cleanup(srv.Close)
	return cs, srv
}

func (cs *captureServer) hits() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.requests)
}

func (cs *captureServer) request(i int) capturedRequest {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.requests[i]
}

func TestWebhookPostsJSON(t *testing.T) {
	cs, srv := newCaptureServer(t, func(int) int { return http.StatusOK })

	w := NewWebhook(srv.URL, WithHeader("Authorization", "Bearer hook-token"))
	err := w.Post(context.Background(), Event{
		Kind:         KindGameFinished,
		Text:         "Game 3: greedy wins 41-23",
		TournamentID: "t1",
		GameID:       "g3",
		Round:        3,
	})
	require.NoError(t, err)
	require.Equal(t, 1, cs.hits())

	req := cs.request(0)
	require.Equal(t, http.MethodPost, req.method)
	require.Equal(t, "application/json", req.contentType)
	require.Equal(t, "Bearer hook-token", req.auth)

	var got Event
	require.NoError(t, json.Unmarshal(req.body, &got))
	require.Equal(t, KindGameFinished, got.Kind)
	require.Equal(t, "g3", got.GameID)
	require.Equal(t, 3, got.Round)
	require.Contains(t, got.Text, "greedy wins")
}

func TestWebhookRetriesServerErrors(t *testing.T) {
	cs, srv := newCaptureServer(t, func(hit int) int {
		if hit < 3 {
			return http.StatusServiceUnavailable
		}
		return http.StatusOK
	})

	w := NewWebhook(srv.URL, WithRetry(3))
	require.NoError(t, w.Post(context.Background(), Event{Kind: KindTournamentStarted}))
	require.Equal(t, 3, cs.hits())
}

func TestWebhookGivesUpAfterRetries(t *testing.T) {
	cs, srv := newCaptureServer(t, func(int) int { return http.StatusInternalServerError })

	w := NewWebhook(srv.URL, WithRetry(2))
	err := w.Post(context.Background(), Event{Kind: KindTournamentStarted})
	require.ErrorContains(t, err, "status=500")
	require.Equal(t, 2, cs.hits())
}

func TestWebhookDoesNotRetryClientErrors(t *testing.T) {
	cs, srv := newCaptureServer(t, func(int) int { return http.StatusBadRequest })

	w := NewWebhook(srv.URL, WithRetry(3))
	err := w.Post(context.Background(), Event{Kind: KindTournamentStarted})
	require.ErrorContains(t, err, "status=400")
	require.Equal(t, 1, cs.hits())
}

func TestWebhookHonorsContext(t *testing.T) {
	cs, srv := newCaptureServer(t, func(int) int { return http.StatusOK })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewWebhook(srv.URL).Post(ctx, Event{Kind: KindTournamentStarted})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, cs.hits())
}

type stubSink struct {
	calls int
	err   error
}

func (s *stubSink) Post(context.Context, Event) error {
	s.calls++
	return s.err
}

func TestCombineFansOut(t *testing.T) {
	broken := &stubSink{err: errors.New("sink down")}
	healthy := &stubSink{}

	n := Combine(nil, broken, healthy)
	err := n.Post(context.Background(), Event{Kind: KindGameFinished})
	require.ErrorContains(t, err, "sink down")
	require.Equal(t, 1, broken.calls)
	require.Equal(t, 1, healthy.calls)
}

func TestCombineDegenerateCases(t *testing.T) {
	require.NoError(t, Combine().Post(context.Background(), Event{}))
	require.NoError(t, Combine(nil, nil).Post(context.Background(), Event{}))

	single := &stubSink{}
	require.Equal(t, Notifier(single), Combine(single))
}
