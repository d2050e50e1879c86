package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// Webhook posts events as JSON to a single URL. Transient failures
// (network errors, 5xx) are retried with exponential backoff; other
// statuses fail immediately.
type Webhook struct {
	url  string
	http *fasthttp.Client

	timeout  time.Duration
	retryMax int
	headers  map[string]string
}

type Option func(*Webhook)

func WithTimeout(d time.Duration) Option {
	return func(w *Webhook) { w.timeout = d }
}

func WithRetry(max int) Option {
	return func(w *Webhook) { w.retryMax = max }
}

// WithHeader adds a header to every request, for bearer tokens and the
// like.
func WithHeader(key, value string) Option {
	return func(w *Webhook) {
		if strings.TrimSpace(key) == "" || strings.TrimSpace(value) == "" {
			return
		}
		w.headers[key] = value
	}
}

func NewWebhook(url string, opts ...Option) *Webhook {
	w := &Webhook{
		url:      strings.TrimSpace(url),
		http:     &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 8},
		timeout:  5 * time.Second,
		retryMax: 3,
		headers:  map[string]string{},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.retryMax <= 0 {
		w.retryMax = 1
	}
	return w
}

func (w *Webhook) Post(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(w.url)
	req.Header.SetContentType("application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}
	req.SetBody(payload)

	var lastErr error
	for attempt := 1; attempt <= w.retryMax; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := w.http.DoDeadline(req, resp, w.deadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("post webhook: %w", err)
		} else {
			status := resp.StatusCode()
			if status >= 200 && status < 300 {
				return nil
			}
			lastErr = fmt.Errorf("webhook status=%d body=%s", status, truncate(string(resp.Body()), 512))
			if !retryableStatus(status) {
				return lastErr
			}
		}
		if attempt == w.retryMax {
			return lastErr
		}
		if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
			return lastErr
		}
	}
	return lastErr
}

// deadline caps each attempt at the per-request timeout or the
// context deadline, whichever comes first.
func (w *Webhook) deadline(ctx context.Context) time.Time {
	attempt := time.Now().Add(w.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(attempt) {
		return dl
	}
	return attempt
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 100ms, 200ms ...
}

func retryableStatus(code int) bool {
	switch code {
	case fasthttp.StatusInternalServerError,
		fasthttp.StatusBadGateway,
		fasthttp.StatusServiceUnavailable,
		fasthttp.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
