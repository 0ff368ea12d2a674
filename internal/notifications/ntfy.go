package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	userAgent             = "Overlay-Go/0.1.0"
	defaultRequestTimeout = 10 * time.Second
	// ntfyRepeatInterval is the minimum spacing between pushes of the same
	// error type. A renderer failing on every keystroke must not page the
	// user each time.
	ntfyRepeatInterval = 5 * time.Minute
)

type ntfyReporter struct {
	endpoint string
	client   *http.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newNtfyReporter(endpoint string, timeout time.Duration) *ntfyReporter {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &ntfyReporter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		limiters: make(map[string]*rate.Limiter),
	}
}

func (n *ntfyReporter) allow(errorType string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	limiter, ok := n.limiters[errorType]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(ntfyRepeatInterval), 1)
		n.limiters[errorType] = limiter
	}
	return limiter.Allow()
}

func (n *ntfyReporter) ReportRendererError(ctx context.Context, errorType string) error {
	if !n.allow(errorType) {
		return nil
	}
	title, message := describe(errorType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", title)
	req.Header.Set("Tags", strings.Join([]string{"overlay", "renderer", errorType}, ","))
	req.Header.Set("Priority", "high")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
