package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AtashM95/tradebot/pkg/config"
	xhttp "github.com/AtashM95/tradebot/pkg/http"
	applogger "github.com/AtashM95/tradebot/pkg/logger"
	"github.com/AtashM95/tradebot/pkg/resilience"
)

// HTTPServiceBase is the shared foundation for remote analytics clients:
// JSON POSTs with retry on transient failures behind one circuit breaker.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
}

// NewHTTPServiceBase builds an HTTP client with timeout and base URL from config.
func NewHTTPServiceBase(cfg *config.Config, l *applogger.Logger, opts ...xhttp.ClientOption) *HTTPServiceBase {
	timeout := cfg.Analytics.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	opts = append([]xhttp.ClientOption{xhttp.WithTimeout(timeout)}, opts...)
	return &HTTPServiceBase{
		baseURL: cfg.Analytics.URL,
		client:  xhttp.NewClient(opts...),
		retry:   cfg.Analytics.Retry,
		breaker: resilience.NewBreaker("analytics", cfg.Analytics.Breaker, l),
	}
}

// PostJSON posts payload to path under baseURL and decodes JSON into dest.
// 4xx responses other than 429 are not retried.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("analytics http client not initialized")
	}
	return b.breaker.Execute(func() error {
		return resilience.Retry(ctx, b.retry, func(ctx context.Context) error {
			err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
				Method: xhttp.MethodPost,
				URL:    b.baseURL + path,
				Body:   payload,
			}, dest)
			var se *xhttp.StatusError
			if errors.As(err, &se) && !se.Temporary() {
				return resilience.Permanent(fmt.Errorf("post %s: %w", path, err))
			}
			if err != nil {
				return fmt.Errorf("post %s: %w", path, err)
			}
			return nil
		})
	})
}
