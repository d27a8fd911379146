package checker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hazz-dev/depprobe/internal/config"
	"github.com/hazz-dev/depprobe/internal/health"
)

type httpChecker struct {
	url            string
	expectedStatus int
	headers        map[string]string
	client         *http.Client
}

func newHTTPChecker(c config.Check, logger *slog.Logger) health.Probe {
	return NewHTTP(c.Target, c.ExpectedStatus, c.Headers, &http.Client{Timeout: c.Timeout.Duration}, logger)
}

// NewHTTP returns a probe issuing GET url and expecting expectedStatus
// (200 when zero). A 404 that was not expected counts as not found.
func NewHTTP(url string, expectedStatus int, headers map[string]string, client *http.Client, logger *slog.Logger) health.Probe {
	if expectedStatus == 0 {
		expectedStatus = http.StatusOK
	}
	if client == nil {
		client = http.DefaultClient
	}
	hc := &httpChecker{
		url:            url,
		expectedStatus: expectedStatus,
		headers:        headers,
		client:         client,
	}
	return newProbe(url, logger, hc.attempt)
}

func (c *httpChecker) attempt(ctx context.Context) health.Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return health.Failed(fmt.Errorf("creating request: %w", err))
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return health.Failed(err)
	}
	resp.Body.Close()

	if resp.StatusCode == c.expectedStatus {
		return health.Available()
	}
	err = fmt.Errorf("expected status %d, got %d", c.expectedStatus, resp.StatusCode)
	if resp.StatusCode == http.StatusNotFound {
		return health.NotFound(notFoundError{err: err})
	}
	return health.Failed(err)
}
