package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/maheshrc27/postflow/internal/models"
	"golang.org/x/time/rate"
)

// platformClient is the HTTP plumbing shared by the publishers: outbound rate
// limiting, error envelope decoding and retries for idempotent GETs.
type platformClient struct {
	platform     models.Platform
	httpClient   *http.Client
	limiter      *rate.Limiter
	getRetry     retrypolicy.RetryPolicy[[]byte]
	errorMessage func(body []byte) string
}

func newPlatformClient(platform models.Platform, httpClient *http.Client, requestsPerMinute int, errorMessage func([]byte) string) *platformClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}

	return &platformClient{
		platform:     platform,
		httpClient:   httpClient,
		limiter:      rate.NewLimiter(limit, 1),
		getRetry:     newGetRetryPolicy(),
		errorMessage: errorMessage,
	}
}

// newGetRetryPolicy retries reads on network errors, 5xx and 429. Writes are
// never retried here since a repeated POST could publish twice.
func newGetRetryPolicy() retrypolicy.RetryPolicy[[]byte] {
	return retrypolicy.NewBuilder[[]byte]().
		WithBackoff(200*time.Millisecond, 2*time.Second).
		WithMaxRetries(2).
		WithJitterFactor(0.1).
		HandleIf(func(_ []byte, err error) bool {
			return isRetryableReadError(err)
		}).
		Build()
}

func isRetryableReadError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var perr *PlatformError
	if errors.As(err, &perr) {
		return perr.StatusCode >= 500 || perr.StatusCode == http.StatusTooManyRequests
	}
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

func (c *platformClient) postJSON(ctx context.Context, hc *http.Client, endpoint string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.send(hc, req, out)
}

func (c *platformClient) postForm(ctx context.Context, hc *http.Client, endpoint string, data url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.send(hc, req, out)
}

// getJSON fetches a platform resource, retrying transient failures.
func (c *platformClient) getJSON(ctx context.Context, hc *http.Client, endpoint string, out any) error {
	body, err := failsafe.With(c.getRetry).WithContext(ctx).Get(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("error creating request: %w", err)
		}
		return c.do(hc, req, true)
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error parsing %s response: %w", c.platform, err)
	}
	return nil
}

// download reads a stored asset. It does not count against the platform rate limit.
func (c *platformClient) download(ctx context.Context, assetURL string) ([]byte, error) {
	return failsafe.With(c.getRetry).WithContext(ctx).Get(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
		if err != nil {
			return nil, fmt.Errorf("error creating request: %w", err)
		}
		return c.do(c.httpClient, req, false)
	})
}

func (c *platformClient) send(hc *http.Client, req *http.Request, out any) error {
	body, err := c.do(hc, req, true)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error parsing %s response: %w", c.platform, err)
	}
	return nil
}

func (c *platformClient) do(hc *http.Client, req *http.Request, limited bool) ([]byte, error) {
	if hc == nil {
		hc = c.httpClient
	}
	if limited {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s HTTP request error: %w", c.platform, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading %s response body: %w", c.platform, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := &PlatformError{Platform: c.platform, StatusCode: resp.StatusCode}
		if c.errorMessage != nil && len(body) > 0 {
			perr.Message = c.errorMessage(body)
		}
		return nil, perr
	}
	return body, nil
}
