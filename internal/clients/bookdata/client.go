package bookdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/yungbote/bookatlas-backend/internal/platform/httpx"
	"github.com/yungbote/bookatlas-backend/internal/platform/logger"
	"github.com/yungbote/bookatlas-backend/internal/utils"
)

const (
	SourceOpenLib = "openlib"
	SourceGoogle  = "google"

	maxResults       = 5
	resultLanguage   = "en"
	requestTimeout   = 10 * time.Second
	maxFetchAttempts = 3
	maxRetryAfter    = 30 * time.Second
)

// Client fetches raw catalog records from the configured external providers.
// One shared limiter paces all outbound calls regardless of source.
type Client struct {
	http         *http.Client
	limiter      *rate.Limiter
	sources      map[string]string
	retryBackoff time.Duration
	log          *logger.Logger
}

func NewClient(baseLog *logger.Logger) *Client {
	log := baseLog.With("service", "BookDataClient")
	sources := map[string]string{
		SourceOpenLib: utils.GetEnv("BOOKDATA_OPENLIB_URL", "https://openlib.bookdata.dev/v1/search", log),
		SourceGoogle:  utils.GetEnv("BOOKDATA_GOOGLE_URL", "https://google.bookdata.dev/v1/search", log),
	}
	rps := utils.GetEnvAsInt("BOOKDATA_RATE_LIMIT_RPS", 2, log)
	backoffMs := utils.GetEnvAsInt("BOOKDATA_RETRY_BACKOFF_MS", 2000, log)
	return &Client{
		http:         &http.Client{Timeout: requestTimeout},
		limiter:      rate.NewLimiter(rate.Limit(rps), 1),
		sources:      sources,
		retryBackoff: time.Duration(backoffMs) * time.Millisecond,
		log:          log,
	}
}

// Sources returns the configured source names in a stable order.
func (c *Client) Sources() []string {
	return []string{SourceOpenLib, SourceGoogle}
}

// ErrNoData marks a well-formed 200 whose data envelope is missing or empty.
// Not retryable: the provider answered, it just had nothing to say.
var ErrNoData = errors.New("bookdata: response carried no data")

// statusError keeps the HTTP status available for retry classification.
type statusError struct {
	source string
	field  string
	code   int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("bookdata: %s/%s returned status %d", e.source, e.field, e.code)
}

func (e *statusError) HTTPStatusCode() int { return e.code }

// Fetch issues one provider call for a (source, field) pair, retrying
// transient failures. A 200 whose "data" key is missing or an empty object
// fails with ErrNoData; the caller decides whether any failure aborts
// anything.
func (c *Client) Fetch(ctx context.Context, source, field, query string) (*Payload, error) {
	base, ok := c.sources[source]
	if !ok {
		return nil, fmt.Errorf("bookdata: unknown source %q", source)
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("bookdata: bad base URL for %s: %w", source, err)
	}
	q := u.Query()
	q.Set(field, query)
	q.Set("max_results", fmt.Sprintf("%d", maxResults))
	q.Set("language", resultLanguage)
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("bookdata: rate limiter: %w", err)
		}

		payload, retryAfter, err := c.doFetch(ctx, source, field, u.String())
		if err == nil {
			return payload, nil
		}
		lastErr = err
		if !httpx.IsRetryableError(err) || attempt == maxFetchAttempts {
			break
		}
		c.log.Warn("Provider call failed, retrying",
			"source", source, "field", field, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryAfter):
		}
	}
	return nil, lastErr
}

func (c *Client) doFetch(ctx context.Context, source, field, reqURL string) (*Payload, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("bookdata: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, c.retryBackoff, fmt.Errorf("bookdata: %s/%s request: %w", source, field, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		io.Copy(io.Discard, res.Body)
		retryAfter := httpx.RetryAfterDuration(res, c.retryBackoff, maxRetryAfter)
		return nil, retryAfter, &statusError{source: source, field: field, code: res.StatusCode}
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return nil, 0, fmt.Errorf("bookdata: %s/%s decode: %w", source, field, err)
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte("{}")) {
		return nil, 0, fmt.Errorf("bookdata: %s/%s: %w", source, field, ErrNoData)
	}
	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, 0, fmt.Errorf("bookdata: %s/%s decode data: %w", source, field, err)
	}
	return &payload, 0, nil
}
