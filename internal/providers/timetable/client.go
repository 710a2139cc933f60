package timetable

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"schedbot/internal/domain"
	"schedbot/internal/infra"
)

// Options configures the timetable client.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	CacheTTL       time.Duration
	RequestTimeout time.Duration
}

// Client fetches and parses the university timetable pages. Responses are
// cached per (query, mode, date) so retries and overlapping subscriptions do
// not hammer the upstream.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
	cacheTTL   time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry

	now func() time.Time
}

type cacheEntry struct {
	day     *domain.ScheduleDay
	expires time.Time
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 12 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://kis.vgltu.ru/schedule"
	}
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		cacheTTL:   cacheTTL,
		cache:      make(map[string]cacheEntry),
		now:        time.Now,
	}
}

// FetchDay returns the timetable for one date. A published page with no
// lessons yields an empty day, not an error; a permanent FetchError means the
// upstream rejected the query itself.
func (c *Client) FetchDay(ctx context.Context, query string, mode domain.Mode, date time.Time) (*domain.ScheduleDay, error) {
	dateStr := date.Format("2006-01-02")
	key := string(mode) + "|" + query + "|" + dateStr

	c.mu.Lock()
	if entry, ok := c.cache[key]; ok && c.now().Before(entry.expires) {
		c.mu.Unlock()
		day := *entry.day
		return &day, nil
	}
	c.mu.Unlock()

	endpoint, err := c.buildURL(query, mode, dateStr)
	if err != nil {
		return nil, &domain.FetchError{Permanent: true, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &domain.FetchError{Permanent: true, Err: fmt.Errorf("timetable: build request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.FetchError{Err: fmt.Errorf("timetable: http request: %w", err)}
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	day, err := parseScheduleDay(resp.Body, mode, date)
	if err != nil {
		return nil, &domain.FetchError{Err: fmt.Errorf("timetable: parse response: %w", err)}
	}

	c.logger.Debug().
		Str("query", query).
		Str("mode", string(mode)).
		Str("date", dateStr).
		Int("lessons", len(day.Lessons)).
		Msg("timetable: fetched day")

	c.mu.Lock()
	c.cache[key] = cacheEntry{day: day, expires: c.now().Add(c.cacheTTL)}
	c.mu.Unlock()

	out := *day
	return &out, nil
}

func (c *Client) buildURL(query string, mode domain.Mode, dateStr string) (string, error) {
	values := url.Values{}
	values.Set("date", dateStr)
	switch mode {
	case domain.ModeGroup:
		values.Set("group", query)
	case domain.ModeTeacher:
		values.Set("teacher", query)
	default:
		return "", fmt.Errorf("timetable: unknown mode %q", mode)
	}
	return c.baseURL + "?" + values.Encode(), nil
}

func classifyStatus(code int) error {
	switch {
	case code < 300:
		return nil
	case code == http.StatusNotFound || code == http.StatusGone:
		return &domain.FetchError{Permanent: true, Err: fmt.Errorf("timetable: status %d", code)}
	case code == http.StatusTooManyRequests || code == http.StatusRequestTimeout:
		return &domain.FetchError{Err: fmt.Errorf("timetable: status %d", code)}
	case code >= 500:
		return &domain.FetchError{Err: fmt.Errorf("timetable: status %d", code)}
	default:
		return &domain.FetchError{Permanent: true, Err: fmt.Errorf("timetable: status %d", code)}
	}
}
