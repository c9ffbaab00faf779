package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/barrygee/tileslurp/internal/tile"
)

// Common errors.
var (
	ErrNotFound     = errors.New("http: resource not found")
	ErrForbidden    = errors.New("http: access forbidden")
	ErrUnauthorized = errors.New("http: unauthorized")
	ErrServerError  = errors.New("http: server error")
	ErrTooLarge     = errors.New("http: response body too large")
	ErrEmptyBody    = errors.New("http: empty response body")
)

// DefaultUserAgent identifies tileslurp to tile servers.
const DefaultUserAgent = "Mozilla/5.0 (compatible; map-tile-downloader/1.0)"

// Options configures the HTTP client.
type Options struct {
	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 16
	MaxIdleConnsPerHost int

	// Timeout bounds each request, including reading the body.
	// Default: 15s
	Timeout time.Duration

	// UserAgent is sent with every request.
	// Default: DefaultUserAgent
	UserAgent string

	// MaxBodySize caps the number of bytes read from a response.
	// Default: 16MiB
	MaxBodySize int64
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxIdleConnsPerHost: 16,
		Timeout:             15 * time.Second,
		UserAgent:           DefaultUserAgent,
		MaxBodySize:         16 << 20,
	}
}

// FetchError describes a failed GET. Kind says which stage failed.
type FetchError struct {
	URL        string
	Kind       tile.FailureKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("get %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Client performs single-attempt GET requests.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a new HTTP client with the given options. Zero fields
// take their defaults.
func NewClient(opts Options) *Client {
	def := DefaultOptions()
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = def.MaxIdleConnsPerHost
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = def.MaxBodySize
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		opts: opts,
	}
}

// Get fetches url and returns the full response body. Any transport error,
// timeout, non-2xx status or body read error is returned as a *FetchError.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Kind: tile.KindTransport, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Kind: classify(err), Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatusCode(resp.StatusCode); err != nil {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return nil, &FetchError{URL: url, Kind: tile.KindStatus, StatusCode: resp.StatusCode, Err: err}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodySize+1))
	if err != nil {
		kind := tile.KindRead
		if classify(err) == tile.KindTimeout {
			kind = tile.KindTimeout
		}
		return nil, &FetchError{URL: url, Kind: kind, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(data)) > c.opts.MaxBodySize {
		return nil, &FetchError{URL: url, Kind: tile.KindRead, StatusCode: resp.StatusCode, Err: ErrTooLarge}
	}
	if len(data) == 0 {
		return nil, &FetchError{URL: url, Kind: tile.KindEmpty, StatusCode: resp.StatusCode, Err: ErrEmptyBody}
	}

	return data, nil
}

// TileFetcher fetches tiles by expanding a URL template.
type TileFetcher struct {
	Client   *Client
	Template string
}

// NewTileFetcher returns a fetcher for template (see tile.URL).
func NewTileFetcher(client *Client, template string) *TileFetcher {
	return &TileFetcher{Client: client, Template: template}
}

// Fetch downloads the tile at a.
func (f *TileFetcher) Fetch(ctx context.Context, a tile.Address) ([]byte, error) {
	return f.Client.Get(ctx, tile.URL(f.Template, a))
}

// classify maps a transport error to a failure kind.
func classify(err error) tile.FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return tile.KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return tile.KindTimeout
	}
	return tile.KindTransport
}

// checkStatusCode returns an appropriate error for non-success status codes.
func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code >= 500:
		return fmt.Errorf("%w: %d %s", ErrServerError, code, http.StatusText(code))
	default:
		return fmt.Errorf("unexpected status code: %d", code)
	}
}
