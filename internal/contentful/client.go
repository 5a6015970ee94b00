// Package contentful is a small client for the Contentful Content Management
// API covering the entries, assets and content types a migration writes.
package contentful

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultAPIURL is the public management API host.
const DefaultAPIURL = "https://api.contentful.com"

const (
	mediaType     = "application/vnd.contentful.management.v1+json"
	versionHeader = "X-Contentful-Version"
	typeHeader    = "X-Contentful-Content-Type"
)

// Options configures a Client.
type Options struct {
	APIURL            string // defaults to DefaultAPIURL
	SpaceID           string
	Environment       string
	Token             string
	Locale            string
	RequestsPerSecond float64 // <= 0 means unthrottled
	Timeout           time.Duration
	HTTPClient        *http.Client
}

// Client talks to one space/environment of the management API. Requests are
// issued one at a time by the caller; the limiter only spaces them out.
type Client struct {
	baseURL string
	token   string
	locale  string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Client scoped to opts.SpaceID and opts.Environment.
func NewClient(opts Options) (*Client, error) {
	if opts.SpaceID == "" {
		return nil, fmt.Errorf("space id is required")
	}
	if opts.Token == "" {
		return nil, fmt.Errorf("management token is required")
	}

	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	env := opts.Environment
	if env == "" {
		env = "master"
	}
	locale := opts.Locale
	if locale == "" {
		locale = "en-US"
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL: fmt.Sprintf("%s/spaces/%s/environments/%s", strings.TrimRight(apiURL, "/"), opts.SpaceID, env),
		token:   opts.Token,
		locale:  locale,
		http:    httpClient,
		limiter: limiter,
	}, nil
}

// Locale returns the locale field values are written under.
func (c *Client) Locale() string {
	return c.locale
}

// request is one call to the management API.
type request struct {
	method  string
	path    string
	body    any
	version int // sent as X-Contentful-Version when > 0
	headers map[string]string
}

// result is a successful response. version is 0 when neither the response
// header nor the body carried one.
type result struct {
	body    []byte
	version int
}

// decode unmarshals the response body into out.
func (r *result) decode(out any) error {
	if len(r.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// versionOr returns the observed version, or fallback if none was returned.
func (r *result) versionOr(fallback int) int {
	if r.version > 0 {
		return r.version
	}
	return fallback
}

func (c *Client) do(ctx context.Context, req request) (*result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Content-Type", mediaType)
	if req.version > 0 {
		httpReq.Header.Set(versionHeader, strconv.Itoa(req.version))
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode == http.StatusConflict {
		return nil, &VersionConflictError{
			Method:  req.method,
			Path:    req.path,
			Version: req.version,
			Body:    string(data),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestFailedError{
			Method:     req.method,
			Path:       req.path,
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	res := &result{body: data}
	if v := resp.Header.Get(versionHeader); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			res.version = n
		}
	}
	if res.version == 0 && len(data) > 0 {
		var probe struct {
			Sys struct {
				Version int `json:"version"`
			} `json:"sys"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, fmt.Errorf("decoding response from %s %s: %w", req.method, req.path, err)
		}
		res.version = probe.Sys.Version
	}
	return res, nil
}

// GetVersion returns the current version of the resource, or false if it
// does not exist.
func (c *Client) GetVersion(ctx context.Context, res Resource, id string) (int, bool, error) {
	r, err := c.do(ctx, request{method: http.MethodGet, path: fmt.Sprintf("/%s/%s", res, id)})
	if err != nil {
		if IsNotFound(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return r.version, true, nil
}
