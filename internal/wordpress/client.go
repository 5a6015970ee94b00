package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Resource paths of the wp/v2 collections the migration reads.
const (
	PathCategories = "/wp-json/wp/v2/categories"
	PathTags       = "/wp-json/wp/v2/tags"
	PathMedia      = "/wp-json/wp/v2/media"
	PathPages      = "/wp-json/wp/v2/pages"
	PathPosts      = "/wp-json/wp/v2/posts"
)

// invalidPageCode is the error code WordPress answers with (alongside a 400)
// when a page number past the last page is requested.
const invalidPageCode = "rest_post_invalid_page_number"

// RequestError is a non-success response from the WordPress API.
type RequestError struct {
	StatusCode int
	Code       string // machine-readable "code" from the JSON error body, if any
	URL        string
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("wordpress request failed (%d) %s %s: %s", e.StatusCode, e.Code, e.URL, e.Body)
}

// EndOfPages reports whether the error is WordPress saying the requested page
// is beyond the last one.
func (e *RequestError) EndOfPages() bool {
	return e.StatusCode == http.StatusBadRequest && e.Code == invalidPageCode
}

// isEndOfPages reports whether err, or any error it wraps, is the
// out-of-range page answer.
func isEndOfPages(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.EndOfPages()
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	PerPage           int
	RequestsPerSecond float64 // <= 0 means unthrottled
	Timeout           time.Duration
	HTTPClient        *http.Client // optional; overrides Timeout
}

// Client reads collections from a WordPress site one page at a time.
type Client struct {
	baseURL *url.URL
	perPage int
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Client for the site at opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %q", opts.BaseURL)
	}

	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = 100
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
		baseURL: base,
		perPage: perPage,
		http:    httpClient,
		limiter: limiter,
	}, nil
}

// pageURL builds the URL of one page of a collection.
func (c *Client) pageURL(path string, page int, embed bool) string {
	u := c.baseURL.ResolveReference(&url.URL{Path: path})
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(c.perPage))
	q.Set("page", strconv.Itoa(page))
	if embed {
		q.Set("_embed", "1")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// getJSON performs a GET and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Code string `json:"code"`
		}
		// Error bodies are JSON on a healthy site; anything else just has no code.
		_ = json.Unmarshal(body, &payload)
		return &RequestError{
			StatusCode: resp.StatusCode,
			Code:       payload.Code,
			URL:        rawURL,
			Body:       string(body),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", rawURL, err)
	}
	return nil
}

// FetchPaged reads every item of the collection at path, requesting pages
// 1, 2, ... until WordPress reports the page is out of range or returns an
// empty page. Both are normal termination. When embed is true related
// objects (author, featured media, terms) are requested inline.
func FetchPaged[T any](ctx context.Context, c *Client, path string, embed bool) ([]T, error) {
	var items []T
	for page := 1; ; page++ {
		var batch []T
		err := c.getJSON(ctx, c.pageURL(path, page, embed), &batch)
		if err != nil {
			if isEndOfPages(err) {
				break
			}
			return nil, fmt.Errorf("fetching %s page %d: %w", path, page, err)
		}
		if len(batch) == 0 {
			break
		}
		items = append(items, batch...)
	}
	return items, nil
}

// FetchAll reads categories, tags, media, pages and posts, in that order.
// Pages and posts are fetched with embedded relations.
func (c *Client) FetchAll(ctx context.Context) (*Snapshot, error) {
	categories, err := FetchPaged[Term](ctx, c, PathCategories, false)
	if err != nil {
		return nil, fmt.Errorf("fetching categories: %w", err)
	}
	tags, err := FetchPaged[Term](ctx, c, PathTags, false)
	if err != nil {
		return nil, fmt.Errorf("fetching tags: %w", err)
	}
	media, err := c.FetchMedia(ctx)
	if err != nil {
		return nil, err
	}
	pages, err := FetchPaged[Page](ctx, c, PathPages, true)
	if err != nil {
		return nil, fmt.Errorf("fetching pages: %w", err)
	}
	posts, err := FetchPaged[Post](ctx, c, PathPosts, true)
	if err != nil {
		return nil, fmt.Errorf("fetching posts: %w", err)
	}

	return &Snapshot{
		Categories: categories,
		Tags:       tags,
		Media:      media,
		Pages:      pages,
		Posts:      posts,
	}, nil
}

// FetchMedia reads the whole media library.
func (c *Client) FetchMedia(ctx context.Context) ([]Media, error) {
	media, err := FetchPaged[Media](ctx, c, PathMedia, false)
	if err != nil {
		return nil, fmt.Errorf("fetching media: %w", err)
	}
	return media, nil
}
