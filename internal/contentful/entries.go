package contentful

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// listPageSize is the largest page the entries endpoint accepts.
const listPageSize = 1000

type entryCollection struct {
	Total int     `json:"total"`
	Skip  int     `json:"skip"`
	Limit int     `json:"limit"`
	Items []Entry `json:"items"`
}

// FindEntryByField returns the first entry of contentType whose field equals
// value, or nil if there is none.
func (c *Client) FindEntryByField(ctx context.Context, contentType, field, value string) (*Ref, error) {
	q := url.Values{}
	q.Set("content_type", contentType)
	q.Set("limit", "1")
	q.Set("fields."+field, value)

	r, err := c.do(ctx, request{method: http.MethodGet, path: "/entries?" + q.Encode()})
	if err != nil {
		return nil, fmt.Errorf("finding %s by %s: %w", contentType, field, err)
	}

	var coll entryCollection
	if err := r.decode(&coll); err != nil {
		return nil, err
	}
	if len(coll.Items) == 0 || coll.Items[0].Sys.ID == "" {
		return nil, nil
	}
	item := coll.Items[0]
	version := item.Sys.Version
	if version == 0 {
		version = 1
	}
	return &Ref{ID: item.Sys.ID, Version: version}, nil
}

// CreateEntry creates an unpublished entry of contentType.
func (c *Client) CreateEntry(ctx context.Context, contentType string, fields Fields) (Ref, error) {
	r, err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/entries",
		body:    map[string]any{"fields": fields},
		headers: map[string]string{typeHeader: contentType},
	})
	if err != nil {
		return Ref{}, fmt.Errorf("creating %s entry: %w", contentType, err)
	}

	var e Entry
	if err := r.decode(&e); err != nil {
		return Ref{}, err
	}
	return Ref{ID: e.Sys.ID, Version: r.versionOr(1)}, nil
}

// UpdateEntry replaces the fields of entry id. version must be the version
// last observed for the entry.
func (c *Client) UpdateEntry(ctx context.Context, id string, version int, fields Fields) (Ref, error) {
	if version < 1 {
		return Ref{}, &VersionConflictError{ID: id, Version: version}
	}

	r, err := c.do(ctx, request{
		method:  http.MethodPut,
		path:    "/entries/" + id,
		body:    map[string]any{"fields": fields},
		version: version,
	})
	if err != nil {
		return Ref{}, fmt.Errorf("updating entry %s: %w", id, err)
	}

	var e Entry
	if err := r.decode(&e); err != nil {
		return Ref{}, err
	}
	if e.Sys.ID == "" {
		e.Sys.ID = id
	}
	return Ref{ID: e.Sys.ID, Version: r.versionOr(version + 1)}, nil
}

// PublishEntry publishes entry id and returns its new version.
func (c *Client) PublishEntry(ctx context.Context, id string, version int) (int, error) {
	r, err := c.do(ctx, request{method: http.MethodPut, path: "/entries/" + id + "/published", version: version})
	if err != nil {
		return 0, fmt.Errorf("publishing entry %s: %w", id, err)
	}
	return r.versionOr(version + 1), nil
}

// UnpublishEntry unpublishes entry id and returns its new version.
func (c *Client) UnpublishEntry(ctx context.Context, id string, version int) (int, error) {
	r, err := c.do(ctx, request{method: http.MethodPut, path: "/entries/" + id + "/unpublished", version: version})
	if err != nil {
		return 0, fmt.Errorf("unpublishing entry %s: %w", id, err)
	}
	return r.versionOr(version + 1), nil
}

// DeleteEntry deletes entry id. Contentful rejects deleting a published
// entry, so callers unpublish first.
func (c *Client) DeleteEntry(ctx context.Context, id string, version int) error {
	if _, err := c.do(ctx, request{method: http.MethodDelete, path: "/entries/" + id, version: version}); err != nil {
		return fmt.Errorf("deleting entry %s: %w", id, err)
	}
	return nil
}

// ListEntries returns every entry of contentType, paging until the
// collection's total is reached.
func (c *Client) ListEntries(ctx context.Context, contentType string) ([]Entry, error) {
	var items []Entry
	skip := 0
	for {
		q := url.Values{}
		q.Set("content_type", contentType)
		q.Set("limit", strconv.Itoa(listPageSize))
		q.Set("skip", strconv.Itoa(skip))

		r, err := c.do(ctx, request{method: http.MethodGet, path: "/entries?" + q.Encode()})
		if err != nil {
			return nil, fmt.Errorf("listing %s entries: %w", contentType, err)
		}

		var coll entryCollection
		if err := r.decode(&coll); err != nil {
			return nil, err
		}
		items = append(items, coll.Items...)

		limit := coll.Limit
		if limit <= 0 {
			limit = listPageSize
		}
		next := coll.Skip + limit
		if next >= coll.Total || len(coll.Items) == 0 {
			break
		}
		skip = next
	}
	return items, nil
}
