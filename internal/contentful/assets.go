package contentful

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// GetAsset returns asset id, or nil if it does not exist.
func (c *Client) GetAsset(ctx context.Context, id string) (*Asset, error) {
	r, err := c.do(ctx, request{method: http.MethodGet, path: "/assets/" + id})
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting asset %s: %w", id, err)
	}

	var a Asset
	if err := r.decode(&a); err != nil {
		return nil, err
	}
	if a.Sys.Version == 0 {
		a.Sys.Version = r.version
	}
	return &a, nil
}

// UpsertAsset creates asset up.ID, or overwrites it if it already exists,
// pointing its file at up.RemoteURL. The file is not processed until
// ProcessAsset is called.
func (c *Client) UpsertAsset(ctx context.Context, up AssetUpload) (Ref, error) {
	existing, err := c.GetAsset(ctx, up.ID)
	if err != nil {
		return Ref{}, err
	}

	fields := AssetFields{
		Title:       map[string]string{c.locale: up.Title},
		Description: map[string]string{c.locale: up.Description},
		File: map[string]AssetFile{c.locale: {
			ContentType: up.ContentType,
			FileName:    up.FileName,
			Upload:      up.RemoteURL,
		}},
	}

	req := request{
		method: http.MethodPut,
		path:   "/assets/" + up.ID,
		body:   map[string]any{"fields": fields},
	}
	fallback := 1
	if existing != nil {
		req.version = existing.Sys.Version
		fallback = existing.Sys.Version + 1
	}

	r, err := c.do(ctx, req)
	if err != nil {
		return Ref{}, fmt.Errorf("upserting asset %s: %w", up.ID, err)
	}

	var a Asset
	if err := r.decode(&a); err != nil {
		return Ref{}, err
	}
	if a.Sys.ID == "" {
		a.Sys.ID = up.ID
	}
	return Ref{ID: a.Sys.ID, Version: r.versionOr(fallback)}, nil
}

// ProcessAsset asks Contentful to fetch and process the asset's file and
// returns the asset's new version. Processing continues after the call
// returns; see WaitForAssetReady.
func (c *Client) ProcessAsset(ctx context.Context, id string, version int) (int, error) {
	r, err := c.do(ctx, request{
		method:  http.MethodPut,
		path:    fmt.Sprintf("/assets/%s/files/%s/process", id, c.locale),
		version: version,
	})
	if err != nil {
		return 0, fmt.Errorf("processing asset %s: %w", id, err)
	}
	return r.versionOr(version + 1), nil
}

// WaitForAssetReady polls asset id until its file URL is set, at most
// maxAttempts times with interval between polls. When the attempts run out
// it returns the last observed version with ready false and no error.
func (c *Client) WaitForAssetReady(ctx context.Context, id string, maxAttempts int, interval time.Duration) (int, bool, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		a, err := c.getAssetForPoll(ctx, id)
		if err != nil {
			return 0, false, err
		}
		if a.Fields.File[c.locale].URL != "" {
			return a.Sys.Version, true, nil
		}
		if err := sleep(ctx, interval); err != nil {
			return 0, false, err
		}
	}

	a, err := c.getAssetForPoll(ctx, id)
	if err != nil {
		return 0, false, err
	}
	return a.Sys.Version, a.Fields.File[c.locale].URL != "", nil
}

func (c *Client) getAssetForPoll(ctx context.Context, id string) (*Asset, error) {
	a, err := c.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("polling asset %s: %w", id, ErrNotFound)
	}
	return a, nil
}

// PublishAsset publishes asset id and returns its new version.
func (c *Client) PublishAsset(ctx context.Context, id string, version int) (int, error) {
	r, err := c.do(ctx, request{method: http.MethodPut, path: "/assets/" + id + "/published", version: version})
	if err != nil {
		return 0, fmt.Errorf("publishing asset %s: %w", id, err)
	}
	return r.versionOr(version + 1), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
