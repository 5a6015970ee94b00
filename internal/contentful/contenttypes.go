package contentful

import (
	"context"
	"fmt"
	"net/http"
)

// GetContentType returns content type id, or nil if it does not exist.
func (c *Client) GetContentType(ctx context.Context, id string) (*ContentType, error) {
	r, err := c.do(ctx, request{method: http.MethodGet, path: "/content_types/" + id})
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting content type %s: %w", id, err)
	}

	var ct ContentType
	if err := r.decode(&ct); err != nil {
		return nil, err
	}
	if ct.Sys == nil {
		ct.Sys = &Sys{ID: id}
	}
	if ct.Sys.Version == 0 {
		ct.Sys.Version = r.version
	}
	return &ct, nil
}

// PutContentType creates content type id from def, or overwrites the
// existing definition, and returns the resulting version.
func (c *Client) PutContentType(ctx context.Context, id string, def ContentType) (int, error) {
	existing, err := c.GetContentType(ctx, id)
	if err != nil {
		return 0, err
	}

	payload := ContentType{
		Name:         def.Name,
		DisplayField: def.DisplayField,
		Fields:       def.Fields,
	}

	req := request{method: http.MethodPut, path: "/content_types/" + id, body: payload}
	fallback := 1
	if existing != nil {
		current := existing.Sys.Version
		if current == 0 {
			current = 1
		}
		req.version = current
		fallback = current + 1
	}

	r, err := c.do(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("saving content type %s: %w", id, err)
	}
	return r.versionOr(fallback), nil
}

// PublishContentType activates content type id and returns its new version.
func (c *Client) PublishContentType(ctx context.Context, id string, version int) (int, error) {
	r, err := c.do(ctx, request{method: http.MethodPut, path: "/content_types/" + id + "/published", version: version})
	if err != nil {
		return 0, fmt.Errorf("publishing content type %s: %w", id, err)
	}
	return r.versionOr(version + 1), nil
}
