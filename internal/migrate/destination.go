package migrate

import (
	"context"
	"time"

	"wp-migrate/internal/contentful"
	"wp-migrate/internal/wordpress"
)

// Source reads content from the WordPress site being migrated.
type Source interface {
	// FetchAll reads categories, tags, media, pages and posts.
	FetchAll(ctx context.Context) (*wordpress.Snapshot, error)

	// FetchMedia reads the media library only.
	FetchMedia(ctx context.Context) ([]wordpress.Media, error)
}

// Destination is the management API of the Contentful environment being
// written to. Every write takes the version last observed for the resource.
type Destination interface {
	// Locale is the locale field values are written under.
	Locale() string

	// GetVersion returns the current version of a resource, or false if it
	// does not exist.
	GetVersion(ctx context.Context, res contentful.Resource, id string) (int, bool, error)

	// Entries

	// FindEntryByField returns the first entry of contentType whose field
	// equals value, or nil.
	FindEntryByField(ctx context.Context, contentType, field, value string) (*contentful.Ref, error)
	CreateEntry(ctx context.Context, contentType string, fields contentful.Fields) (contentful.Ref, error)
	UpdateEntry(ctx context.Context, id string, version int, fields contentful.Fields) (contentful.Ref, error)
	PublishEntry(ctx context.Context, id string, version int) (int, error)
	UnpublishEntry(ctx context.Context, id string, version int) (int, error)
	DeleteEntry(ctx context.Context, id string, version int) error
	// ListEntries returns every entry of contentType.
	ListEntries(ctx context.Context, contentType string) ([]contentful.Entry, error)

	// Assets

	// UpsertAsset creates or overwrites an asset whose file is fetched from
	// a remote URL once processed.
	UpsertAsset(ctx context.Context, up contentful.AssetUpload) (contentful.Ref, error)
	ProcessAsset(ctx context.Context, id string, version int) (int, error)
	// WaitForAssetReady polls until the asset's file URL is set. When the
	// attempts run out it returns the last version with ready false.
	WaitForAssetReady(ctx context.Context, id string, maxAttempts int, interval time.Duration) (version int, ready bool, err error)
	PublishAsset(ctx context.Context, id string, version int) (int, error)

	// Content types

	// PutContentType creates or overwrites a content type and returns its version.
	PutContentType(ctx context.Context, id string, def contentful.ContentType) (int, error)
	PublishContentType(ctx context.Context, id string, version int) (int, error)
}

var _ Destination = (*contentful.Client)(nil)
var _ Source = (*wordpress.Client)(nil)
