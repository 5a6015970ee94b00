package migrate

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"wp-migrate/internal/contentful"
	"wp-migrate/internal/wordpress"
)

// ErrMalformedRemoteURL is returned for media whose source URL cannot be
// handed to Contentful for fetching.
var ErrMalformedRemoteURL = errors.New("malformed remote url")

// AssetID is the deterministic Contentful asset id of a WordPress media item.
func AssetID(mediaID int) string {
	return fmt.Sprintf("wpMedia-%d", mediaID)
}

// parseRemoteURL accepts absolute http and https URLs only.
func parseRemoteURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrMalformedRemoteURL, raw)
	}
	return u, nil
}

var httpPrefix = regexp.MustCompile(`(?i)^http://`)

// normalizeUploadURL upgrades plain http URLs to https.
func normalizeUploadURL(raw string) (string, error) {
	u, err := parseRemoteURL(httpPrefix.ReplaceAllString(raw, "https://"))
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// fileNameFromURL returns the last non-empty path segment of u, or fallback.
func fileNameFromURL(u *url.URL, fallback string) string {
	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(segments) == 0 {
		return fallback
	}
	return segments[len(segments)-1]
}

// ingestAsset creates or updates the asset for m with its file fetched from
// remoteURL, waits for Contentful to process it and publishes it. ready is
// false when processing had not finished by the time polling gave up; the
// asset is published regardless.
func (s *Service) ingestAsset(ctx context.Context, m wordpress.Media, remoteURL string) (assetID string, ready bool, err error) {
	u, err := parseRemoteURL(remoteURL)
	if err != nil {
		return "", false, err
	}

	title := m.Title.Rendered
	if title == "" {
		title = m.Slug
	}

	ref, err := s.dest.UpsertAsset(ctx, contentful.AssetUpload{
		ID:          AssetID(m.ID),
		Title:       title,
		Description: m.AltText,
		FileName:    fileNameFromURL(u, m.Slug),
		ContentType: m.MimeType,
		RemoteURL:   remoteURL,
	})
	if err != nil {
		return "", false, err
	}

	processed, err := s.dest.ProcessAsset(ctx, ref.ID, ref.Version)
	if err != nil {
		return "", false, err
	}

	polled, ready, err := s.dest.WaitForAssetReady(ctx, ref.ID, s.opts.AssetPollAttempts, s.opts.AssetPollInterval)
	if err != nil {
		return "", false, err
	}

	// Processing bumps the version asynchronously, so whichever version was
	// seen last is the one publish must present.
	err = s.retryOnConflict(ctx, contentful.ResourceAsset, ref.ID, max(processed, polled), func(v int) error {
		_, perr := s.dest.PublishAsset(ctx, ref.ID, v)
		return perr
	})
	if err != nil {
		return "", false, err
	}

	s.logger.Info("asset published", "asset", ref.ID, "ready", ready)
	return ref.ID, ready, nil
}
