package migrate

import (
	"context"
	"fmt"
	"strings"

	"wp-migrate/internal/wordpress"
)

// progressEvery is how many uploads pass between progress lines.
const progressEvery = 25

// ImageFailure is a media item that could not be uploaded.
type ImageFailure struct {
	MediaID int
	URL     string
	Err     error
}

// ImageUploadReport summarizes an image upload.
type ImageUploadReport struct {
	Found    int // image media items in the library
	Selected int // items attempted after applying the limit
	Uploaded int
	Failed   int
	Skipped  []int // media ids whose URL could not be used
	Failures []ImageFailure
}

func (r *ImageUploadReport) String() string {
	return fmt.Sprintf("Done. Uploaded %d images, failed %d", r.Uploaded, r.Failed)
}

// UploadImages copies the WordPress image library into Contentful assets,
// independently of any page or post. limit caps how many images are
// attempted; 0 means all. A failed item is counted and the upload goes on.
func (s *Service) UploadImages(ctx context.Context, limit int) (*ImageUploadReport, error) {
	media, err := s.source.FetchMedia(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching media: %w", err)
	}

	var images []wordpress.Media
	for _, m := range media {
		if strings.HasPrefix(m.MimeType, "image/") {
			images = append(images, m)
		}
	}

	report := &ImageUploadReport{Found: len(images)}
	if limit > 0 && limit < len(images) {
		images = images[:limit]
	}
	report.Selected = len(images)
	s.logger.Info("uploading images", "found", report.Found, "selected", report.Selected)

	for _, m := range images {
		remoteURL, err := normalizeUploadURL(m.SourceURL)
		if err != nil {
			s.logger.Warn("SKIP invalid url", "media", m.ID, "url", m.SourceURL)
			report.Skipped = append(report.Skipped, m.ID)
			continue
		}

		assetID, ready, err := s.ingestAsset(ctx, m, remoteURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.logger.Error("FAIL", "media", m.ID, "url", remoteURL, "error", err)
			report.Failed++
			report.Failures = append(report.Failures, ImageFailure{MediaID: m.ID, URL: remoteURL, Err: err})
			continue
		}
		if !ready {
			s.logger.Warn("asset not ready after polling", "asset", assetID)
		}

		report.Uploaded++
		if report.Uploaded%progressEvery == 0 {
			s.logger.Info("upload progress", "uploaded", report.Uploaded, "of", report.Selected)
		}
	}

	s.logger.Info(report.String(), "found", report.Found, "skipped", len(report.Skipped))
	return report, nil
}
