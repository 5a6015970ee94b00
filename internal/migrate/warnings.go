package migrate

import (
	"fmt"

	"wp-migrate/internal/model"
)

// Reasons recorded for lossy operations.
const (
	ReasonBodyTruncated = "body truncated"
	ReasonUnmappedTerm  = "unmapped %s %d dropped"
	ReasonAssetNotReady = "asset %s not ready after polling"
	ReasonMalformedURL  = "asset url malformed: %s"
)

// warningLog collects the lossy operations of one run and logs each as it
// happens.
type warningLog struct {
	logger Logger
	items  []model.Warning
}

func (w *warningLog) add(kind Kind, sourceID int, format string, args ...any) {
	reason := format
	if len(args) > 0 {
		reason = fmt.Sprintf(format, args...)
	}
	w.items = append(w.items, model.Warning{Kind: string(kind), SourceID: sourceID, Reason: reason})
	w.logger.Warn("lossy operation", "kind", kind, "wpId", sourceID, "reason", reason)
}
