package migrate

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"wp-migrate/internal/contentful"
)

// DuplicateAction is the removal of one entry that shares its WordPress id
// with a newer entry of the same kind.
type DuplicateAction struct {
	Kind     Kind
	SourceID int
	RemoveID string
	KeepID   string
	Executed bool // false in dry-run mode
}

func (a DuplicateAction) String() string {
	mode := "DRY"
	if a.Executed {
		mode = "DELETE"
	}
	return fmt.Sprintf("%s %s wpId=%d remove=%s keep=%s", mode, a.Kind, a.SourceID, a.RemoveID, a.KeepID)
}

// CleanupReport lists what a cleanup removed, or would remove in dry-run
// mode.
type CleanupReport struct {
	Execute bool
	Actions []DuplicateAction
	Counts  map[Kind]int
}

// Total is the number of entries removed across all kinds.
func (r *CleanupReport) Total() int {
	return len(r.Actions)
}

// Cleanup finds entries that share a WordPress id with another entry of the
// same kind, keeps the most recently updated one of each group and deletes
// the rest. Without execute nothing is written.
//
// Recency compares sys.updatedAt as strings, which is only chronological
// for timestamps in one zero-padded format such as Contentful's ISO 8601.
// Entries without a timestamp sort last.
func (s *Service) Cleanup(ctx context.Context, execute bool) (*CleanupReport, error) {
	report := &CleanupReport{Execute: execute, Counts: map[Kind]int{}}

	for _, kind := range CleanupOrder {
		entries, err := s.dest.ListEntries(ctx, string(kind))
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", kind, err)
		}

		groups := s.groupBySourceID(entries)
		ids := make([]int, 0, len(groups))
		for id := range groups {
			ids = append(ids, id)
		}
		slices.Sort(ids)

		for _, sourceID := range ids {
			group := groups[sourceID]
			if len(group) < 2 {
				continue
			}
			slices.SortStableFunc(group, func(a, b contentful.Entry) int {
				return cmp.Compare(b.Sys.UpdatedAt, a.Sys.UpdatedAt)
			})

			keep := group[0]
			for _, dup := range group[1:] {
				action := DuplicateAction{Kind: kind, SourceID: sourceID, RemoveID: dup.Sys.ID, KeepID: keep.Sys.ID, Executed: execute}
				s.logger.Debug(action.String())
				if execute {
					if err := s.removeEntry(ctx, dup); err != nil {
						return nil, fmt.Errorf("removing %s %s: %w", kind, dup.Sys.ID, err)
					}
				}
				report.Actions = append(report.Actions, action)
				report.Counts[kind]++
			}
		}
		s.logger.Info("kind reconciled", "kind", kind, "entries", len(entries), "removed", report.Counts[kind])
	}

	return report, nil
}

// groupBySourceID buckets entries by their WordPress id, preserving listing
// order within a bucket. Entries without a usable id are skipped.
func (s *Service) groupBySourceID(entries []contentful.Entry) map[int][]contentful.Entry {
	groups := map[int][]contentful.Entry{}
	for _, e := range entries {
		id, ok := parseSourceID(e.Fields[SourceIDField][s.dest.Locale()])
		if !ok {
			continue
		}
		groups[id] = append(groups[id], e)
	}
	return groups
}

// parseSourceID accepts the forms a wpId field value arrives in once decoded
// from JSON: a number, or a numeric string.
func parseSourceID(v any) (int, bool) {
	switch id := v.(type) {
	case float64:
		if id != float64(int(id)) {
			return 0, false
		}
		return int(id), true
	case int:
		return id, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// removeEntry unpublishes e if it was ever published, then deletes it. A
// failed unpublish is logged and the delete attempted with the version the
// listing reported.
func (s *Service) removeEntry(ctx context.Context, e contentful.Entry) error {
	version := e.Sys.Version
	if version == 0 {
		version = 1
	}

	if e.Sys.PublishedVersion != nil {
		v, err := s.dest.UnpublishEntry(ctx, e.Sys.ID, version)
		if err != nil {
			s.logger.Warn("unpublish failed, deleting anyway", "entry", e.Sys.ID, "error", err)
		} else {
			version = v
		}
	}

	return s.dest.DeleteEntry(ctx, e.Sys.ID, version)
}
