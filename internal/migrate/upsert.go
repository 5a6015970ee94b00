package migrate

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cenkalti/backoff/v4"

	"wp-migrate/internal/contentful"
)

// IDMap maps WordPress ids of one kind to the Contentful entry ids they were
// written to.
type IDMap map[int]string

// retryOnConflict runs op with version. When op fails with a version
// conflict it re-reads the resource's current version and tries again, at
// most ConflictRetries times. Once retries run out the conflict is returned
// unchanged. Any other error stops immediately.
func (s *Service) retryOnConflict(ctx context.Context, res contentful.Resource, id string, version int, op func(version int) error) error {
	if s.opts.ConflictRetries <= 0 {
		return op(version)
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.opts.ConflictBackoff), uint64(s.opts.ConflictRetries)),
		ctx,
	)

	current := version
	attempt := 0
	return backoff.Retry(func() error {
		if attempt > 0 {
			v, found, err := s.dest.GetVersion(ctx, res, id)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("refreshing version of %s: %w", id, err))
			}
			if !found {
				return backoff.Permanent(fmt.Errorf("refreshing version of %s: %w", id, contentful.ErrNotFound))
			}
			current = v
		}
		attempt++

		err := op(current)
		if err == nil {
			return nil
		}
		if errors.Is(err, contentful.ErrVersionConflict) {
			s.logger.Warn("version conflict", "id", id, "version", current, "attempt", attempt)
			return err
		}
		return backoff.Permanent(err)
	}, b)
}

// upsertEntry writes fields to the entry of kind that represents sourceID,
// creating it if no such entry exists yet, and publishes the result. It
// returns the entry id.
func (s *Service) upsertEntry(ctx context.Context, kind Kind, sourceID int, fields contentful.Fields) (string, error) {
	existing, err := s.dest.FindEntryByField(ctx, string(kind), SourceIDField, strconv.Itoa(sourceID))
	if err != nil {
		return "", fmt.Errorf("looking up %s %d: %w", kind, sourceID, err)
	}

	var ref contentful.Ref
	action := "created"
	if existing == nil {
		// Creates are never retried: a retry could leave two entries behind.
		ref, err = s.dest.CreateEntry(ctx, string(kind), fields)
		if err != nil {
			return "", fmt.Errorf("creating %s %d: %w", kind, sourceID, err)
		}
	} else {
		action = "updated"
		err = s.retryOnConflict(ctx, contentful.ResourceEntry, existing.ID, existing.Version, func(v int) error {
			var uerr error
			ref, uerr = s.dest.UpdateEntry(ctx, existing.ID, v, fields)
			return uerr
		})
		if err != nil {
			return "", fmt.Errorf("updating %s %d: %w", kind, sourceID, err)
		}
	}

	err = s.retryOnConflict(ctx, contentful.ResourceEntry, ref.ID, ref.Version, func(v int) error {
		_, perr := s.dest.PublishEntry(ctx, ref.ID, v)
		return perr
	})
	if err != nil {
		return "", fmt.Errorf("publishing %s %d: %w", kind, sourceID, err)
	}

	s.logger.Info("entry upserted", "kind", kind, "wpId", sourceID, "entry", ref.ID, "action", action)
	return ref.ID, nil
}
