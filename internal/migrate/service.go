package migrate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"wp-migrate/internal/model"
)

// Options tunes how the service talks to Contentful.
type Options struct {
	// AssetPollAttempts and AssetPollInterval bound the wait for an asset to
	// finish processing.
	AssetPollAttempts int
	AssetPollInterval time.Duration

	// ConflictRetries is how many times an update or publish rejected for a
	// stale version is retried with a freshly read version. 0 disables retries.
	ConflictRetries int
	ConflictBackoff time.Duration
}

// DefaultOptions returns the polling limits Contentful assets usually need.
func DefaultOptions() Options {
	return Options{
		AssetPollAttempts: 20,
		AssetPollInterval: 1500 * time.Millisecond,
	}
}

// Service coordinates the source, the destination and the run history to
// perform the operations the CLI needs.
type Service struct {
	source    Source
	dest      Destination
	store     RunStore
	archive   Archive   // nil when archiving is disabled
	encryptor Encryptor // nil when archived artifacts are stored in plaintext
	logger    Logger
	clock     Clock
	opts      Options
}

// NewService creates a Service with the provided dependencies. archive and
// encryptor may be nil.
func NewService(source Source, dest Destination, store RunStore, archive Archive, encryptor Encryptor, logger Logger, clock Clock, opts Options) *Service {
	if opts.AssetPollAttempts <= 0 {
		opts.AssetPollAttempts = DefaultOptions().AssetPollAttempts
	}
	return &Service{
		source:    source,
		dest:      dest,
		store:     store,
		archive:   archive,
		encryptor: encryptor,
		logger:    logger,
		clock:     clock,
		opts:      opts,
	}
}

// GetHistory returns the most recent runs, newest first.
func (s *Service) GetHistory(limit int) ([]*model.Run, error) {
	runs, err := s.store.ListRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// GetWarnings returns the lossy operations recorded for a run.
func (s *Service) GetWarnings(runID string) ([]*model.Warning, error) {
	run, err := s.store.FindRun(runID)
	if err != nil {
		return nil, fmt.Errorf("finding run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	warnings, err := s.store.ListWarnings(runID)
	if err != nil {
		return nil, fmt.Errorf("listing warnings: %w", err)
	}
	return warnings, nil
}

// encryptedSuffix marks archived artifacts that were encrypted.
const encryptedSuffix = ".age"

// IsEncryptedArtifact reports whether an archived artifact name denotes
// encrypted content.
func IsEncryptedArtifact(name string) bool {
	return strings.HasSuffix(name, encryptedSuffix)
}

// archiveArtifact stores data under runID/name, encrypting it first when an
// encryptor is configured. It returns the name the artifact was stored under.
func (s *Service) archiveArtifact(ctx context.Context, runID, name string, data []byte) (string, error) {
	if s.archive == nil {
		return "", nil
	}

	if s.encryptor != nil {
		var buf bytes.Buffer
		if err := s.encryptor.Encrypt(bytes.NewReader(data), &buf); err != nil {
			return "", fmt.Errorf("encrypting %s: %w", name, err)
		}
		data = buf.Bytes()
		name += encryptedSuffix
	}

	if err := s.archive.Put(ctx, runID, name, bytes.NewReader(data), int64(len(data))); err != nil {
		return "", fmt.Errorf("archiving %s: %w", name, err)
	}
	s.logger.Info("artifact archived", "name", name, "bytes", len(data))
	return name, nil
}

// GetArtifact writes an archived artifact of a run to w. Encrypted artifacts
// (named with a ".age" suffix) need dec; plaintext ones ignore it.
func (s *Service) GetArtifact(ctx context.Context, runID, name string, dec DecryptionContext, w io.Writer) error {
	if s.archive == nil {
		return fmt.Errorf("no archive configured")
	}

	if !IsEncryptedArtifact(name) {
		if err := s.archive.Get(ctx, runID, name, w); err != nil {
			return fmt.Errorf("fetching %s: %w", name, err)
		}
		return nil
	}

	if dec == nil {
		return fmt.Errorf("%s is encrypted: unlock the private key first", name)
	}
	var buf bytes.Buffer
	if err := s.archive.Get(ctx, runID, name, &buf); err != nil {
		return fmt.Errorf("fetching %s: %w", name, err)
	}
	if err := dec.Decrypt(&buf, w); err != nil {
		return fmt.Errorf("decrypting %s: %w", name, err)
	}
	return nil
}
