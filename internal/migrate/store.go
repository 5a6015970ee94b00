package migrate

import (
	"context"
	"io"
	"time"

	"wp-migrate/internal/model"
)

// RunStore records the history of runs: what they were, which entries they
// wrote and what they had to drop along the way.
type RunStore interface {
	// CreateRun inserts a new run in the running state.
	CreateRun(run *model.Run) error

	// FinishRun marks a run finished with the given status and summary.
	FinishRun(id string, status string, summary string, finishedAt time.Time) error

	// FindRun returns the run with the given id, or nil.
	FindRun(id string) (*model.Run, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]*model.Run, error)

	// RecordMappings stores the sourceId to entryId table of one kind.
	RecordMappings(runID string, kind string, ids map[int]string) error

	// ListMappings returns the mappings a run recorded for kind.
	ListMappings(runID string, kind string) ([]*model.EntryMapping, error)

	// RecordWarnings stores the lossy operations of a run.
	RecordWarnings(runID string, warnings []model.Warning) error

	// ListWarnings returns the lossy operations of a run in recorded order.
	ListWarnings(runID string) ([]*model.Warning, error)

	Close() error
}

// Archive stores the artifacts of a run (the fetched snapshot, the redirect
// table) under the run's id.
type Archive interface {
	// Put stores the named artifact. size is the number of bytes in r.
	Put(ctx context.Context, runID, name string, r io.Reader, size int64) error

	// Get writes the named artifact to w.
	Get(ctx context.Context, runID, name string, w io.Writer) error

	// ValidateSetup verifies that the archive is reachable.
	ValidateSetup(ctx context.Context) error
}

// Encryptor encrypts archived artifacts. Encryption uses the public key
// only; decryption requires the passphrase that unlocks the private key.
type Encryptor interface {
	// Setup generates the key pair, protecting the private key with passphrase.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key and returns a DecryptionContext.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if both key files exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key for the rest of a command.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
