package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"wp-migrate/internal/archive"
	"wp-migrate/internal/config"
	"wp-migrate/internal/contentful"
	"wp-migrate/internal/database"
	"wp-migrate/internal/encryption"
	"wp-migrate/internal/migrate"
	"wp-migrate/internal/model"
	"wp-migrate/internal/redirects"
	"wp-migrate/internal/wordpress"
)

// App is the application layer between the CLI and migrate.Service.
// It constructs all dependencies from config, records the run in the history
// database and manages the DB lifecycle on Close.
type App struct {
	cfg       *config.Config
	db        *database.SQLiteDatabase
	archive   migrate.Archive
	encryptor migrate.Encryptor
	service   *migrate.Service
	logger    migrate.Logger
	clock     migrate.Clock
	run       *RunRecord
	logFile   *os.File
}

// Remote is the pair of sites an App migrates between.
type Remote struct {
	Source      migrate.Source
	Destination migrate.Destination
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. OpImport, OpHistory).
// Operations that talk to WordPress and Contentful require a valid config;
// the others only open the local database and archive.
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	var remote Remote
	if remoteOperations[operation] {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		r, err := newRemote(cfg)
		if err != nil {
			return nil, err
		}
		remote = r
	}
	return newApp(cfg, operation, remote, migrate.RealClock{}, migrate.UUIDGenerator{}, os.Stderr)
}

func newRemote(cfg *config.Config) (Remote, error) {
	src, err := wordpress.NewClient(wordpress.Options{
		BaseURL:           cfg.Source.BaseURL,
		PerPage:           cfg.Source.PerPage,
		RequestsPerSecond: cfg.Source.RequestsPerSecond,
		Timeout:           time.Duration(cfg.Source.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return Remote{}, fmt.Errorf("creating wordpress client: %w", err)
	}

	dst, err := contentful.NewClient(contentful.Options{
		SpaceID:           cfg.Destination.SpaceID,
		Environment:       cfg.Destination.Environment,
		Token:             cfg.Destination.Token,
		Locale:            cfg.Destination.Locale,
		RequestsPerSecond: cfg.Destination.RequestsPerSecond,
		Timeout:           time.Duration(cfg.Destination.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return Remote{}, fmt.Errorf("creating contentful client: %w", err)
	}

	return Remote{Source: src, Destination: dst}, nil
}

func serviceOptions(cfg config.DestinationConfig) migrate.Options {
	return migrate.Options{
		AssetPollAttempts: cfg.AssetPollAttempts,
		AssetPollInterval: time.Duration(cfg.AssetPollInterval) * time.Millisecond,
		ConflictRetries:   cfg.ConflictRetries,
		ConflictBackoff:   time.Duration(cfg.ConflictBackoffMS) * time.Millisecond,
	}
}

func newApp(cfg *config.Config, operation string, remote Remote, clock migrate.Clock, ids migrate.IDGenerator, console io.Writer) (*App, error) {
	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	arc, err := archive.NewArchiveFromConfig(context.Background(), cfg.Archive)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating archive: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	run := NewRunRecord(ids.New(), operation)
	slogger, logFile, err := newLogger(cfg.LogDir, run.ID, console)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	svc := migrate.NewService(remote.Source, remote.Destination, db, arc, enc, logger, clock, serviceOptions(cfg.Destination))

	return &App{
		cfg:       cfg,
		db:        db,
		archive:   arc,
		encryptor: enc,
		service:   svc,
		logger:    logger,
		clock:     clock,
		run:       run,
		logFile:   logFile,
	}, nil
}

// RunID identifies this invocation in logs and in the run history.
func (a *App) RunID() string {
	return a.run.ID
}

// beginRun saves the run to the database in the running state.
// This should only be called for commands that write to Contentful.
func (a *App) beginRun(parameters string) error {
	if a.run.Persisted() {
		return nil
	}
	a.run.Parameters = parameters
	err := a.db.CreateRun(&model.Run{
		ID:         a.run.ID,
		Operation:  a.run.Operation,
		Parameters: parameters,
		StartedAt:  a.clock.Now(),
		Status:     model.StatusRunning,
	})
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	a.run.persisted = true
	a.logger.Info("run started", "operation", a.run.Operation, "parameters", parameters)
	return nil
}

// finish records the outcome of the run and returns err unchanged.
func (a *App) finish(summary string, err error) error {
	if err != nil {
		a.run.Fail(err)
		return err
	}
	a.run.Succeed(summary)
	return nil
}

// Provision creates or updates the content model.
func (a *App) Provision(ctx context.Context) error {
	if err := a.beginRun(""); err != nil {
		return err
	}
	return a.finish("content model published", a.service.ProvisionModel(ctx))
}

// Import runs a full migration and writes the redirect table to the
// configured output path.
func (a *App) Import(ctx context.Context) (*migrate.ImportResult, error) {
	if err := a.beginRun(""); err != nil {
		return nil, err
	}

	result, err := a.service.Import(ctx, a.run.ID)
	if err != nil {
		return nil, a.finish("", err)
	}

	path := a.cfg.Output.RedirectsPath
	if err := redirects.WriteFile(path, result.Redirects); err != nil {
		return nil, a.finish("", fmt.Errorf("writing redirects to %s: %w", path, err))
	}
	a.logger.Info("redirects written", "path", path, "rows", len(result.Redirects))

	return result, a.finish(fmt.Sprintf("redirects=%d warnings=%d", len(result.Redirects), len(result.Warnings)), nil)
}

// Cleanup removes duplicate entries, or only reports them unless execute.
func (a *App) Cleanup(ctx context.Context, execute bool) (*migrate.CleanupReport, error) {
	if err := a.beginRun(fmt.Sprintf("execute=%t", execute)); err != nil {
		return nil, err
	}

	report, err := a.service.Cleanup(ctx, execute)
	if err != nil {
		return nil, a.finish("", err)
	}

	summary := fmt.Sprintf("would_remove=%d", report.Total())
	if execute {
		summary = fmt.Sprintf("removed=%d", report.Total())
	}
	return report, a.finish(summary, nil)
}

// UploadImages copies up to limit images of the media library (0 for all).
func (a *App) UploadImages(ctx context.Context, limit int) (*migrate.ImageUploadReport, error) {
	if err := a.beginRun(fmt.Sprintf("limit=%d", limit)); err != nil {
		return nil, err
	}

	report, err := a.service.UploadImages(ctx, limit)
	if err != nil {
		return nil, a.finish("", err)
	}
	summary := fmt.Sprintf("uploaded=%d failed=%d skipped=%d", report.Uploaded, report.Failed, len(report.Skipped))
	return report, a.finish(summary, nil)
}

// History returns the most recent runs.
func (a *App) History(limit int) ([]*model.Run, error) {
	return a.service.GetHistory(limit)
}

// Warnings returns the lossy operations recorded for a run.
func (a *App) Warnings(runID string) ([]*model.Warning, error) {
	return a.service.GetWarnings(runID)
}

// GetArtifact writes an archived artifact to w. passphrase unlocks the
// private key for encrypted artifacts and is ignored otherwise.
func (a *App) GetArtifact(ctx context.Context, runID, name, passphrase string, w io.Writer) error {
	var dec migrate.DecryptionContext
	if migrate.IsEncryptedArtifact(name) {
		if a.encryptor == nil {
			return fmt.Errorf("%s is encrypted but no encryption is configured", name)
		}
		d, err := a.encryptor.Unlock(passphrase)
		if err != nil {
			return fmt.Errorf("unlocking private key: %w", err)
		}
		dec = d
	}
	return a.service.GetArtifact(ctx, runID, name, dec, w)
}

// CheckArchive verifies the configured archive is reachable.
func (a *App) CheckArchive(ctx context.Context) error {
	if a.archive == nil {
		return errors.New("no archive configured")
	}
	return a.archive.ValidateSetup(ctx)
}

// SetupKeys generates the archive encryption key pair.
func (a *App) SetupKeys(passphrase string) error {
	if a.encryptor == nil {
		return errors.New(`encryption is not configured: set [encryption] type = "age"`)
	}
	return a.encryptor.Setup(passphrase)
}

// Close finishes the run record, if one was saved, and closes all resources.
func (a *App) Close() error {
	var firstErr error

	if a.run.Persisted() {
		if err := a.db.FinishRun(a.run.ID, a.run.Status, a.run.Summary, a.clock.Now()); err != nil {
			firstErr = fmt.Errorf("finishing run: %w", err)
		}
		a.logger.Info("run finished", "status", a.run.Status, "summary", a.run.Summary)
	}

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
