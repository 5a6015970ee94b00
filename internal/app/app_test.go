package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wp-migrate/internal/config"
	"wp-migrate/internal/database"
	"wp-migrate/internal/model"
	"wp-migrate/internal/redirects"
	"wp-migrate/internal/testutil"
	"wp-migrate/internal/wordpress"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.NewConfig(dir)
	cfg.Destination.SpaceID = "space"
	cfg.Destination.Token = "token"
	cfg.Output.RedirectsPath = filepath.Join(dir, "out", "redirects.csv")
	return cfg
}

func testSnapshot() wordpress.Snapshot {
	return wordpress.Snapshot{
		Categories: []wordpress.Term{testutil.Term(1, "News")},
		Pages:      []wordpress.Page{{Document: testutil.Document(10, "about", 1)}},
		Posts:      []wordpress.Post{{Document: testutil.Document(20, "hello", 1), Categories: []int{1, 99}}},
	}
}

type harness struct {
	cfg    *config.Config
	source *testutil.FakeSource
	cms    *testutil.FakeCMS
	ids    *testutil.StubIDGenerator
}

func newHarness(t *testing.T) *harness {
	return &harness{
		cfg:    testConfig(t),
		source: testutil.NewFakeSource(testSnapshot()),
		cms:    testutil.NewFakeCMS(),
		ids:    testutil.NewStubIDGenerator(),
	}
}

func (h *harness) open(t *testing.T, operation string) *App {
	t.Helper()
	a, err := newApp(h.cfg, operation, Remote{Source: h.source, Destination: h.cms}, testutil.FixedClock(), h.ids, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	return a
}

// findRun reopens the history database after the app has closed it.
func (h *harness) findRun(t *testing.T, id string) *model.Run {
	t.Helper()
	db, err := database.NewDatabaseFromConfig(h.cfg.Database)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	run, err := db.FindRun(id)
	if err != nil {
		t.Fatalf("FindRun() error = %v", err)
	}
	return run
}

func TestApp_Import(t *testing.T) {
	h := newHarness(t)
	a := h.open(t, OpImport)

	result, err := a.Import(context.Background())
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	runID := a.RunID()
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(h.cfg.Output.RedirectsPath)
	if err != nil {
		t.Fatalf("reading redirects: %v", err)
	}
	if !bytes.Equal(data, redirects.Encode(result.Redirects)) {
		t.Errorf("redirects file = %q, want %q", data, redirects.Encode(result.Redirects))
	}
	if !strings.HasPrefix(string(data), redirects.Header+"\n") {
		t.Errorf("redirects file header = %q", strings.SplitN(string(data), "\n", 2)[0])
	}

	run := h.findRun(t, runID)
	if run == nil {
		t.Fatal("run not recorded")
	}
	if run.Operation != OpImport {
		t.Errorf("Operation = %q, want %q", run.Operation, OpImport)
	}
	if run.Status != model.StatusSuccess {
		t.Errorf("Status = %q, want %q", run.Status, model.StatusSuccess)
	}
	if run.Summary != "redirects=2 warnings=1" {
		t.Errorf("Summary = %q, want %q", run.Summary, "redirects=2 warnings=1")
	}
	if run.FinishedAt == nil {
		t.Error("FinishedAt not set")
	}

	logData, err := os.ReadFile(filepath.Join(h.cfg.LogDir, LogFile))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(logData), "\t"+runID+"\timport complete") {
		t.Errorf("log missing import line for %s", runID)
	}
}

func TestApp_Import_Failure(t *testing.T) {
	h := newHarness(t)
	h.source.Err = errors.New("wordpress down")
	a := h.open(t, OpImport)

	if _, err := a.Import(context.Background()); err == nil {
		t.Fatal("Import() expected error, got nil")
	}
	runID := a.RunID()
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	run := h.findRun(t, runID)
	if run == nil {
		t.Fatal("failed run not recorded")
	}
	if run.Status != model.StatusError {
		t.Errorf("Status = %q, want %q", run.Status, model.StatusError)
	}
	if !strings.Contains(run.Summary, "wordpress down") {
		t.Errorf("Summary = %q, want the error", run.Summary)
	}
	if _, err := os.Stat(h.cfg.Output.RedirectsPath); !os.IsNotExist(err) {
		t.Errorf("redirects file written for a failed run: %v", err)
	}
}

func TestApp_Warnings(t *testing.T) {
	h := newHarness(t)
	a := h.open(t, OpImport)
	if _, err := a.Import(context.Background()); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	runID := a.RunID()
	a.Close()

	r := h.open(t, OpWarnings)
	defer r.Close()

	warnings, err := r.Warnings(runID)
	if err != nil {
		t.Fatalf("Warnings() error = %v", err)
	}
	if len(warnings) != 1 || warnings[0].Reason != "unmapped category 99 dropped" {
		t.Errorf("Warnings() = %v, want the dropped category", warnings)
	}
}

func TestApp_Cleanup(t *testing.T) {
	h := newHarness(t)
	a := h.open(t, OpCleanup)

	report, err := a.Cleanup(context.Background(), false)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if report.Total() != 0 {
		t.Errorf("Total() = %d, want 0", report.Total())
	}
	runID := a.RunID()
	a.Close()

	run := h.findRun(t, runID)
	if run == nil || run.Parameters != "execute=false" || run.Summary != "would_remove=0" {
		t.Errorf("run = %+v, want dry-run parameters and summary", run)
	}
}

func TestApp_UploadImages(t *testing.T) {
	h := newHarness(t)
	h.source.Snapshot.Media = []wordpress.Media{
		testutil.Image(1, "https://cdn.example.com/a.jpg"),
		testutil.Image(2, "::"),
	}
	a := h.open(t, OpUploadImages)

	report, err := a.UploadImages(context.Background(), 0)
	if err != nil {
		t.Fatalf("UploadImages() error = %v", err)
	}
	if report.Uploaded != 1 {
		t.Errorf("Uploaded = %d, want 1", report.Uploaded)
	}
	runID := a.RunID()
	a.Close()

	run := h.findRun(t, runID)
	if run == nil || run.Summary != "uploaded=1 failed=0 skipped=1" || run.Parameters != "limit=0" {
		t.Errorf("run = %+v", run)
	}
}

func TestApp_ReadOnlyOperationsAreNotRecorded(t *testing.T) {
	h := newHarness(t)
	a := h.open(t, OpProvision)
	if err := a.Provision(context.Background()); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	a.Close()

	r := h.open(t, OpHistory)
	runs, err := r.History(10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	r.Close()

	if len(runs) != 1 || runs[0].Operation != OpProvision {
		t.Fatalf("History() = %v, want only the provision run", runs)
	}
	if len(h.cms.ContentTypeIDs()) != 5 {
		t.Errorf("content types = %v, want 5", h.cms.ContentTypeIDs())
	}

	again := h.open(t, OpHistory)
	defer again.Close()
	runs, err = again.History(10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("History() = %d runs after a read-only command, want 1", len(runs))
	}
}

func TestApp_GetArtifact(t *testing.T) {
	h := newHarness(t)
	h.cfg.Archive = config.ArchiveConfig{Type: "filesystem", FSRoot: filepath.Join(t.TempDir(), "archive")}
	h.cfg.Encryption.Type = "test"

	a := h.open(t, OpImport)
	result, err := a.Import(context.Background())
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	runID := a.RunID()
	a.Close()

	r := h.open(t, OpGetArtifact)
	defer r.Close()

	var buf bytes.Buffer
	if err := r.GetArtifact(context.Background(), runID, "redirects.csv.age", "secret", &buf); err != nil {
		t.Fatalf("GetArtifact() error = %v", err)
	}
	if !bytes.Equal(buf.Bytes(), redirects.Encode(result.Redirects)) {
		t.Errorf("artifact = %q, want %q", buf.Bytes(), redirects.Encode(result.Redirects))
	}

	if err := r.GetArtifact(context.Background(), runID, "redirects.csv", "", &buf); err == nil {
		t.Error("GetArtifact() of an artifact that was stored encrypted expected error, got nil")
	}
}

func TestApp_CheckArchive(t *testing.T) {
	t.Run("none configured", func(t *testing.T) {
		h := newHarness(t)
		a := h.open(t, OpCheckArchive)
		defer a.Close()

		if err := a.CheckArchive(context.Background()); err == nil {
			t.Error("CheckArchive() expected error, got nil")
		}
	})

	t.Run("filesystem", func(t *testing.T) {
		h := newHarness(t)
		h.cfg.Archive = config.ArchiveConfig{Type: "filesystem", FSRoot: t.TempDir()}
		a := h.open(t, OpCheckArchive)
		defer a.Close()

		if err := a.CheckArchive(context.Background()); err != nil {
			t.Errorf("CheckArchive() error = %v", err)
		}
	})
}

func TestApp_SetupKeys(t *testing.T) {
	t.Run("encryption not configured", func(t *testing.T) {
		h := newHarness(t)
		a := h.open(t, OpSetupKeys)
		defer a.Close()

		if err := a.SetupKeys("secret"); err == nil {
			t.Error("SetupKeys() expected error, got nil")
		}
	})

	t.Run("age", func(t *testing.T) {
		h := newHarness(t)
		h.cfg.Encryption.Type = "age"
		a := h.open(t, OpSetupKeys)
		defer a.Close()

		if err := a.SetupKeys("secret"); err != nil {
			t.Fatalf("SetupKeys() error = %v", err)
		}
		for _, p := range []string{h.cfg.Encryption.PublicKeyPath, h.cfg.Encryption.PrivateKeyPath} {
			if _, err := os.Stat(p); err != nil {
				t.Errorf("key file %s: %v", p, err)
			}
		}
	})
}

func TestNewApp_RequiresCredentialsForRemoteOperations(t *testing.T) {
	cfg := testConfig(t)
	cfg.Destination.Token = ""

	if _, err := NewApp(cfg, OpImport); err == nil {
		t.Error("NewApp(Import) expected error without a token, got nil")
	}

	a, err := NewApp(cfg, OpHistory)
	if err != nil {
		t.Fatalf("NewApp(GetHistory) error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestServiceOptions(t *testing.T) {
	cfg := config.NewConfig(t.TempDir()).Destination
	cfg.ConflictRetries = 3
	cfg.ConflictBackoffMS = 250

	opts := serviceOptions(cfg)
	if opts.AssetPollAttempts != config.DefaultAssetPollAttempts {
		t.Errorf("AssetPollAttempts = %d, want %d", opts.AssetPollAttempts, config.DefaultAssetPollAttempts)
	}
	if opts.AssetPollInterval.Milliseconds() != config.DefaultAssetPollInterval {
		t.Errorf("AssetPollInterval = %v, want %dms", opts.AssetPollInterval, config.DefaultAssetPollInterval)
	}
	if opts.ConflictRetries != 3 || opts.ConflictBackoff.Milliseconds() != 250 {
		t.Errorf("conflict options = %d, %v", opts.ConflictRetries, opts.ConflictBackoff)
	}
}
