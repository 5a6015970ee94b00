package migrate_test

import (
	"context"
	"errors"
	"testing"

	"wp-migrate/internal/contentful"
	"wp-migrate/internal/migrate"
	"wp-migrate/internal/wordpress"
)

func seedTag(f *fixture, id string, sourceID any, updatedAt string, published bool) {
	sys := contentful.Sys{ID: id, Version: 3, UpdatedAt: updatedAt}
	if published {
		v := 2
		sys.PublishedVersion = &v
	}
	f.cms.SeedEntry(string(migrate.KindTag), contentful.Entry{
		Sys:    sys,
		Fields: contentful.Fields{migrate.SourceIDField: {locale: sourceID}},
	})
}

// Two entries for wpId 5, one for wpId 7.
func seedDuplicates(f *fixture) {
	seedTag(f, "old", 5, "2023-01-01T00:00:00Z", true)
	seedTag(f, "new", 5, "2023-06-01T00:00:00Z", true)
	seedTag(f, "single", 7, "2023-01-01T00:00:00Z", false)
}

func entryIDs(entries []contentful.Entry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.Sys.ID
	}
	return ids
}

func TestService_Cleanup_DryRun(t *testing.T) {
	f := newFixture(t, wordpress.Snapshot{})
	seedDuplicates(f)

	report, err := f.svc.Cleanup(context.Background(), false)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}

	if report.Total() != 1 {
		t.Fatalf("Total() = %d, want 1", report.Total())
	}
	action := report.Actions[0]
	want := migrate.DuplicateAction{Kind: migrate.KindTag, SourceID: 5, RemoveID: "old", KeepID: "new"}
	if action != want {
		t.Errorf("action = %+v, want %+v", action, want)
	}
	if got := action.String(); got != "DRY wpTag wpId=5 remove=old keep=new" {
		t.Errorf("String() = %q", got)
	}
	if report.Counts[migrate.KindTag] != 1 {
		t.Errorf("Counts[wpTag] = %d, want 1", report.Counts[migrate.KindTag])
	}

	if n := f.cms.CallCount("DeleteEntry"); n != 0 {
		t.Errorf("DeleteEntry calls = %d, want 0", n)
	}
	if n := f.cms.CallCount("UnpublishEntry"); n != 0 {
		t.Errorf("UnpublishEntry calls = %d, want 0", n)
	}
	if n := len(f.cms.Entries(string(migrate.KindTag))); n != 3 {
		t.Errorf("entries after dry run = %d, want 3", n)
	}
	if !f.logger.Contains("DEBUG DRY wpTag wpId=5 remove=old keep=new") {
		t.Errorf("dry-run action not logged at debug: %v", f.logger.Lines)
	}
	if f.logger.Contains("INFO DRY") {
		t.Errorf("dry-run action logged at info, where the console would repeat the report: %v", f.logger.Lines)
	}
}

func TestService_Cleanup_Execute(t *testing.T) {
	f := newFixture(t, wordpress.Snapshot{})
	seedDuplicates(f)

	dry, err := f.svc.Cleanup(context.Background(), false)
	if err != nil {
		t.Fatalf("Cleanup(dry) error = %v", err)
	}

	report, err := f.svc.Cleanup(context.Background(), true)
	if err != nil {
		t.Fatalf("Cleanup(execute) error = %v", err)
	}

	if len(report.Actions) != len(dry.Actions) {
		t.Fatalf("execute removed %d entries, dry run reported %d", len(report.Actions), len(dry.Actions))
	}
	for i := range dry.Actions {
		got, want := report.Actions[i], dry.Actions[i]
		want.Executed = true
		if got != want {
			t.Errorf("Actions[%d] = %+v, want %+v", i, got, want)
		}
	}
	if got := report.Actions[0].String(); got != "DELETE wpTag wpId=5 remove=old keep=new" {
		t.Errorf("String() = %q", got)
	}

	ids := entryIDs(f.cms.Entries(string(migrate.KindTag)))
	if len(ids) != 2 || ids[0] != "new" || ids[1] != "single" {
		t.Errorf("remaining entries = %v, want [new single]", ids)
	}
	if n := f.cms.CallCount("UnpublishEntry"); n != 1 {
		t.Errorf("UnpublishEntry calls = %d, want 1", n)
	}

	// Idempotent: nothing left to remove
	again, err := f.svc.Cleanup(context.Background(), true)
	if err != nil {
		t.Fatalf("second Cleanup() error = %v", err)
	}
	if again.Total() != 0 {
		t.Errorf("second Cleanup() removed %d entries, want 0", again.Total())
	}
}

func TestService_Cleanup_GroupsAcrossValueForms(t *testing.T) {
	f := newFixture(t, wordpress.Snapshot{})
	seedTag(f, "number", float64(12), "2023-01-01T00:00:00Z", false)
	seedTag(f, "string", "12", "2023-02-01T00:00:00Z", false)
	seedTag(f, "junk", "twelve", "2023-03-01T00:00:00Z", false)
	f.cms.SeedEntry(string(migrate.KindTag), contentful.Entry{Sys: contentful.Sys{ID: "no-field"}})

	report, err := f.svc.Cleanup(context.Background(), true)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if report.Total() != 1 || report.Actions[0].RemoveID != "number" || report.Actions[0].KeepID != "string" {
		t.Errorf("Actions = %+v, want number removed in favour of string", report.Actions)
	}
	ids := entryIDs(f.cms.Entries(string(migrate.KindTag)))
	if len(ids) != 3 {
		t.Errorf("remaining entries = %v, want string, junk and no-field", ids)
	}
}

func TestService_Cleanup_KeepsFirstOnTie(t *testing.T) {
	f := newFixture(t, wordpress.Snapshot{})
	seedTag(f, "first", 3, "2023-01-01T00:00:00Z", false)
	seedTag(f, "second", 3, "2023-01-01T00:00:00Z", false)

	report, err := f.svc.Cleanup(context.Background(), false)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if report.Total() != 1 || report.Actions[0].KeepID != "first" {
		t.Errorf("Actions = %+v, want first kept", report.Actions)
	}
}

func TestService_Cleanup_WalksKindsInOrder(t *testing.T) {
	f := newFixture(t, wordpress.Snapshot{})
	seed := func(kind migrate.Kind, id, updatedAt string) {
		f.cms.SeedEntry(string(kind), contentful.Entry{
			Sys:    contentful.Sys{ID: id, UpdatedAt: updatedAt},
			Fields: contentful.Fields{migrate.SourceIDField: {locale: 1}},
		})
	}
	seed(migrate.KindAuthor, "author-a", "2023-01-01T00:00:01Z")
	seed(migrate.KindAuthor, "author-b", "2023-01-01T00:00:02Z")
	seed(migrate.KindArticle, "article-a", "2023-01-01T00:00:01Z")
	seed(migrate.KindArticle, "article-b", "2023-01-01T00:00:02Z")

	report, err := f.svc.Cleanup(context.Background(), false)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if report.Total() != 2 {
		t.Fatalf("Total() = %d, want 2", report.Total())
	}
	if report.Actions[0].Kind != migrate.KindArticle || report.Actions[1].Kind != migrate.KindAuthor {
		t.Errorf("kinds = %s, %s; want wpArticle before wpAuthor", report.Actions[0].Kind, report.Actions[1].Kind)
	}
}

func TestService_Cleanup_DeleteAfterFailedUnpublish(t *testing.T) {
	f := newFixture(t, wordpress.Snapshot{})
	seedDuplicates(f)
	f.cms.FailNext("UnpublishEntry", 1, errors.New("unpublish rejected"))

	_, err := f.svc.Cleanup(context.Background(), true)
	if err == nil {
		t.Fatal("Cleanup() expected delete of a still-published entry to fail, got nil")
	}
	if n := f.cms.CallCount("DeleteEntry"); n != 1 {
		t.Errorf("DeleteEntry calls = %d, want 1", n)
	}
	if !f.logger.Contains("unpublish failed, deleting anyway") {
		t.Errorf("unpublish failure not logged: %v", f.logger.Lines)
	}
}

func TestService_Cleanup_StaleVersion(t *testing.T) {
	f := newFixture(t, wordpress.Snapshot{})
	seedTag(f, "old", 5, "2023-01-01T00:00:00Z", false)
	seedTag(f, "new", 5, "2023-06-01T00:00:00Z", false)
	f.cms.FailNext("DeleteEntry", 1, &contentful.VersionConflictError{ID: "old", Version: 3})

	_, err := f.svc.Cleanup(context.Background(), true)
	if !errors.Is(err, contentful.ErrVersionConflict) {
		t.Errorf("Cleanup() error = %v, want version conflict", err)
	}
	if n := len(f.cms.Entries(string(migrate.KindTag))); n != 2 {
		t.Errorf("entries = %d, want 2", n)
	}
	if !f.logger.Contains("DEBUG DELETE wpTag wpId=5 remove=old keep=new") {
		t.Errorf("failed removal not identified in the log: %v", f.logger.Lines)
	}
}

func TestService_Cleanup_MissingTimestampSortsLast(t *testing.T) {
	tests := []struct {
		name  string
		order []string // seeding order
	}{
		{"blank listed first", []string{"blank", "dated"}},
		{"blank listed last", []string{"dated", "blank"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, wordpress.Snapshot{})
			stamps := map[string]string{"blank": "", "dated": "2020-01-01T00:00:00Z"}
			for _, id := range tt.order {
				seedTag(f, id, 9, stamps[id], false)
			}

			report, err := f.svc.Cleanup(context.Background(), false)
			if err != nil {
				t.Fatalf("Cleanup() error = %v", err)
			}
			if report.Total() != 1 {
				t.Fatalf("Total() = %d, want 1", report.Total())
			}
			if got := report.Actions[0].String(); got != "DRY wpTag wpId=9 remove=blank keep=dated" {
				t.Errorf("action = %q, want %q", got, "DRY wpTag wpId=9 remove=blank keep=dated")
			}
		})
	}
}

func TestService_Cleanup_ListFailure(t *testing.T) {
	f := newFixture(t, wordpress.Snapshot{})
	f.cms.FailNext("ListEntries", 1, errors.New("list failed"))

	if _, err := f.svc.Cleanup(context.Background(), false); err == nil {
		t.Error("Cleanup() expected error, got nil")
	}
}
