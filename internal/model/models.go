package model

import "time"

// Run statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Run is one invocation of a mutating wpm command.
type Run struct {
	ID         string // UUID
	Operation  string // e.g. "Import", "Cleanup"
	Parameters string // flags the command ran with, free-form
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
	Summary    string // one-line outcome, e.g. "redirects=120 warnings=3"
}

// EntryMapping records which Contentful entry a WordPress object was written
// to during a run.
type EntryMapping struct {
	RunID    string
	Kind     string // content type id, e.g. "wpTag"
	SourceID int    // WordPress id
	EntryID  string // Contentful entry id
}

// Warning is a lossy operation: something a run dropped or could not
// complete without failing.
type Warning struct {
	RunID    string
	Kind     string
	SourceID int
	Reason   string
}
