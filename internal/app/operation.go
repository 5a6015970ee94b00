package app

import "wp-migrate/internal/model"

// Operation names recorded in the run history.
const (
	OpProvision    = "Provision"
	OpImport       = "Import"
	OpCleanup      = "Cleanup"
	OpUploadImages = "UploadImages"
	OpHistory      = "GetHistory"
	OpWarnings     = "GetWarnings"
	OpGetArtifact  = "GetArtifact"
	OpCheckArchive = "CheckArchive"
	OpSetupKeys    = "SetupKeys"
)

// remoteOperations talk to WordPress and Contentful and are recorded as runs.
var remoteOperations = map[string]bool{
	OpProvision:    true,
	OpImport:       true,
	OpCleanup:      true,
	OpUploadImages: true,
}

// RunRecord tracks the CLI operation being run. Records are created in
// memory; only operations that write to Contentful persist them as a run.
type RunRecord struct {
	ID         string
	Operation  string
	Parameters string
	Status     string
	Summary    string
	persisted  bool
}

// NewRunRecord creates a new in-memory run record.
func NewRunRecord(id, operation string) *RunRecord {
	return &RunRecord{
		ID:        id,
		Operation: operation,
		Status:    model.StatusSuccess,
	}
}

// Persisted returns true if this run has been saved to the database.
func (r *RunRecord) Persisted() bool {
	return r.persisted
}

// Succeed records the run's outcome summary.
func (r *RunRecord) Succeed(summary string) {
	r.Status = model.StatusSuccess
	r.Summary = summary
}

// Fail marks the run as failed with err as its summary.
func (r *RunRecord) Fail(err error) {
	r.Status = model.StatusError
	r.Summary = err.Error()
}
