package app

import (
	"errors"
	"testing"

	"wp-migrate/internal/model"
)

func TestNewRunRecord(t *testing.T) {
	r := NewRunRecord("run-1", OpImport)

	if r.ID != "run-1" {
		t.Errorf("ID = %q, want %q", r.ID, "run-1")
	}
	if r.Operation != OpImport {
		t.Errorf("Operation = %q, want %q", r.Operation, OpImport)
	}
	if r.Status != model.StatusSuccess {
		t.Errorf("Status = %q, want %q", r.Status, model.StatusSuccess)
	}
	if r.Persisted() {
		t.Error("Persisted() = true for a new record")
	}
}

func TestRunRecord_Outcome(t *testing.T) {
	tests := []struct {
		name        string
		apply       func(r *RunRecord)
		wantStatus  string
		wantSummary string
	}{
		{
			name:        "success",
			apply:       func(r *RunRecord) { r.Succeed("redirects=2 warnings=0") },
			wantStatus:  model.StatusSuccess,
			wantSummary: "redirects=2 warnings=0",
		},
		{
			name:        "failure",
			apply:       func(r *RunRecord) { r.Fail(errors.New("contentful down")) },
			wantStatus:  model.StatusError,
			wantSummary: "contentful down",
		},
		{
			name: "failure after success",
			apply: func(r *RunRecord) {
				r.Succeed("removed=1")
				r.Fail(errors.New("writing csv"))
			},
			wantStatus:  model.StatusError,
			wantSummary: "writing csv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunRecord("run-1", OpCleanup)
			tt.apply(r)
			if r.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", r.Status, tt.wantStatus)
			}
			if r.Summary != tt.wantSummary {
				t.Errorf("Summary = %q, want %q", r.Summary, tt.wantSummary)
			}
		})
	}
}
