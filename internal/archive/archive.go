// Package archive stores the artifacts of a run (the fetched snapshot and
// the redirect table) under the run's id.
package archive

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get for an artifact that was never stored.
var ErrNotFound = errors.New("artifact not found")

// validName rejects names that could escape their run's directory.
func validName(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

// key returns "<runID>/<name>".
func key(runID, name string) (string, error) {
	if !validName(runID) {
		return "", fmt.Errorf("invalid run id %q", runID)
	}
	if !validName(name) {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	return runID + "/" + name, nil
}
