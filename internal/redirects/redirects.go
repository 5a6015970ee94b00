// Package redirects writes the old-URL to new-path table produced by an import.
package redirects

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Header is the first line of every redirects file. Consumers depend on
// exactly these two columns in this order.
const Header = "oldUrl,newUrl"

// Row maps one migrated page or post to its new location.
type Row struct {
	OldURL string
	NewURL string
}

// quote wraps s in double quotes, doubling any quotes inside it.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Encode renders rows as CSV: the header, then one line per row with every
// field quoted. Lines are joined by "\n" with no trailing newline.
func Encode(rows []Row) []byte {
	var buf bytes.Buffer
	buf.WriteString(Header)
	for _, r := range rows {
		buf.WriteByte('\n')
		buf.WriteString(quote(r.OldURL))
		buf.WriteByte(',')
		buf.WriteString(quote(r.NewURL))
	}
	return buf.Bytes()
}

// Write encodes rows to w.
func Write(w io.Writer, rows []Row) error {
	if _, err := w.Write(Encode(rows)); err != nil {
		return fmt.Errorf("writing redirects: %w", err)
	}
	return nil
}

// WriteFile writes rows to path, replacing any existing file. The file is
// written to a temporary name first and renamed into place.
func WriteFile(path string, rows []Row) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".redirects-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := Write(tmp, rows); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions on %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}
