package archive

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFileSystemArchive(t *testing.T) {
	root := filepath.Join(t.TempDir(), "archive")

	a, err := NewFileSystemArchive("test", root)
	if err != nil {
		t.Fatalf("NewFileSystemArchive() error = %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("archive root not created: %v", err)
	}
	if err := a.ValidateSetup(context.Background()); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}
}

func TestFileSystemArchive_Put(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		size    int64
		wantErr bool
	}{
		{name: "store artifact", data: "oldUrl,newUrl", size: 13},
		{name: "size mismatch", data: "short", size: 100, wantErr: true},
		{name: "empty artifact", data: "", size: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewFileSystemArchive("test", t.TempDir())
			if err != nil {
				t.Fatalf("NewFileSystemArchive() error = %v", err)
			}

			err = a.Put(context.Background(), "run-1", "redirects.csv", strings.NewReader(tt.data), tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Put() error = %v, wantErr %v", err, tt.wantErr)
			}

			path := filepath.Join(a.root, "run-1", "redirects.csv")
			data, readErr := os.ReadFile(path)
			if tt.wantErr {
				if readErr == nil {
					t.Errorf("artifact written despite error")
				}
				return
			}
			if readErr != nil {
				t.Fatalf("failed to read artifact: %v", readErr)
			}
			if string(data) != tt.data {
				t.Errorf("artifact = %q, want %q", string(data), tt.data)
			}
		})
	}
}

func TestFileSystemArchive_Get(t *testing.T) {
	ctx := context.Background()
	a, err := NewFileSystemArchive("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemArchive() error = %v", err)
	}

	t.Run("stored artifact", func(t *testing.T) {
		data := `{"pages":[]}`
		if err := a.Put(ctx, "run-1", "snapshot.json", strings.NewReader(data), int64(len(data))); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		var buf bytes.Buffer
		if err := a.Get(ctx, "run-1", "snapshot.json", &buf); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if buf.String() != data {
			t.Errorf("Get() = %q, want %q", buf.String(), data)
		}
	})

	t.Run("missing artifact", func(t *testing.T) {
		var buf bytes.Buffer
		err := a.Get(ctx, "run-1", "nonexistent", &buf)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("path traversal rejected", func(t *testing.T) {
		var buf bytes.Buffer
		if err := a.Get(ctx, "..", "secret", &buf); err == nil || errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want invalid name error", err)
		}
	})
}

func TestFileSystemArchive_ValidateSetup(t *testing.T) {
	a := &FileSystemArchive{name: "test", root: "/nonexistent/path"}

	if err := a.ValidateSetup(context.Background()); err == nil {
		t.Error("ValidateSetup() expected error for missing root")
	}
}

func TestFileSystemArchive_AtomicWrite(t *testing.T) {
	a, err := NewFileSystemArchive("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemArchive() error = %v", err)
	}

	data := "oldUrl,newUrl"
	if err := a.Put(context.Background(), "run-1", "redirects.csv", strings.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(a.root, "run-1"))
	if err != nil {
		t.Fatalf("failed to read run dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}
