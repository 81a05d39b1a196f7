package sink

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/devblac/abiscout/internal/abidoc"
)

// Writer persists ABI documents as JSON artifacts under a directory.
// Callers treat Save as fire-and-forget: a failed write is logged by the
// caller and never aborts an otherwise-successful discovery run.
type Writer struct {
	dir string
}

// NewWriter creates the output directory if needed and returns a Writer.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Save writes the document to <dir>/<label>.json. The write goes through a
// temp file and rename so a crash never leaves a truncated artifact.
func (w *Writer) Save(label string, doc abidoc.Document) error {
	data, err := doc.JSON()
	if err != nil {
		return err
	}

	path := filepath.Join(w.dir, label+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
