package sink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/devblac/abiscout/internal/abidoc"
)

func TestWriterSavesArtifact(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	doc := abidoc.Document{
		{Type: abidoc.KindEvent, Name: "ModuleEnabled", Inputs: []abidoc.Param{{Name: "module", Type: "address"}}},
	}
	if err := w.Save("0xabc.full", doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "0xabc.full.json"))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}

	parsed, err := abidoc.Parse(data)
	if err != nil {
		t.Fatalf("artifact is not valid abi json: %v", err)
	}
	if len(parsed) != 1 || parsed[0].Name != "ModuleEnabled" {
		t.Fatalf("unexpected artifact content: %+v", parsed)
	}

	if entries, _ := filepath.Glob(filepath.Join(dir, "*.tmp")); len(entries) != 0 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestWriterCreatesNestedDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if _, err := NewWriter(dir); err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("output dir not created: %v", err)
	}
}

func TestWriterRequiresDir(t *testing.T) {
	if _, err := NewWriter(""); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}
