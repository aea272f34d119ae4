package document

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const multiDoc = `apiVersion: governance/v1
kind: ModuleSet
spec:
  modules: []
---
kind: Status
phase: pending
`

func TestParseMultiDocumentReturnsAll(t *testing.T) {
	docs, err := Parse("root.modules.yaml", []byte(multiDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].Kind != "ModuleSet" || docs[0].APIVersion != "governance/v1" {
		t.Errorf("first doc metadata = %q/%q, want ModuleSet/governance/v1",
			docs[0].Kind, docs[0].APIVersion)
	}
	if docs[1].Kind != "Status" {
		t.Errorf("second doc kind = %q, want Status", docs[1].Kind)
	}
	if docs[0].DocIndex != 0 || docs[1].DocIndex != 1 {
		t.Errorf("doc indexes = %d/%d, want 0/1", docs[0].DocIndex, docs[1].DocIndex)
	}
}

func TestLoadReturnsFirstDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "root.modules.yaml")
	if err := os.WriteFile(path, []byte(multiDoc), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Kind != "ModuleSet" {
		t.Errorf("kind = %q, want ModuleSet (first document wins)", doc.Kind)
	}
}

func TestParseSkipsEmptyDocuments(t *testing.T) {
	docs, err := Parse("root.empty.yaml", []byte("---\n---\nkind: Real\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].Kind != "Real" {
		t.Errorf("kind = %q, want Real", docs[0].Kind)
	}
}

func TestParseErrorCarriesFileAndLine(t *testing.T) {
	_, err := Parse("root.broken.yaml", []byte("ok: yes\n  bad indent: [\n"))
	if err == nil {
		t.Fatal("expected parse error, got nil")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
	if pe.FilePath != "root.broken.yaml" {
		t.Errorf("file = %q, want root.broken.yaml", pe.FilePath)
	}
	if pe.Line == 0 {
		t.Errorf("expected line number in parse error, got: %v", pe)
	}
}

func TestContentIsGenericTree(t *testing.T) {
	docs, err := Parse("root.tree.yaml", []byte("spec:\n  values:\n    - 1\n    - two\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root, ok := docs[0].Content().(map[string]any)
	if !ok {
		t.Fatalf("content is %T, want map[string]any", docs[0].Content())
	}
	spec, ok := root["spec"].(map[string]any)
	if !ok {
		t.Fatalf("spec is %T, want map[string]any", root["spec"])
	}
	values, ok := spec["values"].([]any)
	if !ok || len(values) != 2 {
		t.Fatalf("values = %#v, want 2-element sequence", spec["values"])
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "root.absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
