package gate

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/machinenativeops/rootlint/internal/document"
)

// cleanCorpus is a minimal root layer that satisfies every rule category.
const cleanCorpus = `-- root.registry.modules.yaml --
apiVersion: governance/v1
kind: ModuleRegistry
spec:
  categories: [core]
  modules:
    - id: config-manager
      name: config-manager
      version: 1.2.0
      category: core
      namespace: machinenativeops
      enabled: true
      priority: 10
      entrypoint: modules/config-manager/main
      description: manages configuration for the platform
      dependencies: []
-- root.registry.urns.yaml --
apiVersion: governance/v1
kind: URNRegistry
spec:
  module_urns:
    - urn: urn:machinenativeops:module:config-manager
      target:
        file: root.registry.modules.yaml
        path: spec.modules[0]
-- root.modules.yaml --
apiVersion: governance/v1
kind: ModuleSet
spec:
  modules:
    - module_id: config-manager
      name: config-manager
      version: 1.2.1
      description: manages configuration for the platform
      urn: urn:machinenativeops:module:config-manager
-- root.specs.naming.yaml --
spec: {}
-- root.specs.references.yaml --
spec: {}
-- root.specs.mapping.yaml --
spec: {}
-- root.specs.logic.yaml --
spec: {}
-- root.specs.context.yaml --
spec: {}
`

// extractCorpus writes a txtar archive into a fresh temp directory.
func extractCorpus(t *testing.T, corpus string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range txtar.Parse([]byte(corpus)).Files {
		if err := os.WriteFile(filepath.Join(dir, f.Name), f.Data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestRunCleanCorpusPasses(t *testing.T) {
	dir := extractCorpus(t, cleanCorpus)
	rep, err := Run(context.Background(), Config{Dir: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rep.Pass {
		t.Fatalf("clean corpus failed:\n%s", rep.Markdown())
	}
	if rep.Summary.Errors != 0 || rep.Summary.Warnings != 0 {
		t.Errorf("summary = %+v, want all zero", rep.Summary)
	}
	if rep.Inputs.Files != 8 {
		t.Errorf("input files = %d, want 8", rep.Inputs.Files)
	}
}

// TestRunIsIdempotent: unchanged inputs produce byte-identical reports.
func TestRunIsIdempotent(t *testing.T) {
	dir := extractCorpus(t, cleanCorpus)
	cfg := Config{Dir: dir}

	first, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	a, err := first.JSON()
	if err != nil {
		t.Fatal(err)
	}
	b, err := second.JSON()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("reports differ across runs:\n%s\n---\n%s", a, b)
	}
}

func TestRunGhostReferenceFails(t *testing.T) {
	ghost := strings.Replace(cleanCorpus,
		"      urn: urn:machinenativeops:module:config-manager\n",
		"      urn: urn:machinenativeops:module:config-manager\n      depends_on: urn:machinenativeops:module:ghost\n",
		1)
	dir := extractCorpus(t, ghost)

	rep, err := Run(context.Background(), Config{Dir: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Pass {
		t.Fatal("corpus with an unresolved urn must fail")
	}
	if rep.Summary.Errors != 1 || rep.Summary.Reference != 1 {
		t.Errorf("summary = %+v, want exactly one reference error", rep.Summary)
	}
	if !strings.Contains(rep.Issues[0].Message, "ghost") {
		t.Errorf("issue = %+v, want the ghost urn named", rep.Issues[0])
	}
}

func TestRunMalformedYAMLIsFatal(t *testing.T) {
	dir := extractCorpus(t, cleanCorpus)
	broken := filepath.Join(dir, "root.broken.yaml")
	if err := os.WriteFile(broken, []byte("ok: yes\n  bad indent: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Run(context.Background(), Config{Dir: dir})
	if err == nil {
		t.Fatal("expected fatal error for malformed yaml")
	}
	var pe *document.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *document.ParseError, got %T: %v", err, err)
	}
	if pe.FilePath != broken {
		t.Errorf("parse error file = %q, want %q", pe.FilePath, broken)
	}
}

func TestRunEmptyDirectoryIsFatal(t *testing.T) {
	if _, err := Run(context.Background(), Config{Dir: t.TempDir()}); err == nil {
		t.Fatal("expected error for a directory with no root.* files")
	}
}

func TestDiscoverClassifiesFileSets(t *testing.T) {
	dir := extractCorpus(t, cleanCorpus)
	// Non-root files must be ignored outright.
	if err := os.WriteFile(filepath.Join(dir, "notes.yaml"), []byte("x: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := Discover(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Roots) != 1 || filepath.Base(set.Roots[0]) != "root.modules.yaml" {
		t.Errorf("roots = %v", set.Roots)
	}
	if len(set.Specs) != 5 {
		t.Errorf("specs = %v, want 5 rule files", set.Specs)
	}
	if len(set.Registries) != 2 {
		t.Errorf("registries = %v, want 2", set.Registries)
	}

	all := set.All()
	for i := 1; i < len(all); i++ {
		if all[i-1] >= all[i] {
			t.Fatalf("All() not sorted: %v", all)
		}
	}
}

func TestWriteReport(t *testing.T) {
	rep, err := Run(context.Background(), Config{Dir: extractCorpus(t, cleanCorpus)})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.json")
		if err := WriteReport(Config{ReportPath: path, Format: "json"}, rep); err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Contains(data, []byte(`"pass": true`)) {
			t.Errorf("json report missing pass field:\n%s", data)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.yaml")
		if err := WriteReport(Config{ReportPath: path, Format: "yaml"}, rep); err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Contains(data, []byte("pass: true")) {
			t.Errorf("yaml report missing pass field:\n%s", data)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.toml")
		if err := WriteReport(Config{ReportPath: path, Format: "toml"}, rep); err == nil {
			t.Error("expected error for unknown format")
		}
	})

	t.Run("no path is a no-op", func(t *testing.T) {
		if err := WriteReport(Config{}, rep); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("ROOTLINT_DIR", "/corpus")
	t.Setenv("ROOTLINT_FORMAT", "yaml")
	t.Setenv("ROOTLINT_QUIET", "true")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Dir != "/corpus" || cfg.Format != "yaml" || !cfg.Quiet {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ReportPath != "" {
		t.Errorf("report path = %q, want empty default", cfg.ReportPath)
	}
}

func TestConfigDefaults(t *testing.T) {
	for _, key := range []string{"ROOTLINT_DIR", "ROOTLINT_REPORT", "ROOTLINT_FORMAT", "ROOTLINT_QUIET"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Dir != "." || cfg.Format != "json" || cfg.Quiet {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}
