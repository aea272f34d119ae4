package rules

import (
	"strings"
	"testing"

	"github.com/machinenativeops/rootlint/internal/document"
	"github.com/machinenativeops/rootlint/internal/issue"
	"github.com/machinenativeops/rootlint/internal/registry"
)

// contextInput joins a module registry declaration with one root document
// sighting of the same module.
func contextInput(t *testing.T, registryModule, rootModule string) Input {
	t.Helper()
	ix, issues := registry.Build([]*document.Document{
		mustParse(t, "root.registry.modules.yaml", "spec:\n  modules:\n    - "+registryModule+"\n"),
	})
	if len(issues) != 0 {
		t.Fatalf("registry build issues: %v", issues)
	}
	doc := mustParse(t, "root.modules.yaml", "spec:\n  modules:\n    - "+rootModule+"\n")
	return Input{Documents: []*document.Document{doc}, Registry: ix}
}

func contextIssues(t *testing.T, in Input) []issue.Issue {
	t.Helper()
	return (&ContextValidator{}).Validate(in)
}

func TestAgreementAcrossFilesIsClean(t *testing.T) {
	in := contextInput(t,
		`id: m
      version: 1.2.0
      namespace: machinenativeops
      description: manages configuration files for the platform`,
		`module_id: m
      version: 1.2.0
      namespace: machinenativeops
      description: manages configuration files for the platform`)
	if issues := contextIssues(t, in); len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

// TestSingleFileNeverDrifts: drift is a cross-file property; repeated
// sightings inside one file are not compared.
func TestSingleFileNeverDrifts(t *testing.T) {
	doc := mustParse(t, "root.modules.yaml", `spec:
  modules:
    - module_id: m
      namespace: one
  shadow:
    - module_id: m
      namespace: other
`)
	issues := contextIssues(t, Input{Documents: []*document.Document{doc}})
	if len(issues) != 0 {
		t.Fatalf("single-file divergence flagged: %v", issues)
	}
}

func TestNamespaceDivergenceIsError(t *testing.T) {
	in := contextInput(t,
		"id: m\n      namespace: machinenativeops",
		"module_id: m\n      namespace: legacyops")
	issues := contextIssues(t, in)
	if len(issues) != 1 {
		t.Fatalf("issues = %v, want one divergence error", issues)
	}
	iss := issues[0]
	if iss.Severity != issue.SeverityError {
		t.Errorf("identity divergence must be an error: %+v", iss)
	}
	if !strings.Contains(iss.Message, `namespace "legacyops" diverges from "machinenativeops"`) {
		t.Errorf("message = %q", iss.Message)
	}
	if iss.FilePath != "root.modules.yaml" {
		t.Errorf("divergence attributed to %q, want the diverging file", iss.FilePath)
	}
}

func TestVersionCompatibility(t *testing.T) {
	tests := []struct {
		name         string
		registry     string
		root         string
		wantSeverity issue.Severity // "" means no finding
	}{
		{"patch difference passes", "1.2.0", "1.2.5", ""},
		{"minor mismatch warns", "1.2.0", "1.3.0", issue.SeverityWarning},
		{"major mismatch errors", "1.2.0", "2.0.0", issue.SeverityError},
		{"v prefix tolerated", "v1.2.0", "1.2.3", ""},
		{"non-semver unequal warns", "1.2.0", "latest", issue.SeverityWarning},
		{"non-semver equal passes", "latest", "latest", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := contextInput(t,
				"id: m\n      version: \""+tt.registry+"\"",
				"module_id: m\n      version: \""+tt.root+"\"")
			issues := contextIssues(t, in)
			if tt.wantSeverity == "" {
				if len(issues) != 0 {
					t.Fatalf("unexpected issues: %v", issues)
				}
				return
			}
			if len(issues) != 1 {
				t.Fatalf("issues = %v, want 1", issues)
			}
			if issues[0].Severity != tt.wantSeverity {
				t.Errorf("severity = %q, want %q", issues[0].Severity, tt.wantSeverity)
			}
		})
	}
}

func TestDescriptionDrift(t *testing.T) {
	tests := []struct {
		name    string
		a, b    string
		flagged bool
	}{
		{
			"identical",
			"manages configuration files",
			"manages configuration files",
			false,
		},
		{
			"one extra token stays above threshold",
			"manages the configuration files for the platform",
			"manages the configuration files for the whole platform",
			false,
		},
		{
			"unrelated text drifts",
			"manages configuration files",
			"rotates certificates automatically",
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := contextInput(t,
				"id: m\n      description: "+tt.a,
				"module_id: m\n      description: "+tt.b)
			issues := contextIssues(t, in)
			if !tt.flagged {
				if len(issues) != 0 {
					t.Fatalf("unexpected issues: %v", issues)
				}
				return
			}
			if len(issues) != 1 {
				t.Fatalf("issues = %v, want one drift warning", issues)
			}
			if issues[0].Severity != issue.SeverityWarning {
				t.Error("drift never blocks; severity must be warning")
			}
			if !strings.Contains(issues[0].Message, "semantic drift") {
				t.Errorf("message = %q", issues[0].Message)
			}
		})
	}
}

func TestTokenOverlap(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"alpha beta", "alpha beta", 1},
		{"alpha beta", "gamma delta", 0},
		{"Alpha, beta!", "beta alpha", 1}, // case and punctuation ignored
		{"a b c d", "a b c e", 0.6},       // 3 shared of 5 distinct
	}
	for _, tt := range tests {
		if got := tokenOverlap(tt.a, tt.b); got != tt.want {
			t.Errorf("tokenOverlap(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
