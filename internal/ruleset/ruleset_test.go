package ruleset

import (
	"strings"
	"testing"

	"github.com/machinenativeops/rootlint/internal/document"
	"github.com/machinenativeops/rootlint/internal/issue"
)

func mustParse(t *testing.T, path, data string) *document.Document {
	t.Helper()
	docs, err := document.Parse(path, []byte(data))
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return docs[0]
}

func TestBuildNoFilesWarnsPerCategory(t *testing.T) {
	rs, issues := Build(nil)

	warnings := 0
	for _, iss := range issues {
		if iss.Severity != issue.SeverityWarning {
			t.Errorf("missing rule file must be a warning, got %+v", iss)
		}
		warnings++
	}
	if warnings != len(issue.Categories) {
		t.Errorf("warnings = %d, want one per category (%d)", warnings, len(issue.Categories))
	}

	// Defaults still apply.
	if !rs.KeyPattern().MatchString("snake_case") {
		t.Error("default key pattern rejects snake_case")
	}
	if rs.KeyPattern().MatchString("CamelCase") {
		t.Error("default key pattern accepts CamelCase")
	}
}

func TestNilRuleSetIsUsable(t *testing.T) {
	var rs *RuleSet
	if rs.KeyPattern() == nil || rs.FileNamePattern() == nil || rs.URNPattern() == nil {
		t.Fatal("nil RuleSet must expose defaults")
	}
	if rs.ExtraNamingExceptions() != nil {
		t.Error("nil RuleSet must have no extra exceptions")
	}
}

func TestOverridesAndExceptions(t *testing.T) {
	doc := mustParse(t, "root.specs.naming.yaml", `apiVersion: governance/v1
kind: RuleSpec
spec:
  naming_rules:
    yaml_keys:
      pattern: "^[a-z]+$"
      exceptions:
        - pattern: "^x-"
    file_names:
      pattern: "^root\\.[a-z]+\\.yaml$"
`)
	rs, issues := Build([]*document.Document{doc})
	for _, iss := range issues {
		if iss.Severity == issue.SeverityError {
			t.Fatalf("unexpected error issue: %+v", iss)
		}
	}
	if rs.KeyPattern().MatchString("snake_case") {
		t.Error("override should reject underscores")
	}
	excs := rs.ExtraNamingExceptions()
	if len(excs) != 1 || !excs[0].MatchString("x-custom") {
		t.Errorf("extra exceptions = %v", excs)
	}
}

func TestInvalidPatternIsError(t *testing.T) {
	doc := mustParse(t, "root.specs.references.yaml", `spec:
  reference_formats:
    urn:
      pattern: "(["
`)
	rs, issues := Build([]*document.Document{doc})

	var found bool
	for _, iss := range issues {
		if iss.Severity == issue.SeverityError && strings.Contains(iss.Message, "invalid pattern") {
			found = true
			if iss.Category != issue.CategoryReference {
				t.Errorf("category = %q, want reference", iss.Category)
			}
		}
	}
	if !found {
		t.Fatalf("expected invalid-pattern error, got %v", issues)
	}
	// The broken override must not displace the default grammar.
	if !rs.URNPattern().MatchString("urn:ns:module:x") {
		t.Error("default urn pattern should survive a broken override")
	}
}

func TestUnrecognizedRuleFileName(t *testing.T) {
	doc := mustParse(t, "root.specs.bogus.yaml", "spec: {}\n")
	_, issues := Build([]*document.Document{doc})

	var warned bool
	for _, iss := range issues {
		if iss.Severity == issue.SeverityWarning && strings.Contains(iss.Message, "unrecognized rule file") {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected unrecognized-file warning, got %v", issues)
	}
}

func TestFileNameRoundTrip(t *testing.T) {
	for _, cat := range issue.Categories {
		name := FileName(cat)
		if name == "" {
			t.Fatalf("no file name for category %q", cat)
		}
		got, ok := categoryOf(name)
		if !ok || got != cat {
			t.Errorf("categoryOf(%q) = %q/%v, want %q", name, got, ok, cat)
		}
	}
}
