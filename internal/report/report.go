// Package report merges per-category findings into one deterministic
// validation report. Re-running on unchanged input yields a byte-identical
// report: issues are fully ordered, summary fields are fixed structs, and
// provenance is a hash over the sorted input set rather than a timestamp.
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/machinenativeops/rootlint/internal/issue"
)

// InputFile identifies one validated file by path and content digest.
type InputFile struct {
	Path   string
	SHA256 string
}

// Summary carries the per-severity and per-category counts.
type Summary struct {
	Errors   int `json:"errors" yaml:"errors"`
	Warnings int `json:"warnings" yaml:"warnings"`

	Naming    int `json:"naming" yaml:"naming"`
	Reference int `json:"reference" yaml:"reference"`
	Mapping   int `json:"mapping" yaml:"mapping"`
	Logic     int `json:"logic" yaml:"logic"`
	Context   int `json:"context" yaml:"context"`
}

// Inputs records what the report was computed from.
type Inputs struct {
	Files         int    `json:"files" yaml:"files"`
	FileSetSHA256 string `json:"file_set_sha256" yaml:"file_set_sha256"`
}

// Report is the aggregated result of one validation run.
type Report struct {
	Pass    bool          `json:"pass" yaml:"pass"`
	Summary Summary       `json:"summary" yaml:"summary"`
	Inputs  Inputs        `json:"inputs" yaml:"inputs"`
	Issues  []issue.Issue `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// Build sorts and counts the issues. Pass is true iff no error-severity
// issue exists in any category; warnings never block.
func Build(issues []issue.Issue, files []InputFile) *Report {
	sorted := append([]issue.Issue(nil), issues...)
	sort.SliceStable(sorted, func(i, j int) bool { return issue.Less(sorted[i], sorted[j]) })

	r := &Report{
		Issues: sorted,
		Inputs: Inputs{
			Files:         len(files),
			FileSetSHA256: hashFileSet(files),
		},
	}
	for _, iss := range sorted {
		switch iss.Severity {
		case issue.SeverityError:
			r.Summary.Errors++
		case issue.SeverityWarning:
			r.Summary.Warnings++
		}
		switch iss.Category {
		case issue.CategoryNaming:
			r.Summary.Naming++
		case issue.CategoryReference:
			r.Summary.Reference++
		case issue.CategoryMapping:
			r.Summary.Mapping++
		case issue.CategoryLogic:
			r.Summary.Logic++
		case issue.CategoryContext:
			r.Summary.Context++
		}
	}
	r.Pass = r.Summary.Errors == 0
	return r
}

// hashFileSet hashes the sorted "path@sha256" lines of the input set,
// tying a report to its inputs without breaking idempotence.
func hashFileSet(files []InputFile) string {
	lines := make([]string, len(files))
	for i, f := range files {
		lines[i] = f.Path + "@" + f.SHA256
	}
	sort.Strings(lines)
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

// JSON renders the machine-readable report.
func (r *Report) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// YAML renders the report as YAML.
func (r *Report) YAML() ([]byte, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}

// Markdown renders the human-readable summary.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Root Layer Validation Report\n\n")
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- **Status:** %s\n", statusString(r.Pass))
	fmt.Fprintf(&b, "- **Errors:** %d\n", r.Summary.Errors)
	fmt.Fprintf(&b, "- **Warnings:** %d\n", r.Summary.Warnings)
	fmt.Fprintf(&b, "- **Files validated:** %d\n", r.Inputs.Files)
	fmt.Fprintf(&b, "- **Input set:** `%s`\n", r.Inputs.FileSetSHA256)

	errors := r.filter(issue.SeverityError)
	if len(errors) > 0 {
		b.WriteString("\n## Errors\n\n")
		for i, iss := range errors {
			fmt.Fprintf(&b, "%d. %s\n", i+1, iss)
		}
	}
	warnings := r.filter(issue.SeverityWarning)
	if len(warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for i, iss := range warnings {
			fmt.Fprintf(&b, "%d. %s\n", i+1, iss)
		}
	}
	return b.String()
}

func (r *Report) filter(sev issue.Severity) []issue.Issue {
	var out []issue.Issue
	for _, iss := range r.Issues {
		if iss.Severity == sev {
			out = append(out, iss)
		}
	}
	return out
}

func statusString(pass bool) string {
	if pass {
		return "PASSED"
	}
	return "FAILED"
}
