// Package issue defines the finding model shared by every rule category:
// severities, categories, and the single-issue record that validators emit.
package issue

import (
	"fmt"
	"strings"
)

// Severity classifies how an issue affects the gate decision. Errors block,
// warnings never do.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Category names the rule family an issue belongs to.
type Category string

const (
	CategoryNaming    Category = "naming"
	CategoryReference Category = "reference"
	CategoryMapping   Category = "mapping"
	CategoryLogic     Category = "logic"
	CategoryContext   Category = "context"
)

// Categories lists all rule categories in report order.
var Categories = []Category{
	CategoryNaming,
	CategoryReference,
	CategoryMapping,
	CategoryLogic,
	CategoryContext,
}

// Issue is one rule violation or advisory finding. Issues are created during
// a single run and aggregated into a report; nothing persists across runs.
type Issue struct {
	Severity     Severity `yaml:"severity" json:"severity"`
	Category     Category `yaml:"category" json:"category"`
	Message      string   `yaml:"message" json:"message"`
	FilePath     string   `yaml:"file_path" json:"file_path"`
	Location     string   `yaml:"location,omitempty" json:"location,omitempty"`
	SuggestedFix string   `yaml:"suggested_fix,omitempty" json:"suggested_fix,omitempty"`
}

// Errorf builds an error-severity issue with a formatted message.
func Errorf(cat Category, file, location, format string, args ...any) Issue {
	return Issue{
		Severity: SeverityError,
		Category: cat,
		Message:  fmt.Sprintf(format, args...),
		FilePath: file,
		Location: location,
	}
}

// Warnf builds a warning-severity issue with a formatted message.
func Warnf(cat Category, file, location, format string, args ...any) Issue {
	return Issue{
		Severity: SeverityWarning,
		Category: cat,
		Message:  fmt.Sprintf(format, args...),
		FilePath: file,
		Location: location,
	}
}

// WithFix returns a copy of the issue carrying a suggested rewrite.
func (i Issue) WithFix(fix string) Issue {
	i.SuggestedFix = fix
	return i
}

// String renders the issue on one line:
//
//	[naming] root.modules.yaml: key 'badKey' ... at spec.modules[0] (fix: bad_key)
func (i Issue) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", i.Category)
	if i.FilePath != "" {
		fmt.Fprintf(&b, "%s: ", i.FilePath)
	}
	b.WriteString(i.Message)
	if i.Location != "" {
		fmt.Fprintf(&b, " at %s", i.Location)
	}
	if i.SuggestedFix != "" {
		fmt.Fprintf(&b, " (fix: %s)", i.SuggestedFix)
	}
	return b.String()
}

// Less orders issues deterministically: file path, then location, then
// category, severity, message, and suggested fix. Re-runs on unchanged
// input must produce byte-identical reports, so every field participates.
func Less(a, b Issue) bool {
	if a.FilePath != b.FilePath {
		return a.FilePath < b.FilePath
	}
	if a.Location != b.Location {
		return a.Location < b.Location
	}
	if a.Category != b.Category {
		return a.Category < b.Category
	}
	if a.Severity != b.Severity {
		return a.Severity < b.Severity
	}
	if a.Message != b.Message {
		return a.Message < b.Message
	}
	return a.SuggestedFix < b.SuggestedFix
}
