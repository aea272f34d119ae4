package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/machinenativeops/rootlint/internal/issue"
)

// MappingValidator checks that registry entries map onto the things they
// claim to describe: a module's entrypoint carries the module name, a URN's
// target file actually exists, and module categories stay inside the
// registry's declared category set.
type MappingValidator struct{}

func (v *MappingValidator) Category() issue.Category { return issue.CategoryMapping }

func (v *MappingValidator) Validate(in Input) []issue.Issue {
	if in.Registry == nil {
		return nil
	}
	var issues []issue.Issue

	categories := in.Registry.Categories()
	for _, mod := range in.Registry.Modules() {
		loc := fmt.Sprintf("spec.modules[%d]", mod.SourceIndex)

		if mod.Name != "" && mod.Entrypoint != "" && !strings.Contains(mod.Entrypoint, mod.Name) {
			issues = append(issues, issue.Errorf(issue.CategoryMapping, mod.SourceFile, loc,
				"module %q: name not found in entrypoint %q", mod.Name, mod.Entrypoint).
				WithFix("align the entrypoint path with the module name"))
		}

		if len(categories) > 0 && mod.Category != "" && !contains(categories, mod.Category) {
			issues = append(issues, issue.Errorf(issue.CategoryMapping, mod.SourceFile, loc,
				"module %q: category %q is not declared in spec.categories (known: %s)",
				mod.ID, mod.Category, strings.Join(categories, ", ")))
		}
	}

	for _, entry := range in.Registry.URNs() {
		if entry.Target.File == "" {
			continue
		}
		if in.BaseDir == "" {
			issues = append(issues, issue.Warnf(issue.CategoryMapping, entry.SourceFile, "",
				"urn %q: target file %q cannot be verified: no base directory declared",
				entry.URN, entry.Target.File))
			continue
		}
		target := entry.Target.File
		if !filepath.IsAbs(target) {
			target = filepath.Join(in.BaseDir, target)
		}
		if _, err := os.Stat(target); err != nil {
			issues = append(issues, issue.Errorf(issue.CategoryMapping, entry.SourceFile, "",
				"urn %q: target file %q does not exist under %s",
				entry.URN, entry.Target.File, in.BaseDir).
				WithFix("fix the target file path or remove the registry entry"))
		}
	}
	return issues
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
