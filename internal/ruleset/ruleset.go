// Package ruleset loads the per-category rule files
// (root.specs.<category>.yaml). The five rule categories and their core
// semantics are fixed contracts; rule files may only tighten or extend them:
// override the key/file-name patterns, add naming exception patterns, or
// override the URN grammar. A missing rule file is a warning, not an error —
// built-in defaults apply.
package ruleset

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/machinenativeops/rootlint/internal/document"
	"github.com/machinenativeops/rootlint/internal/issue"
)

// Built-in defaults. These encode the root layer conventions directly so the
// gate works with no rule files at all.
var (
	defaultKeyPattern      = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	defaultFileNamePattern = regexp.MustCompile(`^root(\.[a-z0-9_]+)+\.yaml$`)
	defaultURNPattern      = regexp.MustCompile(`^urn:[a-z0-9][a-z0-9-]*:(module|service|config|policy|certificate|audit):[A-Za-z0-9._-]+(:[A-Za-z0-9._-]+)?$`)
)

// specFile mirrors the rule file YAML layout (root.specs.*.yaml).
type specFile struct {
	Spec struct {
		NamingRules struct {
			YAMLKeys struct {
				Pattern    string `yaml:"pattern"`
				Exceptions []struct {
					Pattern string `yaml:"pattern"`
				} `yaml:"exceptions"`
			} `yaml:"yaml_keys"`
			FileNames struct {
				Pattern string `yaml:"pattern"`
			} `yaml:"file_names"`
		} `yaml:"naming_rules"`
		ReferenceFormats struct {
			URN struct {
				Pattern string `yaml:"pattern"`
			} `yaml:"urn"`
		} `yaml:"reference_formats"`
	} `yaml:"spec"`
}

// RuleSet is the merged rule configuration for one run. Zero value and nil
// are usable and mean "all defaults".
type RuleSet struct {
	keyPattern      *regexp.Regexp
	fileNamePattern *regexp.Regexp
	urnPattern      *regexp.Regexp
	extraExceptions []*regexp.Regexp
}

// categoryFromFileName maps root.specs.<name>.yaml to its rule category.
// The references file keeps its historical plural name.
var categoryFromFileName = map[string]issue.Category{
	"naming":     issue.CategoryNaming,
	"references": issue.CategoryReference,
	"mapping":    issue.CategoryMapping,
	"logic":      issue.CategoryLogic,
	"context":    issue.CategoryContext,
}

// FileName returns the rule file name for a category.
func FileName(cat issue.Category) string {
	for name, c := range categoryFromFileName {
		if c == cat {
			return "root.specs." + name + ".yaml"
		}
	}
	return ""
}

// Build merges the loaded rule documents into a RuleSet. Categories with no
// rule file produce a warning and fall back to defaults; an invalid pattern
// in a rule file is an error (a silently dropped override could open the
// gate).
func Build(docs []*document.Document) (*RuleSet, []issue.Issue) {
	rs := &RuleSet{}
	var issues []issue.Issue

	seen := make(map[issue.Category]bool)
	for _, doc := range docs {
		cat, ok := categoryOf(doc.FilePath)
		if !ok {
			issues = append(issues, issue.Warnf(issue.CategoryNaming, doc.FilePath, "",
				"unrecognized rule file name; expected root.specs.<category>.yaml"))
			continue
		}
		seen[cat] = true
		issues = append(issues, rs.apply(doc, cat)...)
	}

	for _, cat := range issue.Categories {
		if !seen[cat] {
			issues = append(issues, issue.Warnf(cat, FileName(cat), "",
				"rule file not found; built-in defaults apply"))
		}
	}
	return rs, issues
}

func categoryOf(path string) (issue.Category, bool) {
	base := filepath.Base(path)
	name := strings.TrimSuffix(strings.TrimPrefix(base, "root.specs."), ".yaml")
	cat, ok := categoryFromFileName[name]
	return cat, ok
}

func (rs *RuleSet) apply(doc *document.Document, cat issue.Category) []issue.Issue {
	var file specFile
	if err := doc.Decode(&file); err != nil {
		return []issue.Issue{issue.Errorf(cat, doc.FilePath, "",
			"rule file has unexpected shape: %v", err)}
	}

	var issues []issue.Issue
	compile := func(loc, pattern string, dst **regexp.Regexp) {
		if pattern == "" {
			return
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			issues = append(issues, issue.Errorf(cat, doc.FilePath, loc,
				"invalid pattern %q: %v", pattern, err))
			return
		}
		*dst = re
	}

	compile("spec.naming_rules.yaml_keys.pattern", file.Spec.NamingRules.YAMLKeys.Pattern, &rs.keyPattern)
	compile("spec.naming_rules.file_names.pattern", file.Spec.NamingRules.FileNames.Pattern, &rs.fileNamePattern)
	compile("spec.reference_formats.urn.pattern", file.Spec.ReferenceFormats.URN.Pattern, &rs.urnPattern)

	for i, exc := range file.Spec.NamingRules.YAMLKeys.Exceptions {
		loc := fmt.Sprintf("spec.naming_rules.yaml_keys.exceptions[%d]", i)
		re, err := regexp.Compile(exc.Pattern)
		if err != nil {
			issues = append(issues, issue.Errorf(cat, doc.FilePath, loc,
				"invalid exception pattern %q: %v", exc.Pattern, err))
			continue
		}
		rs.extraExceptions = append(rs.extraExceptions, re)
	}
	return issues
}

// KeyPattern returns the mapping-key pattern. Nil-safe.
func (rs *RuleSet) KeyPattern() *regexp.Regexp {
	if rs == nil || rs.keyPattern == nil {
		return defaultKeyPattern
	}
	return rs.keyPattern
}

// FileNamePattern returns the root file name pattern. Nil-safe.
func (rs *RuleSet) FileNamePattern() *regexp.Regexp {
	if rs == nil || rs.fileNamePattern == nil {
		return defaultFileNamePattern
	}
	return rs.fileNamePattern
}

// URNPattern returns the full-match URN grammar. Nil-safe.
func (rs *RuleSet) URNPattern() *regexp.Regexp {
	if rs == nil || rs.urnPattern == nil {
		return defaultURNPattern
	}
	return rs.urnPattern
}

// ExtraNamingExceptions returns exception patterns added by rule files, on
// top of the fixed built-in exception list. Nil-safe.
func (rs *RuleSet) ExtraNamingExceptions() []*regexp.Regexp {
	if rs == nil {
		return nil
	}
	return rs.extraExceptions
}
