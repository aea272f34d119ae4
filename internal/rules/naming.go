package rules

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/machinenativeops/rootlint/internal/issue"
)

// NamingValidator checks every mapping key in every root document against
// the snake_case key convention, and every file name against the
// root.<category>.yaml convention.
//
// A fixed exception list keeps the rule honest about real-world YAML:
// environment-variable keys, the reserved apiVersion/kind fields, timestamp
// suffixes, label keys carrying a slash, and kebab-case identifiers all
// pass. Subtrees whose owning mapping declares `opaque: true` are free-form
// payloads and are skipped entirely.
type NamingValidator struct{}

func (v *NamingValidator) Category() issue.Category { return issue.CategoryNaming }

var (
	envKeyPattern   = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
	kebabKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

	reservedKeys = map[string]bool{
		"apiVersion": true,
		"kind":       true,
	}

	timestampSuffixes = []string{"Time", "Timestamp", "_at"}
)

func (v *NamingValidator) Validate(in Input) []issue.Issue {
	var issues []issue.Issue
	for _, doc := range in.Documents {
		issues = append(issues, v.checkFileName(in, doc.FilePath)...)
		if doc.Root != nil {
			issues = append(issues, v.walk(in, doc.FilePath, doc.Root, "")...)
		}
	}
	return issues
}

// checkFileName enforces root.<category>.yaml: all lowercase, no spaces,
// and the yaml extension spelled out (never .yml).
func (v *NamingValidator) checkFileName(in Input, path string) []issue.Issue {
	base := filepath.Base(path)
	if in.Rules.FileNamePattern().MatchString(base) {
		return nil
	}
	iss := issue.Errorf(issue.CategoryNaming, path, "",
		"file name %q does not match pattern %s", base, in.Rules.FileNamePattern())
	if strings.HasSuffix(base, ".yml") {
		iss = iss.WithFix("rename to " + strings.TrimSuffix(base, ".yml") + ".yaml")
	} else if fix := suggestFileName(base); fix != base {
		iss = iss.WithFix("rename to " + fix)
	}
	return []issue.Issue{iss}
}

// walk recursively visits every mapping key beneath n.
func (v *NamingValidator) walk(in Input, file string, n *yaml.Node, path string) []issue.Issue {
	switch n.Kind {
	case yaml.MappingNode:
		if isOpaque(n) {
			return nil
		}
		var issues []issue.Issue
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			keyPath := joinPath(path, key.Value)
			if !v.keyAllowed(in, key.Value) {
				issues = append(issues, issue.Errorf(issue.CategoryNaming, file, keyPath,
					"key %q does not match pattern %s", key.Value, in.Rules.KeyPattern()).
					WithFix("rename to "+toSnakeCase(key.Value)))
			}
			issues = append(issues, v.walk(in, file, val, keyPath)...)
		}
		return issues
	case yaml.SequenceNode:
		var issues []issue.Issue
		for i, item := range n.Content {
			issues = append(issues, v.walk(in, file, item, fmt.Sprintf("%s[%d]", path, i))...)
		}
		return issues
	case yaml.AliasNode:
		// anchors are validated where they are defined
		return nil
	default:
		return nil
	}
}

func (v *NamingValidator) keyAllowed(in Input, key string) bool {
	if in.Rules.KeyPattern().MatchString(key) {
		return true
	}
	if reservedKeys[key] || envKeyPattern.MatchString(key) || kebabKeyPattern.MatchString(key) {
		return true
	}
	if strings.Contains(key, "/") {
		return true
	}
	for _, suffix := range timestampSuffixes {
		if strings.HasSuffix(key, suffix) {
			return true
		}
	}
	for _, re := range in.Rules.ExtraNamingExceptions() {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}

// isOpaque reports whether a mapping declares itself a free-form payload.
func isOpaque(n *yaml.Node) bool {
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if key.Value == "opaque" && val.Kind == yaml.ScalarNode && val.Value == "true" {
			return true
		}
	}
	return false
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

var nonIdentRun = regexp.MustCompile(`[^a-z0-9]+`)

// toSnakeCase rewrites an offending key into the suggested snake_case form:
// camel humps become underscores, everything else lowercases, and runs of
// non-identifier characters collapse to a single underscore.
func toSnakeCase(key string) string {
	var b strings.Builder
	for i, r := range key {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	out := nonIdentRun.ReplaceAllString(strings.ToLower(b.String()), "_")
	return strings.Trim(out, "_")
}

func suggestFileName(base string) string {
	out := strings.ToLower(strings.ReplaceAll(base, " ", "_"))
	return out
}
