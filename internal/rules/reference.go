package rules

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/machinenativeops/rootlint/internal/document"
	"github.com/machinenativeops/rootlint/internal/issue"
	"github.com/machinenativeops/rootlint/internal/registry"
)

// ReferenceValidator resolves every URN-style reference in the root
// documents against the registries, and checks file-path references for
// existence where a base directory makes that possible.
//
// Resolution priority is a fixed contract: URN registry first, module
// registry second, direct root-file scan last. First match wins.
type ReferenceValidator struct{}

func (v *ReferenceValidator) Category() issue.Category { return issue.CategoryReference }

// urnCandidate finds anything that wants to be a URN. Candidates that fail
// the full grammar are reported as malformed, a distinct class from
// unresolved, so operators can tell a typo from a missing registration.
// Trailing periods are trimmed before matching so a URN ending a prose
// sentence is not mistaken for a distinct identifier.
var urnCandidate = regexp.MustCompile(`urn:[A-Za-z0-9:._-]+`)

// pathLikeKey marks keys whose values are file-path references.
func pathLikeKey(key string) bool {
	return key == "file" || key == "path" ||
		strings.HasSuffix(key, "_file") || strings.HasSuffix(key, "_path")
}

func (v *ReferenceValidator) Validate(in Input) []issue.Issue {
	var issues []issue.Issue

	ids := collectDeclaredIDs(in.Documents)

	for _, doc := range in.Documents {
		walkScalars(doc.Content(), "", func(path, key, value string) {
			for _, cand := range urnCandidate.FindAllString(value, -1) {
				cand = strings.TrimRight(cand, ".")
				issues = append(issues, v.checkURN(in, ids, doc.FilePath, path, cand)...)
			}
			if pathLikeKey(key) && !strings.Contains(value, "urn:") {
				issues = append(issues, v.checkFilePath(in, doc.FilePath, path, value)...)
			}
		})
	}

	// Registry entries must themselves satisfy the URN grammar.
	if in.Registry != nil {
		for _, entry := range in.Registry.URNs() {
			if !in.Rules.URNPattern().MatchString(entry.URN) {
				issues = append(issues, issue.Errorf(issue.CategoryReference, entry.SourceFile, "",
					"registered urn %q does not match grammar %s", entry.URN, in.Rules.URNPattern()))
			}
		}
	}
	return issues
}

func (v *ReferenceValidator) checkURN(in Input, ids map[string]bool, file, path, urn string) []issue.Issue {
	if !in.Rules.URNPattern().MatchString(urn) {
		return []issue.Issue{issue.Errorf(issue.CategoryReference, file, path,
			"malformed urn %q: expected urn:<namespace>:<type>:<identifier>[:<version>]", urn)}
	}

	// Priority 1: URN registry.
	if in.Registry != nil {
		if _, ok := in.Registry.ResolveURN(urn); ok {
			return nil
		}
	}

	// Priorities 2 and 3 need the type and identifier segments. A rule file
	// may loosen the grammar below four segments, so the count must be
	// checked; short URNs resolve through the registry or not at all.
	if parts := strings.Split(urn, ":"); len(parts) >= 4 {
		typ, ident := parts[2], parts[3]

		// Priority 2: module registry, by identifier, for module URNs.
		if typ == string(registry.ResourceModule) && in.Registry != nil {
			if _, ok := in.Registry.ResolveModule(ident); ok {
				return nil
			}
		}

		// Priority 3: direct root-file scan for a declared identifier.
		if ids[ident] {
			return nil
		}
	}

	return []issue.Issue{issue.Errorf(issue.CategoryReference, file, path,
		"unresolved urn %q: not present in any registry", urn).
		WithFix("register the urn in root.registry.urns.yaml or remove the reference")}
}

func (v *ReferenceValidator) checkFilePath(in Input, file, path, ref string) []issue.Issue {
	if ref == "" || strings.Contains(ref, "://") {
		return nil
	}
	if in.BaseDir == "" {
		return []issue.Issue{issue.Warnf(issue.CategoryReference, file, path,
			"file reference %q cannot be verified: no base directory declared", ref)}
	}
	target := ref
	if !filepath.IsAbs(target) {
		target = filepath.Join(in.BaseDir, ref)
	}
	if _, err := os.Stat(target); err != nil {
		return []issue.Issue{issue.Errorf(issue.CategoryReference, file, path,
			"file reference %q does not exist under %s", ref, in.BaseDir)}
	}
	return nil
}

// collectDeclaredIDs gathers every id / module_id declared by the root
// documents themselves, for the last-resort resolution step.
func collectDeclaredIDs(docs []*document.Document) map[string]bool {
	ids := make(map[string]bool)
	for _, doc := range docs {
		walkMappings(doc.Content(), "", func(_ string, m map[string]any) {
			for _, key := range []string{"id", "module_id"} {
				if s, ok := m[key].(string); ok && s != "" {
					ids[s] = true
				}
			}
		})
	}
	return ids
}
