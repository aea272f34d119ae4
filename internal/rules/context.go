package rules

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/machinenativeops/rootlint/internal/issue"
)

// ContextValidator detects cross-file drift: fields that describe the same
// entity in several files must agree. Identity fields must match exactly,
// versions must stay semver-compatible, and free-text descriptions are only
// expected to stay similar.
//
// Similarity is the Jaccard token-overlap ratio over lower-cased tokens;
// below 0.8 the descriptions are flagged as possible semantic drift. Drift
// warnings never block: natural-language descriptions legitimately vary.
type ContextValidator struct{}

func (v *ContextValidator) Category() issue.Category { return issue.CategoryContext }

const driftThreshold = 0.8

var (
	exactKeys = []string{"module_id", "namespace", "kind"}
	fuzzyKeys = []string{"description"}
)

// occurrence is one sighting of an entity in one file.
type occurrence struct {
	file     string
	location string
	fields   map[string]string
}

func (v *ContextValidator) Validate(in Input) []issue.Issue {
	byEntity := collectOccurrences(in)

	entityIDs := make([]string, 0, len(byEntity))
	for id := range byEntity {
		entityIDs = append(entityIDs, id)
	}
	sort.Strings(entityIDs)

	var issues []issue.Issue
	for _, id := range entityIDs {
		occs := byEntity[id]
		if !spansMultipleFiles(occs) {
			continue // nothing to compare
		}
		issues = append(issues, compareExact(id, occs)...)
		issues = append(issues, compareVersions(id, occs)...)
		issues = append(issues, compareFuzzy(id, occs)...)
	}
	return issues
}

// collectOccurrences joins every sighting of an entity across the corpus:
// module registry entries plus any root-document mapping that carries a
// module_id. The join is explicit and keyed by identity, never ad hoc
// string comparison at use sites.
func collectOccurrences(in Input) map[string][]occurrence {
	byEntity := make(map[string][]occurrence)

	if in.Registry != nil {
		for _, mod := range in.Registry.Modules() {
			fields := map[string]string{
				"module_id":   mod.ID,
				"name":        mod.Name,
				"version":     mod.Version,
				"namespace":   mod.Namespace,
				"description": mod.Description,
			}
			byEntity[mod.ID] = append(byEntity[mod.ID], occurrence{
				file:     mod.SourceFile,
				location: fmt.Sprintf("spec.modules[%d]", mod.SourceIndex),
				fields:   prune(fields),
			})
		}
	}

	for _, doc := range in.Documents {
		walkMappings(doc.Content(), "", func(path string, m map[string]any) {
			id, ok := m["module_id"].(string)
			if !ok || id == "" {
				return
			}
			fields := map[string]string{"module_id": id}
			for _, key := range []string{"name", "version", "namespace", "kind", "apiVersion", "description"} {
				if s, ok := m[key].(string); ok {
					fields[key] = s
				}
			}
			byEntity[id] = append(byEntity[id], occurrence{
				file:     doc.FilePath,
				location: path,
				fields:   prune(fields),
			})
		})
	}
	return byEntity
}

func prune(fields map[string]string) map[string]string {
	for k, v := range fields {
		if v == "" {
			delete(fields, k)
		}
	}
	return fields
}

func spansMultipleFiles(occs []occurrence) bool {
	for _, occ := range occs[1:] {
		if occ.file != occs[0].file {
			return true
		}
	}
	return false
}

// compareExact flags any divergence on identity keys: zero tolerance.
func compareExact(id string, occs []occurrence) []issue.Issue {
	var issues []issue.Issue
	for _, key := range exactKeys {
		first, ok := firstValue(occs, key)
		if !ok {
			continue
		}
		for _, occ := range occs {
			val, present := occ.fields[key]
			if !present || val == first.val || occ.file == first.file {
				continue
			}
			issues = append(issues, issue.Errorf(issue.CategoryContext, occ.file, occ.location,
				"entity %q: %s %q diverges from %q declared in %s", id, key, val, first.val, first.file).
				WithFix(fmt.Sprintf("align %s with the registry value %q", key, first.val)))
		}
	}
	return issues
}

// compareVersions applies the compatibility contract: a major-version
// mismatch across files is an error, a minor-version mismatch a warning,
// patch-level differences pass.
func compareVersions(id string, occs []occurrence) []issue.Issue {
	first, ok := firstValue(occs, "version")
	if !ok {
		return nil
	}
	var issues []issue.Issue
	for _, occ := range occs {
		val, present := occ.fields["version"]
		if !present || occ.file == first.file {
			continue
		}
		a, b := "v"+strings.TrimPrefix(first.val, "v"), "v"+strings.TrimPrefix(val, "v")
		if !semver.IsValid(a) || !semver.IsValid(b) {
			if val != first.val {
				issues = append(issues, issue.Warnf(issue.CategoryContext, occ.file, occ.location,
					"entity %q: version %q is not comparable with %q from %s (not semver)",
					id, val, first.val, first.file))
			}
			continue
		}
		switch {
		case semver.Major(a) != semver.Major(b):
			issues = append(issues, issue.Errorf(issue.CategoryContext, occ.file, occ.location,
				"entity %q: version %s conflicts with %s declared in %s (major mismatch)",
				id, val, first.val, first.file).
				WithFix("align the major version across files"))
		case semver.MajorMinor(a) != semver.MajorMinor(b):
			issues = append(issues, issue.Warnf(issue.CategoryContext, occ.file, occ.location,
				"entity %q: version %s differs from %s declared in %s (minor mismatch)",
				id, val, first.val, first.file))
		}
	}
	return issues
}

// compareFuzzy flags descriptions whose token overlap with the first
// sighting falls below the drift threshold.
func compareFuzzy(id string, occs []occurrence) []issue.Issue {
	var issues []issue.Issue
	for _, key := range fuzzyKeys {
		first, ok := firstValue(occs, key)
		if !ok {
			continue
		}
		for _, occ := range occs {
			val, present := occ.fields[key]
			if !present || occ.file == first.file {
				continue
			}
			if sim := tokenOverlap(first.val, val); sim < driftThreshold {
				issues = append(issues, issue.Warnf(issue.CategoryContext, occ.file, occ.location,
					"entity %q: possible semantic drift in %s (similarity %.2f against %s)",
					id, key, sim, first.file))
			}
		}
	}
	return issues
}

type fieldValue struct {
	val  string
	file string
}

func firstValue(occs []occurrence, key string) (fieldValue, bool) {
	for _, occ := range occs {
		if val, ok := occ.fields[key]; ok {
			return fieldValue{val: val, file: occ.file}, true
		}
	}
	return fieldValue{}, false
}

// tokenOverlap is the Jaccard ratio |A∩B| / |A∪B| over lower-cased tokens
// split on whitespace and punctuation.
func tokenOverlap(a, b string) float64 {
	ta, tb := tokenize(a), tokenize(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	union := make(map[string]bool, len(ta)+len(tb))
	var intersection int
	for tok := range ta {
		union[tok] = true
	}
	for tok := range tb {
		if ta[tok] {
			intersection++
		}
		union[tok] = true
	}
	return float64(intersection) / float64(len(union))
}

func tokenize(s string) map[string]bool {
	tokens := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	set := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		set[tok] = true
	}
	return set
}
