// Package registry builds the in-memory index over the two single-source-of
// -truth files: the module registry (root.registry.modules.yaml) and the URN
// registry (root.registry.urns.yaml). The index is built once per run and
// read-only afterwards; duplicate identifiers are reported at build time
// because they corrupt every downstream resolution.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/machinenativeops/rootlint/internal/document"
	"github.com/machinenativeops/rootlint/internal/issue"
)

// ModuleEntry is one module descriptor from the module registry.
type ModuleEntry struct {
	ID           string              `yaml:"id"`
	Name         string              `yaml:"name"`
	Version      string              `yaml:"version"`
	Category     string              `yaml:"category"`
	Namespace    string              `yaml:"namespace"`
	Description  string              `yaml:"description"`
	Enabled      bool                `yaml:"enabled"`
	AutoStart    bool                `yaml:"auto_start"`
	Priority     int                 `yaml:"priority"`
	Entrypoint   string              `yaml:"entrypoint"`
	Endpoint     string              `yaml:"endpoint"`
	HealthCheck  *HealthCheck        `yaml:"health_check"`
	Resources    map[string]Resource `yaml:"resources"`
	Dependencies DependencyList      `yaml:"dependencies"`

	// SourceFile records which registry file declared the entry.
	SourceFile string `yaml:"-"`
	// SourceIndex is the entry's position in the modules list.
	SourceIndex int `yaml:"-"`
}

// HealthCheck declares how a module is probed.
type HealthCheck struct {
	Path            string `yaml:"path"`
	IntervalSeconds int    `yaml:"interval_seconds"`
}

// Resource carries request/limit bounds for one resource dimension.
// Pointers distinguish "absent" from zero.
type Resource struct {
	Request *float64 `yaml:"request"`
	Limit   *float64 `yaml:"limit"`
}

// DependencyList accepts both registry shapes:
//
//	dependencies: [mod-a, mod-b]
//	dependencies: [{module_id: mod-a}, {module_id: mod-b}]
type DependencyList []string

func (d *DependencyList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("dependencies: expected a sequence at line %d", node.Line)
	}
	out := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			out = append(out, item.Value)
		case yaml.MappingNode:
			var obj struct {
				ModuleID string `yaml:"module_id"`
			}
			if err := item.Decode(&obj); err != nil {
				return err
			}
			out = append(out, obj.ModuleID)
		default:
			return fmt.Errorf("dependencies: unsupported entry at line %d", item.Line)
		}
	}
	*d = out
	return nil
}

// ResourceType classifies what a URN points to.
type ResourceType string

const (
	ResourceModule      ResourceType = "module"
	ResourceConfig      ResourceType = "config"
	ResourcePolicy      ResourceType = "policy"
	ResourceCertificate ResourceType = "certificate"
	ResourceAudit       ResourceType = "audit"
)

// urnGroups maps the registry's grouped list keys to their resource type.
var urnGroups = []struct {
	key string
	typ ResourceType
}{
	{"module_urns", ResourceModule},
	{"config_urns", ResourceConfig},
	{"policy_urns", ResourcePolicy},
	{"certificate_urns", ResourceCertificate},
	{"audit_urns", ResourceAudit},
}

// URNEntry maps a URN string to the authoritative definition it names.
type URNEntry struct {
	URN          string       `yaml:"urn"`
	ResourceType ResourceType `yaml:"-"`
	Target       TargetRef    `yaml:"target"`

	SourceFile string `yaml:"-"`
}

// TargetRef points at the file (and key path within it) that defines the
// resource.
type TargetRef struct {
	File string `yaml:"file"`
	Path string `yaml:"path"`
}

// Index is the frozen lookup structure handed to every validator.
// Resolution is O(1); identifiers are case-sensitive and whitespace-trimmed.
type Index struct {
	modules    map[string]ModuleEntry
	urns       map[string]URNEntry
	categories []string
}

// moduleRegistryFile and urnRegistryFile mirror the registry YAML layouts.
type moduleRegistryFile struct {
	Spec struct {
		Categories []string      `yaml:"categories"`
		Modules    []ModuleEntry `yaml:"modules"`
	} `yaml:"spec"`
}

type urnRegistryFile struct {
	Spec map[string][]URNEntry `yaml:"spec"`
}

// Build indexes the given registry documents. Malformed entries and
// duplicate identifiers surface as error issues, never as a Go error: the
// run continues so one pass reports every problem.
func Build(docs []*document.Document) (*Index, []issue.Issue) {
	ix := &Index{
		modules: make(map[string]ModuleEntry),
		urns:    make(map[string]URNEntry),
	}
	var issues []issue.Issue

	for _, doc := range docs {
		if isModuleRegistry(doc) {
			issues = append(issues, ix.addModules(doc)...)
		} else {
			issues = append(issues, ix.addURNs(doc)...)
		}
	}
	return ix, issues
}

// isModuleRegistry decides which registry shape a document carries.
func isModuleRegistry(doc *document.Document) bool {
	if doc.Kind != "" {
		return strings.EqualFold(doc.Kind, "ModuleRegistry")
	}
	root, ok := doc.Content().(map[string]any)
	if !ok {
		return false
	}
	spec, ok := root["spec"].(map[string]any)
	if !ok {
		return false
	}
	_, ok = spec["modules"]
	return ok
}

func (ix *Index) addModules(doc *document.Document) []issue.Issue {
	var file moduleRegistryFile
	if err := doc.Decode(&file); err != nil {
		return []issue.Issue{issue.Errorf(issue.CategoryReference, doc.FilePath, "",
			"module registry has unexpected shape: %v", err)}
	}

	var issues []issue.Issue
	ix.categories = append(ix.categories, file.Spec.Categories...)
	for i, mod := range file.Spec.Modules {
		loc := fmt.Sprintf("spec.modules[%d]", i)
		id := strings.TrimSpace(mod.ID)
		if id == "" {
			issues = append(issues, issue.Errorf(issue.CategoryReference, doc.FilePath, loc,
				"module entry has no id"))
			continue
		}
		if prev, dup := ix.modules[id]; dup {
			issues = append(issues, issue.Errorf(issue.CategoryReference, doc.FilePath, loc,
				"duplicate module id %q (already declared in %s at spec.modules[%d])",
				id, prev.SourceFile, prev.SourceIndex).
				WithFix("remove or rename one of the duplicate entries"))
			continue
		}
		mod.ID = id
		mod.SourceFile = doc.FilePath
		mod.SourceIndex = i
		ix.modules[id] = mod
	}
	return issues
}

func (ix *Index) addURNs(doc *document.Document) []issue.Issue {
	var file urnRegistryFile
	if err := doc.Decode(&file); err != nil {
		return []issue.Issue{issue.Errorf(issue.CategoryReference, doc.FilePath, "",
			"urn registry has unexpected shape: %v", err)}
	}

	var issues []issue.Issue
	for _, group := range urnGroups {
		for i, entry := range file.Spec[group.key] {
			loc := fmt.Sprintf("spec.%s[%d]", group.key, i)
			urn := strings.TrimSpace(entry.URN)
			if urn == "" {
				issues = append(issues, issue.Errorf(issue.CategoryReference, doc.FilePath, loc,
					"urn entry has no urn"))
				continue
			}
			if prev, dup := ix.urns[urn]; dup {
				issues = append(issues, issue.Errorf(issue.CategoryReference, doc.FilePath, loc,
					"duplicate urn %q (already declared in %s)", urn, prev.SourceFile).
					WithFix("remove or rename one of the duplicate entries"))
				continue
			}
			entry.URN = urn
			entry.ResourceType = group.typ
			entry.SourceFile = doc.FilePath
			ix.urns[urn] = entry
		}
	}
	return issues
}

// ResolveModule looks up a module by id.
func (ix *Index) ResolveModule(id string) (ModuleEntry, bool) {
	mod, ok := ix.modules[strings.TrimSpace(id)]
	return mod, ok
}

// ResolveURN looks up a URN entry by its full urn string.
func (ix *Index) ResolveURN(urn string) (URNEntry, bool) {
	entry, ok := ix.urns[strings.TrimSpace(urn)]
	return entry, ok
}

// Modules returns all module entries sorted by id.
func (ix *Index) Modules() []ModuleEntry {
	out := make([]ModuleEntry, 0, len(ix.modules))
	for _, mod := range ix.modules {
		out = append(out, mod)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// URNs returns all URN entries sorted by urn string.
func (ix *Index) URNs() []URNEntry {
	out := make([]URNEntry, 0, len(ix.urns))
	for _, entry := range ix.urns {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URN < out[j].URN })
	return out
}

// Categories returns the category names declared by the module registry,
// sorted and de-duplicated. Empty when the registry declares none.
func (ix *Index) Categories() []string {
	if len(ix.categories) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ix.categories))
	var out []string
	for _, c := range ix.categories {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}
