package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/machinenativeops/rootlint/internal/issue"
	"github.com/machinenativeops/rootlint/internal/registry"
)

// LogicValidator checks the module registry for structural and logical
// consistency: dependency existence, dependency cycles, state-consistency
// rules, and resource constraints. Every finding in this category is an
// error — logic violations always block the gate, there is no advisory
// mode.
type LogicValidator struct{}

func (v *LogicValidator) Category() issue.Category { return issue.CategoryLogic }

func (v *LogicValidator) Validate(in Input) []issue.Issue {
	if in.Registry == nil {
		return nil
	}
	modules := in.Registry.Modules()

	graph := newDepGraph()
	for _, mod := range modules {
		graph.addNode(mod.ID)
	}
	for _, mod := range modules {
		for _, dep := range mod.Dependencies {
			graph.addEdge(mod.ID, dep)
		}
	}

	var issues []issue.Issue

	// Dependency existence.
	for _, mod := range modules {
		loc := fmt.Sprintf("spec.modules[%d]", mod.SourceIndex)
		for _, dep := range mod.Dependencies {
			if _, ok := in.Registry.ResolveModule(dep); !ok {
				issues = append(issues, issue.Errorf(issue.CategoryLogic, mod.SourceFile, loc,
					"module %q depends on unknown module %q", mod.ID, dep).
					WithFix("register the module or remove the dependency"))
			}
		}
	}

	// Cycle detection: one error per distinct cycle, carrying the full
	// path, never one per edge.
	cycles := graph.cycles()
	for _, cycle := range cycles {
		issues = append(issues, issue.Errorf(issue.CategoryLogic,
			cycleFile(in, cycle), "",
			"circular dependency: %s", strings.Join(cycle, " -> ")).
			WithFix("break the cycle by removing one of the dependencies"))
	}

	// Topological order must agree with the cycle detector: residual
	// in-degree without a reported cycle means the detector itself is
	// broken, which is a defect worth failing loudly on.
	if _, ok := graph.topoOrder(); !ok && len(cycles) == 0 {
		issues = append(issues, issue.Errorf(issue.CategoryLogic, "", "",
			"internal defect: topological sort found a cycle the detector missed"))
	}

	// State consistency and resource constraints.
	for _, mod := range modules {
		issues = append(issues, checkModuleState(mod)...)
	}
	return issues
}

// cycleFile attributes a cycle to the registry file declaring its smallest
// node, keeping the report stable across runs.
func cycleFile(in Input, cycle []string) string {
	if mod, ok := in.Registry.ResolveModule(cycle[0]); ok {
		return mod.SourceFile
	}
	return ""
}

// checkModuleState applies the fixed, non-configurable state rules:
//
//   - enabled modules must declare an entrypoint
//   - auto_start implies enabled
//   - a health check implies a network endpoint
//   - priority lies in [0,100]
//   - request <= limit for every resource dimension declaring both
func checkModuleState(mod registry.ModuleEntry) []issue.Issue {
	loc := fmt.Sprintf("spec.modules[%d]", mod.SourceIndex)
	var issues []issue.Issue

	if mod.Enabled && strings.TrimSpace(mod.Entrypoint) == "" {
		issues = append(issues, issue.Errorf(issue.CategoryLogic, mod.SourceFile, loc,
			"module %q is enabled but declares no entrypoint", mod.ID).
			WithFix("declare an entrypoint or disable the module"))
	}
	if mod.AutoStart && !mod.Enabled {
		issues = append(issues, issue.Errorf(issue.CategoryLogic, mod.SourceFile, loc,
			"module %q has auto_start but is not enabled", mod.ID).
			WithFix("set enabled: true or drop auto_start"))
	}
	if mod.HealthCheck != nil && strings.TrimSpace(mod.Endpoint) == "" {
		issues = append(issues, issue.Errorf(issue.CategoryLogic, mod.SourceFile, loc,
			"module %q declares a health check but no endpoint", mod.ID).
			WithFix("declare the network endpoint the health check probes"))
	}
	if mod.Priority < 0 || mod.Priority > 100 {
		issues = append(issues, issue.Errorf(issue.CategoryLogic, mod.SourceFile, loc,
			"module %q priority %d is outside [0,100]", mod.ID, mod.Priority))
	}

	dims := make([]string, 0, len(mod.Resources))
	for dim := range mod.Resources {
		dims = append(dims, dim)
	}
	sort.Strings(dims)
	for _, dim := range dims {
		res := mod.Resources[dim]
		if res.Request != nil && res.Limit != nil && *res.Request > *res.Limit {
			issues = append(issues, issue.Errorf(issue.CategoryLogic, mod.SourceFile,
				fmt.Sprintf("%s.resources.%s", loc, dim),
				"module %q: %s request %v exceeds limit %v", mod.ID, dim, *res.Request, *res.Limit))
		}
	}
	return issues
}
