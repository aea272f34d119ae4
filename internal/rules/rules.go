// Package rules implements the five rule categories of the root layer gate:
// naming, reference, mapping, logic, and context. Validators are
// independent, read-only over their inputs, and always accumulate issues
// instead of failing fast, so one run surfaces every problem at once.
package rules

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/machinenativeops/rootlint/internal/document"
	"github.com/machinenativeops/rootlint/internal/issue"
	"github.com/machinenativeops/rootlint/internal/registry"
	"github.com/machinenativeops/rootlint/internal/ruleset"
)

// Input carries everything a validator reads. All fields are frozen before
// validation starts; validators never mutate them.
type Input struct {
	// Documents are the root files under validation (root.*.yaml minus the
	// rule and registry files).
	Documents []*document.Document
	// Registry is the frozen SSOT index.
	Registry *registry.Index
	// Rules is the merged rule configuration. Nil means defaults.
	Rules *ruleset.RuleSet
	// BaseDir anchors relative file-path references. Empty disables
	// existence checks (they degrade to warnings).
	BaseDir string
}

// Validator is one rule category.
type Validator interface {
	Category() issue.Category
	Validate(in Input) []issue.Issue
}

// All returns the five validators in report order.
func All() []Validator {
	return []Validator{
		&NamingValidator{},
		&ReferenceValidator{},
		&MappingValidator{},
		&LogicValidator{},
		&ContextValidator{},
	}
}

// RunAll executes every validator and concatenates their findings. The
// categories run in parallel purely as an optimization: inputs are immutable
// and outputs are per-slot, so ordering between categories cannot matter.
func RunAll(ctx context.Context, in Input) []issue.Issue {
	validators := All()
	results := make([][]issue.Issue, len(validators))

	g, _ := errgroup.WithContext(ctx)
	for i, v := range validators {
		i, v := i, v
		g.Go(func() error {
			results[i] = v.Validate(in)
			return nil
		})
	}
	_ = g.Wait() // validators report through issues, never through errors

	var out []issue.Issue
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}
