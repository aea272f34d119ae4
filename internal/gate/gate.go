// Package gate wires the validation pipeline: discover the root layer file
// sets in a directory, load them, build the registry index and rule set,
// run the five validators, and assemble the report. The CLI and the watch
// loop are both thin callers of Run.
package gate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/caarlos0/env/v11"
	"golang.org/x/sync/errgroup"

	"github.com/machinenativeops/rootlint/internal/document"
	"github.com/machinenativeops/rootlint/internal/issue"
	"github.com/machinenativeops/rootlint/internal/registry"
	"github.com/machinenativeops/rootlint/internal/report"
	"github.com/machinenativeops/rootlint/internal/rules"
	"github.com/machinenativeops/rootlint/internal/ruleset"
)

var log = slog.Default().With("component", "gate")

// Config controls one gate run. Fields map to environment variables so the
// CI runner can configure the gate without flags; flags take precedence
// where the CLI sets them explicitly.
type Config struct {
	// Dir is the base directory holding the root.* file sets.
	Dir string `env:"ROOTLINT_DIR" envDefault:"."`
	// ReportPath is where the structured report is written. Empty writes
	// no report file.
	ReportPath string `env:"ROOTLINT_REPORT"`
	// Format selects the structured report encoding: json or yaml.
	Format string `env:"ROOTLINT_FORMAT" envDefault:"json"`
	// Quiet suppresses the Markdown summary on stdout.
	Quiet bool `env:"ROOTLINT_QUIET"`
}

// ConfigFromEnv reads Config from ROOTLINT_* environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// FileSet is the classified root layer corpus of one directory.
type FileSet struct {
	Roots      []string // root.*.yaml minus rule and registry files
	Specs      []string // root.specs.*.yaml
	Registries []string // root.registry.*.yaml
}

// All returns every file in the set, sorted.
func (fs FileSet) All() []string {
	out := make([]string, 0, len(fs.Roots)+len(fs.Specs)+len(fs.Registries))
	out = append(out, fs.Roots...)
	out = append(out, fs.Specs...)
	out = append(out, fs.Registries...)
	sort.Strings(out)
	return out
}

// Discover globs dir for root.*.yaml (and the misnamed root.*.yml, so the
// naming validator gets a chance to flag it) and classifies the matches.
// Results are sorted so a shuffled directory listing cannot change the run.
func Discover(dir string) (FileSet, error) {
	var set FileSet
	matches, err := doublestar.Glob(os.DirFS(dir), "root.*.{yaml,yml}")
	if err != nil {
		return set, fmt.Errorf("glob %s: %w", dir, err)
	}
	sort.Strings(matches)

	for _, name := range matches {
		path := filepath.Join(dir, name)
		switch {
		case strings.HasPrefix(name, "root.specs."):
			set.Specs = append(set.Specs, path)
		case strings.HasPrefix(name, "root.registry."):
			set.Registries = append(set.Registries, path)
		default:
			set.Roots = append(set.Roots, path)
		}
	}
	return set, nil
}

// loaded pairs a file's documents with its content digest.
type loaded struct {
	docs   []*document.Document
	digest report.InputFile
}

// loadAll reads every file in parallel. Any ParseError is fatal to the run:
// nothing downstream can be trusted once a file fails to parse.
func loadAll(ctx context.Context, paths []string) ([]loaded, error) {
	out := make([]loaded, len(paths))
	g, _ := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			docs, err := document.Parse(path, data)
			if err != nil {
				return err
			}
			sum := sha256.Sum256(data)
			out[i] = loaded{
				docs:   docs,
				digest: report.InputFile{Path: path, SHA256: hex.EncodeToString(sum[:])},
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Run executes one full validation pass and returns the report. The
// returned error is reserved for fatal conditions (unreadable directory,
// malformed YAML); rule violations live inside the report.
func Run(ctx context.Context, cfg Config) (*report.Report, error) {
	set, err := Discover(cfg.Dir)
	if err != nil {
		return nil, err
	}
	if len(set.All()) == 0 {
		return nil, fmt.Errorf("no root.* files found in %s", cfg.Dir)
	}
	log.Debug("discovered file sets",
		"roots", len(set.Roots), "specs", len(set.Specs), "registries", len(set.Registries))

	var issues []issue.Issue

	// Load phase. Everything after it is read-only.
	rootLoaded, err := loadAll(ctx, set.Roots)
	if err != nil {
		return nil, err
	}
	specLoaded, err := loadAll(ctx, set.Specs)
	if err != nil {
		return nil, err
	}
	registryLoaded, err := loadAll(ctx, set.Registries)
	if err != nil {
		return nil, err
	}

	var rootDocs, specDocs, registryDocs []*document.Document
	var digests []report.InputFile
	// First-document convention: root files embed their authoritative
	// metadata as the first document.
	for _, l := range rootLoaded {
		rootDocs = append(rootDocs, firstDoc(l.docs)...)
		digests = append(digests, l.digest)
	}
	for _, l := range specLoaded {
		specDocs = append(specDocs, firstDoc(l.docs)...)
		digests = append(digests, l.digest)
	}
	for _, l := range registryLoaded {
		registryDocs = append(registryDocs, firstDoc(l.docs)...)
		digests = append(digests, l.digest)
	}

	rs, rsIssues := ruleset.Build(specDocs)
	issues = append(issues, rsIssues...)

	ix, ixIssues := registry.Build(registryDocs)
	issues = append(issues, ixIssues...)

	in := rules.Input{
		Documents: rootDocs,
		Registry:  ix,
		Rules:     rs,
		BaseDir:   cfg.Dir,
	}
	issues = append(issues, rules.RunAll(ctx, in)...)

	rep := report.Build(issues, digests)
	log.Debug("validation complete",
		"errors", rep.Summary.Errors, "warnings", rep.Summary.Warnings, "pass", rep.Pass)
	return rep, nil
}

// firstDoc returns the first document of a file, or nothing for an empty
// file (which the loader tolerates; the naming validator still saw its
// name during discovery).
func firstDoc(docs []*document.Document) []*document.Document {
	if len(docs) == 0 {
		return nil
	}
	return docs[:1]
}

// WriteReport encodes the report per cfg.Format and writes it to
// cfg.ReportPath. No-op when no path is configured.
func WriteReport(cfg Config, rep *report.Report) error {
	if cfg.ReportPath == "" {
		return nil
	}
	var data []byte
	var err error
	switch cfg.Format {
	case "", "json":
		data, err = rep.JSON()
	case "yaml":
		data, err = rep.YAML()
	default:
		return fmt.Errorf("unknown report format %q (want json or yaml)", cfg.Format)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfg.ReportPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", cfg.ReportPath, err)
	}
	return nil
}
