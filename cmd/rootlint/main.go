package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/machinenativeops/rootlint/internal/gate"
	"github.com/machinenativeops/rootlint/internal/report"
	"github.com/machinenativeops/rootlint/internal/watch"
)

// Exit codes: 0 pass, 1 gate failure or fatal error, 2 usage error.
const (
	exitPass  = 0
	exitFail  = 1
	exitUsage = 2
)

// command describes a CLI subcommand.
type command struct {
	name  string
	short string
	usage string
	long  string
	run   func(args []string) int
}

var commands = []command{
	{
		name:  "validate",
		short: "Validate the root layer file sets and gate on the result",
		usage: "rootlint validate [-dir <path>] [-report <path>] [-format json|yaml] [-q]",
		long: `Run the five rule categories (naming, reference, mapping, logic,
context) over the root.* files in the target directory.

Exits 0 when no error-severity issue exists; warnings never block.
Flags override the ROOTLINT_* environment variables.
`,
		run: runValidate,
	},
	{
		name:  "watch",
		short: "Revalidate whenever a root layer file changes",
		usage: "rootlint watch [-dir <path>]",
		long: `Watch the target directory and re-run validation after every change
to a root.* file. Intended for local editing; CI should use validate.
`,
		run: runWatch,
	},
	{
		name:  "init",
		short: "Scaffold starter registry and root files",
		usage: "rootlint init [-dir <path>]",
		long: `Interactively create root.registry.modules.yaml,
root.registry.urns.yaml, and root.modules.yaml in the target directory.

Errors if any of the files already exist.
`,
		run: runInit,
	},
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "rootlint — root layer specification validation gate\n\n")
	fmt.Fprintf(w, "Usage:\n  rootlint <command> [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.short)
	}
	fmt.Fprintf(w, "\nRun 'rootlint help <command>' for details on a specific command.\n")
}

func printCommandHelp(w io.Writer, name string) {
	for _, cmd := range commands {
		if cmd.name == name {
			fmt.Fprintf(w, "Usage: %s\n\n%s", cmd.usage, cmd.long)
			return
		}
	}
	fmt.Fprintf(w, "rootlint: unknown command %q\n\nRun 'rootlint help' for usage.\n", name)
}

func dispatch(args []string) int {
	if len(args) == 0 || args[0] == "--help" || args[0] == "-h" {
		printUsage(os.Stdout)
		return exitPass
	}
	if args[0] == "help" {
		if len(args) >= 2 {
			printCommandHelp(os.Stdout, args[1])
		} else {
			printUsage(os.Stdout)
		}
		return exitPass
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(args[1:])
		}
	}
	fmt.Fprintf(os.Stderr, "rootlint: unknown command %q\n\nRun 'rootlint help' for usage.\n", args[0])
	return exitUsage
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "rootlint: %v\n", err)
	return exitFail
}

// ---------------------------------------------------------------------------
// validate
// ---------------------------------------------------------------------------

// parseGateConfig layers flags over the ROOTLINT_* environment.
func parseGateConfig(name string, args []string) (gate.Config, bool, int) {
	cfg, err := gate.ConfigFromEnv()
	if err != nil {
		return cfg, false, fail(err)
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.StringVar(&cfg.Dir, "dir", cfg.Dir, "directory holding the root.* files")
	fs.StringVar(&cfg.ReportPath, "report", cfg.ReportPath, "path to write the structured report")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "structured report format: json or yaml")
	fs.BoolVar(&cfg.Quiet, "q", cfg.Quiet, "suppress the Markdown summary on stdout")
	if err := fs.Parse(args); err != nil {
		return cfg, false, exitUsage
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "rootlint %s: unexpected arguments: %v\n", name, fs.Args())
		return cfg, false, exitUsage
	}
	return cfg, true, 0
}

func runValidate(args []string) int {
	cfg, ok, code := parseGateConfig("validate", args)
	if !ok {
		return code
	}

	rep, err := gate.Run(context.Background(), cfg)
	if err != nil {
		return fail(err)
	}
	if err := gate.WriteReport(cfg, rep); err != nil {
		return fail(err)
	}
	if !cfg.Quiet {
		fmt.Print(rep.Markdown())
	}
	if !rep.Pass {
		return exitFail
	}
	return exitPass
}

// ---------------------------------------------------------------------------
// watch
// ---------------------------------------------------------------------------

func runWatch(args []string) int {
	cfg, ok, code := parseGateConfig("watch", args)
	if !ok {
		return code
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := watch.Run(ctx, cfg, func(rep *report.Report, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "rootlint: %v\n", err)
			return
		}
		if werr := gate.WriteReport(cfg, rep); werr != nil {
			fmt.Fprintf(os.Stderr, "rootlint: %v\n", werr)
		}
		if !cfg.Quiet {
			fmt.Print(rep.Markdown())
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fail(err)
	}
	return exitPass
}

// ---------------------------------------------------------------------------
// init
// ---------------------------------------------------------------------------

const modulesRegistryTemplate = `apiVersion: governance/v1
kind: ModuleRegistry
spec:
  categories:
    - %[2]s
  modules:
    - id: %[1]s
      name: %[1]s
      version: 0.1.0
      category: %[2]s
      namespace: %[3]s
      enabled: false
      priority: 50
      dependencies: []
`

const urnsRegistryTemplate = `apiVersion: governance/v1
kind: URNRegistry
spec:
  module_urns:
    - urn: urn:%[3]s:module:%[1]s
      target:
        file: root.registry.modules.yaml
        path: spec.modules[0]
`

const rootModulesTemplate = `apiVersion: governance/v1
kind: ModuleSet
spec:
  modules:
    - module_id: %[1]s
      name: %[1]s
      version: 0.1.0
`

var initQuestions = []promptQuestion{
	{key: "namespace", prompt: "URN namespace (e.g. machinenativeops)"},
	{key: "module", prompt: "First module id (e.g. config-manager)"},
	{key: "category", prompt: "Module category (e.g. core)"},
}

func runInit(args []string) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	dir := fs.String("dir", ".", "directory to scaffold into")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	answers, err := promptQuestions(initQuestions)
	if err != nil {
		return fail(fmt.Errorf("prompt: %w", err))
	}
	module, category, namespace := answers["module"], answers["category"], answers["namespace"]

	files := map[string]string{
		"root.registry.modules.yaml": fmt.Sprintf(modulesRegistryTemplate, module, category, namespace),
		"root.registry.urns.yaml":    fmt.Sprintf(urnsRegistryTemplate, module, category, namespace),
		"root.modules.yaml":          fmt.Sprintf(rootModulesTemplate, module),
	}
	for name := range files {
		if _, err := os.Stat(filepath.Join(*dir, name)); err == nil {
			return fail(fmt.Errorf("%s already exists in %s", name, *dir))
		}
	}
	for _, name := range []string{"root.registry.modules.yaml", "root.registry.urns.yaml", "root.modules.yaml"} {
		path := filepath.Join(*dir, name)
		if err := os.WriteFile(path, []byte(files[name]), 0o644); err != nil {
			return fail(fmt.Errorf("write %s: %w", path, err))
		}
		fmt.Printf("created %s\n", path)
	}
	return exitPass
}

// ---------------------------------------------------------------------------
// TUI prompt helpers
// ---------------------------------------------------------------------------

type promptQuestion struct {
	key    string
	prompt string
}

// promptModel is a bubbletea model that asks one question at a time.
type promptModel struct {
	questions []promptQuestion
	idx       int
	inputs    []textinput.Model
	done      bool
}

func newPromptModel(questions []promptQuestion) promptModel {
	inputs := make([]textinput.Model, len(questions))
	for i, q := range questions {
		ti := textinput.New()
		ti.Placeholder = q.prompt
		ti.CharLimit = 256
		inputs[i] = ti
	}
	m := promptModel{
		questions: questions,
		inputs:    inputs,
	}
	if len(inputs) > 0 {
		m.inputs[0].Focus()
	}
	return m
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.idx < len(m.inputs)-1 {
				m.inputs[m.idx].Blur()
				m.idx++
				m.inputs[m.idx].Focus()
				return m, textinput.Blink
			}
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.inputs[m.idx], cmd = m.inputs[m.idx].Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.done || len(m.questions) == 0 {
		return ""
	}
	q := m.questions[m.idx]
	return fmt.Sprintf("%s: %s\n", q.prompt, m.inputs[m.idx].View())
}

// promptQuestions runs the TUI and returns answers keyed by question key.
func promptQuestions(questions []promptQuestion) (map[string]string, error) {
	if len(questions) == 0 {
		return map[string]string{}, nil
	}
	m := newPromptModel(questions)
	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return nil, err
	}
	final, ok := result.(promptModel)
	if !ok || !final.done {
		return nil, fmt.Errorf("prompt cancelled")
	}
	answers := make(map[string]string, len(questions))
	for i, q := range questions {
		answers[q.key] = final.inputs[i].Value()
	}
	return answers, nil
}

func main() {
	os.Exit(dispatch(os.Args[1:]))
}
