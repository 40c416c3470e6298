package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jward/graft"
	"github.com/jward/graft/internal/config"
	"github.com/jward/graft/internal/logging"
)

// Exit codes.
const (
	exitError     = 1
	exitConflicts = 3
)

// errConflicts makes main exit with exitConflicts. The merge result has
// already been written.
var errConflicts = errors.New("merged with conflicts")

var (
	flagFormat     string
	flagConfigDir  string
	flagStatsDB    string
	flagStrategy   string
	flagSolver     string
	flagWorkers    int
	flagLanguages  string
	flagScriptsDir string
	flagVerbose    bool
	flagDiff3      bool
	flagLabelLeft  string
	flagLabelRight string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled atomic.Bool

// shutdownSignals cancel a running command.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if errors.Is(err, errConflicts) {
			os.Exit(exitConflicts)
		}
		if !errorHandled.Load() {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(exitError)
	}
}

var rootCmd = &cobra.Command{
	Use:           "graft",
	Short:         "Structured three-way merge for source files and directories",
	Long:          "Graft merges source files as syntax trees, so reordered declarations and independent edits to the same file merge without conflicts.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run — prints help by default.
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagFormat, "format", "text", "output format: json|text")
	pf.StringVar(&flagConfigDir, "config", "", "directory holding graft.yml (default: repo root)")
	pf.StringVar(&flagStatsDB, "stats-db", "", "record runs in this SQLite database")
	pf.StringVar(&flagStrategy, "strategy", "", "merge strategy: structured|linebased|combined")
	pf.StringVar(&flagSolver, "solver", "", "assignment solver: hungarian|simplex")
	pf.IntVar(&flagWorkers, "workers", 0, "parallel merges (default: number of CPUs)")
	pf.StringVar(&flagLanguages, "languages", "", "comma-separated languages to merge structurally (e.g. go,java)")
	pf.StringVar(&flagScriptsDir, "scripts-dir", "", "load policy scripts from disk path instead of embedded")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging to stderr")
	pf.BoolVar(&flagDiff3, "diff3", false, "include base lines in line-based conflicts")
	pf.StringVar(&flagLabelLeft, "label-left", "", "conflict marker label of the left side")
	pf.StringVar(&flagLabelRight, "label-right", "", "conflict marker label of the right side")

	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(dumpCmd)
}

// settings are the effective options of one invocation: graft.yml values
// overridden by explicitly set flags.
type settings struct {
	format     string
	repoRoot   string
	statsDB    string
	strategy   string
	solver     string
	workers    int
	languages  []string
	scriptsDir string
	verbose    bool
	diff3      bool
	labels     config.Labels
}

// loadSettings reads graft.yml and applies the flags the user set.
func loadSettings(cmd *cobra.Command) (settings, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return settings{}, err
	}
	repoRoot := findRepoRoot(cwd)
	dir := flagConfigDir
	if dir == "" {
		dir = repoRoot
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return settings{}, err
	}

	s := settings{
		format:     flagFormat,
		repoRoot:   repoRoot,
		statsDB:    cfg.StatsDB,
		strategy:   cfg.Strategy,
		solver:     cfg.Solver,
		workers:    cfg.Workers,
		languages:  cfg.Languages,
		scriptsDir: cfg.Scripts,
		verbose:    cfg.Verbose,
		diff3:      cfg.Diff3,
		labels:     cfg.Labels,
	}

	flags := cmd.Flags()
	if flags.Changed("stats-db") {
		s.statsDB = flagStatsDB
	}
	if flags.Changed("strategy") {
		s.strategy = flagStrategy
	}
	if flags.Changed("solver") {
		s.solver = flagSolver
	}
	if flags.Changed("workers") {
		s.workers = flagWorkers
	}
	if flags.Changed("languages") {
		s.languages = splitList(flagLanguages)
	}
	if flags.Changed("scripts-dir") {
		s.scriptsDir = flagScriptsDir
	}
	if flags.Changed("verbose") {
		s.verbose = flagVerbose
	}
	if flags.Changed("diff3") {
		s.diff3 = flagDiff3
	}
	if flags.Changed("label-left") {
		s.labels.Left = flagLabelLeft
	}
	if flags.Changed("label-right") {
		s.labels.Right = flagLabelRight
	}
	return s, nil
}

// engineOptions translates settings into Engine options.
func (s settings) engineOptions(logger *zap.Logger) []graft.Option {
	opts := []graft.Option{
		graft.WithStrategy(s.strategy),
		graft.WithSolver(s.solver),
		graft.WithWorkers(s.workers),
		graft.WithDiff3(s.diff3),
		graft.WithMarkers(graft.Markers{Left: s.labels.Left, Right: s.labels.Right}),
		graft.WithLogger(logger),
	}
	if len(s.languages) > 0 {
		opts = append(opts, graft.WithLanguages(s.languages...))
	}
	if s.scriptsDir != "" {
		opts = append(opts, graft.WithScriptsDir(s.scriptsDir))
	}
	if s.statsDB != "" {
		opts = append(opts, graft.WithStatsDB(s.statsDB))
	}
	return opts
}

// newEngine builds the logger and the Engine for an invocation.
func newEngine(s settings) (*graft.Engine, error) {
	logger, err := logging.New(s.verbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	if s.statsDB != "" {
		if err := os.MkdirAll(filepath.Dir(s.statsDB), 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", filepath.Dir(s.statsDB), err)
		}
	}
	engine, err := graft.New(s.engineOptions(logger)...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return engine, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}

// defaultStatsDB is the database read by the stats command when none is
// configured.
func defaultStatsDB(repoRoot string) string {
	return filepath.Join(repoRoot, ".graft", "runs.db")
}
