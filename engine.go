package graft

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/jward/graft/internal/artifact"
	"github.com/jward/graft/internal/files"
	"github.com/jward/graft/internal/matcher"
	"github.com/jward/graft/internal/parser"
	graftrt "github.com/jward/graft/internal/runtime"
	"github.com/jward/graft/internal/store"
	"github.com/jward/graft/internal/strategy"
	"github.com/jward/graft/scripts"
)

// Engine merges files and directories with one configured strategy. An
// Engine is safe for concurrent use; every merge gets its own matcher and
// merge state.
type Engine struct {
	strategyName string
	solverName   string
	markers      parser.Markers
	diff3        bool
	languages    map[string]bool // nil means all languages
	workers      int
	logger       *zap.Logger

	scriptsDir string
	scriptsFS  fs.FS
	runtime    *graftrt.Runtime
	policyHash string

	store     *store.Store
	statsDB   string
	ownsStore bool

	parser    *parser.Parser
	strategy  strategy.Strategy
	lineBased strategy.Strategy

	// useParallel enables the worker pool of MergeBatch.
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages restricts structured merging to the given languages. Files
// of other languages are merged line by line.
func WithLanguages(languages ...string) Option {
	return func(e *Engine) {
		e.languages = make(map[string]bool, len(languages))
		for _, lang := range languages {
			e.languages[lang] = true
		}
	}
}

// WithParallel controls parallel batch merging. When true (default),
// MergeBatch runs jobs on a worker pool and commits their results to the
// store from a single writer. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithWorkers sets the size of the MergeBatch worker pool. Zero or less
// means one worker per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithStrategy selects the file merge strategy by name: "structured"
// (default), "linebased" or "combined".
func WithStrategy(name string) Option {
	return func(e *Engine) {
		e.strategyName = name
	}
}

// WithSolver selects the assignment solver of the unordered matcher:
// "hungarian" (default) or "simplex".
func WithSolver(name string) Option {
	return func(e *Engine) {
		e.solverName = name
	}
}

// WithMarkers sets the side labels written into conflict markers.
func WithMarkers(m Markers) Option {
	return func(e *Engine) {
		e.markers = m
	}
}

// WithDiff3 makes line-based conflicts include the base lines.
func WithDiff3(diff3 bool) Option {
	return func(e *Engine) {
		e.diff3 = diff3
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithStore records runs in an already migrated store. The caller keeps
// ownership of s.
func WithStore(s *Store) Option {
	return func(e *Engine) {
		e.store = s
		e.statsDB = ""
	}
}

// WithStatsDB records runs in a SQLite database at path, created and
// migrated by New and closed by Close.
func WithStatsDB(path string) Option {
	return func(e *Engine) {
		e.statsDB = path
	}
}

// WithScriptsDir loads policy scripts from dir/policy instead of the
// embedded scripts.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
	}
}

// WithPolicyFS loads policy scripts from fsys. It takes precedence over
// WithScriptsDir.
func WithPolicyFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// New creates an Engine. Script loading priority:
//  1. If WithPolicyFS is set, use the provided fs.FS
//  2. If WithScriptsDir is set, use that directory on disk
//  3. Otherwise, use the embedded scripts
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:      zap.NewNop(),
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.scriptsFS == nil && e.scriptsDir == "" {
		e.scriptsFS = scripts.FS
	}

	var rtOpts []graftrt.RuntimeOption
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, graftrt.WithRuntimeFS(e.scriptsFS))
	}
	rtOpts = append(rtOpts, graftrt.WithLogger(e.logger))
	e.runtime = graftrt.NewRuntime(e.scriptsDir, rtOpts...)

	langs := lo.Filter(parser.Languages(), func(lang string, _ int) bool {
		return e.enabled(lang)
	})
	policies, err := e.runtime.Policies(context.Background(), langs)
	if err != nil {
		return nil, fmt.Errorf("graft: load policies: %w", err)
	}
	e.policyHash = e.scriptsHash()

	solver, err := matcher.SolverByName(e.solverName)
	if err != nil {
		return nil, fmt.Errorf("graft: %w", err)
	}

	e.parser = parser.New(policies)
	cfg := strategy.Config{
		Parser:  e.parser,
		Solver:  solver,
		Markers: e.markers,
		Diff3:   e.diff3,
		Logger:  e.logger,
	}
	if e.strategy, err = strategy.New(e.strategyName, cfg); err != nil {
		return nil, fmt.Errorf("graft: %w", err)
	}
	if e.lineBased, err = strategy.New(strategy.NameLineBased, cfg); err != nil {
		return nil, fmt.Errorf("graft: %w", err)
	}

	if e.statsDB != "" {
		s, err := store.NewStore(e.statsDB)
		if err != nil {
			return nil, fmt.Errorf("graft: create store: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("graft: migrate: %w", err)
		}
		e.store, e.ownsStore = s, true
	}
	return e, nil
}

// Close releases the Engine's database resources, if it opened any.
func (e *Engine) Close() error {
	if e.ownsStore && e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Store returns the run store, or nil when runs are not recorded.
func (e *Engine) Store() *Store {
	return e.store
}

// Strategy returns the name of the configured strategy.
func (e *Engine) Strategy() string {
	return e.strategy.Name()
}

// PolicyHash returns the hash of the policy scripts the Engine loaded.
func (e *Engine) PolicyHash() string {
	return e.policyHash
}

func (e *Engine) enabled(lang string) bool {
	return e.languages == nil || e.languages[lang]
}

// scriptsHash computes a SHA-256 hash of all policy scripts. Walks the
// scriptsFS or scriptsDir to find all .risor files, sorts them by path, and
// hashes their concatenated contents. Returns hex-encoded hash string.
func (e *Engine) scriptsHash() string {
	var paths []string

	if e.scriptsFS != nil {
		fs.WalkDir(e.scriptsFS, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && strings.HasSuffix(path, ".risor") {
				paths = append(paths, path)
			}
			return nil
		})
	} else if e.scriptsDir != "" {
		filepath.WalkDir(e.scriptsDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && strings.HasSuffix(path, ".risor") {
				rel, _ := filepath.Rel(e.scriptsDir, path)
				paths = append(paths, filepath.ToSlash(rel))
			}
			return nil
		})
	}

	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		src, err := e.runtime.LoadScript(p)
		if err != nil {
			continue
		}
		h.Write([]byte(p))
		h.Write([]byte(src))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Report is the outcome of one merge invocation.
type Report struct {
	RunID      int64            `json:"runId,omitempty"`
	Command    string           `json:"command"`
	Type       MergeType        `json:"type"`
	Strategy   string           `json:"strategy"`
	Inputs     []string         `json:"inputs,omitempty"`
	Output     string           `json:"output"`
	Files      []*FileResult    `json:"files"`
	Operations *OperationReport `json:"operations,omitempty"`
	Conflicts  int              `json:"conflicts"`
	StartedAt  time.Time        `json:"startedAt"`
	Duration   time.Duration    `json:"duration"`
}

// HasConflicts reports whether any merged file contains conflicts.
func (r *Report) HasConflicts() bool {
	return r.Conflicts > 0
}

// Merge merges two (left, right) or three (left, base, right) files or
// directories into output. Conflicts are not an error; they are counted in
// the report and marked in the output.
func (e *Engine) Merge(ctx context.Context, inputs []string, output string) (*Report, error) {
	job := Job{Inputs: inputs, Output: output}
	if err := e.prepare(&job); err != nil {
		return nil, err
	}
	report, err := e.run(ctx, job)
	if rerr := e.record(job, report, err); rerr != nil && err == nil {
		err = rerr
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

// MergeBytes merges in-memory versions of one file without touching the
// disk. path names the file; its extension selects the language.
// versions are left, right or left, base, right.
func (e *Engine) MergeBytes(ctx context.Context, path string, versions ...[]byte) (*FileResult, error) {
	mt, err := artifact.ParseMergeType(len(versions))
	if err != nil {
		return nil, fmt.Errorf("graft: %w", err)
	}
	return e.mergeContent(ctx, contentInput(path, mt, versions))
}

// Dump parses a source file with the Engine's policies and returns the
// plain-text dump of its syntax tree.
func (e *Engine) Dump(ctx context.Context, path string) (string, error) {
	lang, ok := parser.LanguageForFile(path)
	if !ok {
		return "", fmt.Errorf("graft: %s: %w", path, parser.ErrUnsupportedLanguage)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("graft: %w", err)
	}
	root, err := e.parser.Parse(ctx, lang, src, artifact.Left)
	if err != nil {
		return "", fmt.Errorf("graft: %s: %w", path, err)
	}
	return artifact.DumpString(root), nil
}

// run performs one prepared job. It does not touch the store.
func (e *Engine) run(ctx context.Context, job Job) (*Report, error) {
	report := &Report{
		Command:   job.Command,
		Type:      job.mergeType,
		Strategy:  e.strategy.Name(),
		Inputs:    job.Inputs,
		Output:    job.Output,
		StartedAt: time.Now(),
	}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	if job.Contents != nil {
		res, err := e.mergeContent(ctx, contentInput(job.Output, job.mergeType, job.Contents))
		if err != nil {
			return report, err
		}
		if err := files.NewOutput(job.Output, false).WriteFile(res.Output); err != nil {
			return report, fmt.Errorf("graft: %w", err)
		}
		report.add(res)
		return report, nil
	}

	revs := []artifact.Revision{artifact.Left, artifact.Right}
	if job.mergeType == artifact.ThreeWay {
		revs = []artifact.Revision{artifact.Left, artifact.Base, artifact.Right}
	}
	inputs := make([]*files.FileArtifact, len(job.Inputs))
	for i, p := range job.Inputs {
		a, err := files.Open(revs[i], p)
		if err != nil {
			return report, fmt.Errorf("graft: %w", err)
		}
		inputs[i] = a
	}
	out := files.NewOutput(job.Output, inputs[0].IsDir())

	merger := files.FileMergerFunc(func(ctx context.Context, s artifact.Scenario[*files.FileArtifact], target *files.FileArtifact) error {
		res, err := e.mergeFile(ctx, s, target)
		if err != nil {
			return err
		}
		report.add(res)
		return nil
	})
	o := files.New(merger, files.WithLogger(e.logger))
	err := o.Merge(ctx, job.mergeType, inputs, out)
	report.Operations = o.Report()
	if err != nil {
		return report, fmt.Errorf("graft: %w", err)
	}
	return report, nil
}

func (r *Report) add(res *FileResult) {
	r.Files = append(r.Files, res)
	r.Conflicts += res.Conflicts
}

// mergeFile merges the files of a directory scenario and writes target.
func (e *Engine) mergeFile(ctx context.Context, s artifact.Scenario[*files.FileArtifact], target *files.FileArtifact) (*FileResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in := strategy.Input{Path: s.Left.Path(), Type: s.Type}
	var err error
	if in.Left, err = s.Left.ReadFile(); err != nil {
		return nil, err
	}
	if in.Base, err = s.Base.ReadFile(); err != nil {
		return nil, err
	}
	if in.Right, err = s.Right.ReadFile(); err != nil {
		return nil, err
	}

	res, err := e.mergeContent(ctx, in)
	if err != nil {
		return nil, err
	}
	res.Path = target.Path()
	if err := target.WriteFile(res.Output); err != nil {
		return nil, err
	}
	return res, nil
}

// mergeContent merges one file with the configured strategy, or line by
// line when its language is excluded.
func (e *Engine) mergeContent(ctx context.Context, in strategy.Input) (*FileResult, error) {
	s := e.strategy
	if lang, ok := parser.LanguageForFile(in.Path); ok && !e.enabled(lang) {
		s = e.lineBased
	}
	e.logger.Debug("merging file",
		zap.String("path", in.Path),
		zap.Stringer("type", in.Type),
		zap.String("strategy", s.Name()))
	return s.Merge(ctx, in)
}

func contentInput(path string, mt artifact.MergeType, versions [][]byte) strategy.Input {
	in := strategy.Input{Path: path, Type: mt, Left: versions[0], Right: versions[len(versions)-1]}
	if mt == artifact.ThreeWay {
		in.Base = versions[1]
	}
	return in
}
