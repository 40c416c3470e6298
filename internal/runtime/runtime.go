// Package runtime evaluates the Risor policy scripts that tell the merge
// engine which syntax kinds of a language are unordered and which are kept
// as plain text.
//
// A policy script for language L lives at policy/L.risor and is run with
// these globals:
//
//	language            the language name, e.g. "go"
//	unordered(kind...)  mark kinds whose position among siblings is irrelevant
//	textual(kind...)    mark kinds that are compared and merged as text
//	log                 log.Info(msg), log.Warn(msg), log.Error(msg)
//
// Every kind not named by unordered is order-significant.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
	"go.uber.org/zap"

	"github.com/jward/graft/internal/artifact"
)

// Runtime embeds a Risor VM and turns policy scripts into artifact
// policies. Loaded policies are cached; a Runtime is safe for concurrent
// use.
type Runtime struct {
	scriptsDir string
	fsys       fs.FS
	logger     *zap.Logger

	mu       sync.Mutex
	policies map[string]*artifact.Policy
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithLogger sets the logger behind the scripts' log global.
func WithLogger(l *zap.Logger) RuntimeOption {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRuntime creates a Runtime reading scripts below scriptsDir.
// scriptsDir may be empty when WithRuntimeFS is used.
func NewRuntime(scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		scriptsDir: scriptsDir,
		logger:     zap.NewNop(),
		policies:   make(map[string]*artifact.Policy),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PolicyScriptPath returns the path of a language's policy script.
func PolicyScriptPath(language string) string {
	return path.Join("policy", language+".risor")
}

// Policy returns the policy of a language, running its script on first
// use. A language without a script gets an empty policy, so all of its
// kinds are ordered.
func (r *Runtime) Policy(ctx context.Context, language string) (*artifact.Policy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.policies[language]; ok {
		return p, nil
	}

	p := artifact.NewPolicy(language)
	src, err := r.LoadScript(PolicyScriptPath(language))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		r.logger.Debug("no policy script", zap.String("language", language))
	case err != nil:
		return nil, err
	default:
		globals := map[string]any{
			"language":  language,
			"unordered": makeKindsFn("unordered", p.AddUnordered),
			"textual":   makeKindsFn("textual", p.AddTextual),
			"log":       mustProxy(&logObject{logger: r.logger.With(zap.String("policy", language))}),
		}
		if err := r.eval(ctx, src, PolicyScriptPath(language), globals); err != nil {
			return nil, err
		}
		r.logger.Debug("policy loaded",
			zap.String("language", language),
			zap.Strings("unordered", p.UnorderedKinds()),
			zap.Strings("textual", p.TextualKinds()))
	}

	r.policies[language] = p
	return p, nil
}

// Policies loads the policies of all given languages. Failures of single
// scripts are collected; the returned map holds the policies that loaded.
func (r *Runtime) Policies(ctx context.Context, languages []string) (map[string]*artifact.Policy, error) {
	out := make(map[string]*artifact.Policy, len(languages))
	var errs *multierror.Error
	for _, lang := range languages {
		p, err := r.Policy(ctx, lang)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		out[lang] = p
	}
	return out, errs.ErrorOrNil()
}

// RunSource executes Risor source code with the given globals. Useful for
// testing without script files.
func (r *Runtime) RunSource(ctx context.Context, source string, globals map[string]any) error {
	return r.eval(ctx, source, "<inline>", globals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, globals map[string]any) error {
	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on that filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(p string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(p), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := p
	if !filepath.IsAbs(p) {
		fullPath = filepath.Join(r.scriptsDir, filepath.FromSlash(p))
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
