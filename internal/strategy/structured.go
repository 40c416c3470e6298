package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jward/graft/internal/artifact"
	"github.com/jward/graft/internal/matcher"
	"github.com/jward/graft/internal/merge"
	"github.com/jward/graft/internal/parser"
)

// Structured merges files as syntax trees. Files it cannot parse, and
// files whose roots differ, are merged by the fallback strategy instead.
type Structured struct {
	parser   *parser.Parser
	solver   matcher.Solver
	printer  *parser.Printer
	logger   *zap.Logger
	fallback Strategy
}

// NewStructured returns a structured strategy falling back to fallback.
func NewStructured(cfg Config, fallback Strategy) *Structured {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	p := cfg.Parser
	if p == nil {
		p = parser.New(nil)
	}
	return &Structured{
		parser:   p,
		solver:   cfg.Solver,
		printer:  parser.NewPrinter(cfg.Markers),
		logger:   logger,
		fallback: fallback,
	}
}

func (s *Structured) Name() string { return NameStructured }

func (s *Structured) Merge(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()

	lang, ok := parser.LanguageForFile(in.Path)
	if !ok {
		return s.fallBack(ctx, in, "unsupported language")
	}

	sc, err := s.parseAll(ctx, lang, in)
	if errors.Is(err, parser.ErrSyntax) || errors.Is(err, parser.ErrUnsupportedLanguage) {
		return s.fallBack(ctx, in, err.Error())
	}
	if err != nil {
		return nil, err
	}

	var opts []matcher.Option
	if s.solver != nil {
		opts = append(opts, matcher.WithSolver(s.solver))
	}
	opts = append(opts, matcher.WithLogger(s.logger))
	m := matcher.New(opts...)
	mctx := merge.NewContext(m, s.logger.With(zap.String("path", in.Path)))

	target := sc.Left.CloneShallow()
	err = mctx.Apply(&merge.MergeOperation{Scenario: sc, Target: target})
	if errors.Is(err, merge.ErrRootsDiffer) {
		return s.fallBack(ctx, in, err.Error())
	}
	if err != nil {
		return nil, fmt.Errorf("strategy: %s: %w", in.Path, err)
	}

	s.logger.Debug("structured merge done",
		zap.String("path", in.Path),
		zap.Int("conflicts", mctx.Stats.Conflicts),
		zap.Stringer("counters", m.Counters()))

	return &Result{
		Path:      in.Path,
		Strategy:  NameStructured,
		Language:  lang,
		Conflicts: mctx.Stats.Conflicts,
		Counters:  m.Counters(),
		Stats:     mctx.Stats,
		Journal:   mctx.Journal(),
		Duration:  time.Since(start),
		Output:    s.printer.Print(target),
	}, nil
}

func (s *Structured) parseAll(ctx context.Context, lang string, in Input) (artifact.Scenario[*artifact.Node], error) {
	sc := artifact.Scenario[*artifact.Node]{Type: in.Type, Base: artifact.EmptyDummy(artifact.Base)}
	var err error
	if sc.Left, err = s.parser.Parse(ctx, lang, in.Left, artifact.Left); err != nil {
		return sc, err
	}
	if sc.Right, err = s.parser.Parse(ctx, lang, in.Right, artifact.Right); err != nil {
		return sc, err
	}
	if in.Type == artifact.ThreeWay {
		if sc.Base, err = s.parser.Parse(ctx, lang, in.Base, artifact.Base); err != nil {
			return sc, err
		}
	}
	return sc, nil
}

func (s *Structured) fallBack(ctx context.Context, in Input, reason string) (*Result, error) {
	if s.fallback == nil {
		return nil, fmt.Errorf("strategy: %s: no structured merge possible: %s", in.Path, reason)
	}
	s.logger.Warn("falling back",
		zap.String("path", in.Path),
		zap.String("strategy", s.fallback.Name()),
		zap.String("reason", reason))
	res, err := s.fallback.Merge(ctx, in)
	if err != nil {
		return nil, err
	}
	res.Fallback = reason
	return res, nil
}
