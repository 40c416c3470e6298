// Package merge combines three (or two) matched syntax trees into a merged
// tree. Children present in both versions are merged recursively; children
// present in only one version are added, deleted or flagged as conflicts
// depending on what the base version says.
package merge

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jward/graft/internal/artifact"
	"github.com/jward/graft/internal/matcher"
)

var (
	// ErrRootsDiffer is returned when the roots of left and right do not
	// match, so there is no common structure to merge into.
	ErrRootsDiffer = errors.New("roots of left and right do not match")

	// ErrInvariant is returned when the child walk gets into a state that
	// consistent matchings cannot produce.
	ErrInvariant = errors.New("merge invariant violated")
)

// Stats counts the node operations applied during one merge.
type Stats struct {
	Added     int `json:"added"`
	Deleted   int `json:"deleted"`
	Merged    int `json:"merged"`
	Conflicts int `json:"conflicts"`
}

// Entry is one applied operation.
type Entry struct {
	Seq    int    `json:"seq"`
	Name   string `json:"name"`
	Detail string `json:"detail"`
}

// Context carries the state of one merge invocation. It is not safe for
// concurrent use.
type Context struct {
	Matcher *matcher.Matcher
	Logger  *zap.Logger
	Stats   Stats

	journal []Entry
	diffed  bool
}

// NewContext returns a context merging with m. A nil logger disables logging.
func NewContext(m *matcher.Matcher, logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{Matcher: m, Logger: logger}
}

// Apply numbers op, logs it and applies it.
func (ctx *Context) Apply(op Operation) error {
	e := Entry{Seq: len(ctx.journal) + 1, Name: op.Name(), Detail: op.String()}
	ctx.journal = append(ctx.journal, e)
	ctx.Logger.Debug("apply", zap.String("op", fmt.Sprintf("OP%d: %s", e.Seq, e.Detail)))
	return op.Apply(ctx)
}

// Operations returns the number of operations applied so far.
func (ctx *Context) Operations() int {
	return len(ctx.journal)
}

// Journal returns the applied operations in order.
func (ctx *Context) Journal() []Entry {
	return ctx.journal
}

// diff computes and stores the matchings between all revisions of s.
func (ctx *Context) diff(s artifact.Scenario[*artifact.Node]) error {
	if s.Type == artifact.ThreeWay {
		for _, side := range []*artifact.Node{s.Left, s.Right} {
			m, err := ctx.Matcher.Match(s.Base, side)
			if err != nil {
				return fmt.Errorf("match base with %s: %w", side.Revision(), err)
			}
			m.Highlight(artifact.ColorGreen)
			m.Store()
		}
	}

	m, err := ctx.Matcher.Match(s.Left, s.Right)
	if err != nil {
		return fmt.Errorf("match left with right: %w", err)
	}
	m.Highlight(artifact.ColorBlue)
	m.Store()

	ctx.Logger.Debug("matched revisions",
		zap.Int("score", m.Score()),
		zap.Int("left_size", s.Left.Size()),
		zap.Int("right_size", s.Right.Size()),
		zap.Stringer("counters", ctx.Matcher.Counters()),
	)
	ctx.diffed = true
	return nil
}
