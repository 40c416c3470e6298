// Package strategy merges the contents of one file. The line-based
// strategy delegates to git merge-file, the structured strategy merges
// syntax trees, and the combined strategy tries the former before the
// latter.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jward/graft/internal/artifact"
	"github.com/jward/graft/internal/matcher"
	"github.com/jward/graft/internal/merge"
	"github.com/jward/graft/internal/parser"
)

// ErrUnknownStrategy is returned by New for names it does not know.
var ErrUnknownStrategy = errors.New("unknown strategy")

const (
	NameLineBased  = "linebased"
	NameStructured = "structured"
	NameCombined   = "combined"
)

// Input holds the versions of one file. Base is ignored in a two-way merge.
type Input struct {
	Path  string
	Type  artifact.MergeType
	Left  []byte
	Base  []byte
	Right []byte
}

// Result is the outcome of merging one file.
type Result struct {
	Path      string           `json:"path"`
	Strategy  string           `json:"strategy"`
	Language  string           `json:"language,omitempty"`
	Conflicts int              `json:"conflicts"`
	Fallback  string           `json:"fallback,omitempty"`
	Counters  matcher.Counters `json:"counters"`
	Stats     merge.Stats      `json:"stats"`
	Journal   []merge.Entry    `json:"-"`
	Duration  time.Duration    `json:"duration"`
	Output    []byte           `json:"-"`
}

// Strategy merges file contents.
type Strategy interface {
	Name() string
	Merge(ctx context.Context, in Input) (*Result, error)
}

// Config carries what the strategies need.
type Config struct {
	Parser  *parser.Parser
	Solver  matcher.Solver
	Markers parser.Markers
	Diff3   bool
	Logger  *zap.Logger
}

// New returns the strategy with the given name. An empty name selects the
// structured strategy.
func New(name string, cfg Config) (Strategy, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Parser == nil {
		cfg.Parser = parser.New(nil)
	}
	if cfg.Markers == (parser.Markers{}) {
		cfg.Markers = parser.DefaultMarkers
	}
	lb := &LineBased{Markers: cfg.Markers, Diff3: cfg.Diff3}
	switch name {
	case NameLineBased:
		return lb, nil
	case "", NameStructured:
		return NewStructured(cfg, lb), nil
	case NameCombined:
		return &Combined{LineBased: lb, Structured: NewStructured(cfg, lb), logger: cfg.Logger}, nil
	default:
		return nil, fmt.Errorf("%w: %q (want one of %v)", ErrUnknownStrategy, name, Names())
	}
}

// Names lists the known strategies.
func Names() []string {
	names := []string{NameLineBased, NameStructured, NameCombined}
	sort.Strings(names)
	return names
}
