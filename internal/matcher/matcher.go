// Package matcher computes maximum-score correspondences between two syntax
// trees. Each pair of nodes is matched either positionally, with Simple Tree
// Matching, or as an optimal assignment between unordered children. The
// choice is made per pair by looking at the children of both nodes.
package matcher

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jward/graft/internal/artifact"
)

// ErrSolver wraps failures of the assignment solver. They abort the merge.
var ErrSolver = errors.New("assignment solver failed")

// Counters tallies the node pairs a Matcher has dispatched since it was
// created or last reset.
type Counters struct {
	Total     int `json:"total"`
	Ordered   int `json:"ordered"`
	Unordered int `json:"unordered"`
}

// Valid reports whether every dispatched pair was counted by exactly one
// algorithm.
func (c Counters) Valid() bool {
	return c.Total == c.Ordered+c.Unordered
}

func (c Counters) String() string {
	return fmt.Sprintf("matcher calls (all/ordered/unordered): %d/%d/%d", c.Total, c.Ordered, c.Unordered)
}

// Matcher dispatches node pairs to the ordered or unordered algorithm and
// counts the calls. A Matcher holds per-merge state and must not be shared
// between concurrent merges.
type Matcher struct {
	solver   Solver
	logger   *zap.Logger
	counters Counters
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithSolver sets the assignment solver used for unordered children.
func WithSolver(s Solver) Option {
	return func(m *Matcher) {
		m.solver = s
	}
}

// WithLogger sets the logger for matcher diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(m *Matcher) {
		m.logger = l
	}
}

// New creates a Matcher using the Hungarian solver unless configured
// otherwise.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		solver: Hungarian{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Counters returns a snapshot of the dispatch counters.
func (m *Matcher) Counters() Counters {
	return m.counters
}

// Reset zeroes the dispatch counters.
func (m *Matcher) Reset() {
	m.counters = Counters{}
}

// Match computes the matching of the trees rooted at l and r. If any child
// of either node is order-significant the children are matched
// positionally, otherwise as an unordered assignment. Nodes whose content
// keys differ yield a matching of score zero.
func (m *Matcher) Match(l, r *artifact.Node) (*artifact.Matching, error) {
	m.counters.Total++
	if hasOrderedChild(l) || hasOrderedChild(r) {
		m.counters.Ordered++
		return m.matchOrdered(l, r)
	}
	m.counters.Unordered++
	return m.matchUnordered(l, r)
}

func hasOrderedChild(n *artifact.Node) bool {
	for _, c := range n.Children() {
		if c.IsOrderSignificant() {
			return true
		}
	}
	return false
}
