package artifact

import "fmt"

// Algorithm tags recorded on matchings.
const (
	AlgorithmOrdered   = "stm"
	AlgorithmUnordered = "unordered"
)

// Color is a highlight colour attached to a matching for diagnostics.
type Color int

const (
	ColorNone Color = iota
	ColorGreen
	ColorBlue
)

func (c Color) String() string {
	switch c {
	case ColorGreen:
		return "green"
	case ColorBlue:
		return "blue"
	default:
		return "none"
	}
}

// Matching records that two nodes from different revisions correspond. The
// score counts the node pairs in the matched subtrees. A Matching is not
// modified after a matcher returns it, apart from its highlight colour.
type Matching struct {
	left      *Node
	right     *Node
	score     int
	children  []*Matching
	algorithm string
	color     Color
}

// NewMatching creates a matching between left and right.
func NewMatching(left, right *Node, score int, children []*Matching) *Matching {
	return &Matching{left: left, right: right, score: score, children: children}
}

func (m *Matching) Left() *Node           { return m.left }
func (m *Matching) Right() *Node          { return m.right }
func (m *Matching) Score() int            { return m.score }
func (m *Matching) Children() []*Matching { return m.children }
func (m *Matching) Algorithm() string     { return m.algorithm }
func (m *Matching) Color() Color          { return m.color }

// Tag records the algorithm that produced m as part of its parent matching.
func (m *Matching) Tag(algorithm string) {
	m.algorithm = algorithm
}

// Highlight sets the colour of m and all of its child matchings.
func (m *Matching) Highlight(c Color) {
	m.color = c
	for _, child := range m.children {
		child.Highlight(c)
	}
}

// Other returns the counterpart of n in m, or nil if n is not part of m.
func (m *Matching) Other(n *Node) *Node {
	switch n {
	case m.left:
		return m.right
	case m.right:
		return m.left
	default:
		return nil
	}
}

// PairKey identifies the unordered pair of nodes of a matching.
type PairKey struct {
	a, b *Node
}

// Key returns the same value for (l, r) and (r, l). Nodes are ordered by ID,
// then by creation.
func (m *Matching) Key() PairKey {
	if before(m.left, m.right) {
		return PairKey{a: m.left, b: m.right}
	}
	return PairKey{a: m.right, b: m.left}
}

func before(a, b *Node) bool {
	if ia, ib := a.ID(), b.ID(); ia != ib {
		return ia < ib
	}
	return a.serial <= b.serial
}

// Equal reports whether m and o pair the same two nodes, in either order.
func (m *Matching) Equal(o *Matching) bool {
	if m == nil || o == nil {
		return m == o
	}
	return (m.left == o.left && m.right == o.right) || (m.left == o.right && m.right == o.left)
}

// Store installs back-references from both nodes of m, and recursively of its
// children, to the matchings that cover them. Matchings with score zero are
// skipped together with everything below them. Storing twice is a no-op.
func (m *Matching) Store() {
	if m.score <= 0 {
		return
	}
	if !m.left.Matches(m.right) {
		panic(fmt.Sprintf("artifact: matching %s pairs nodes with different content", m))
	}
	m.left.setMatching(m.right.revision, m)
	m.right.setMatching(m.left.revision, m)
	for _, c := range m.children {
		c.Store()
	}
}

func (m *Matching) String() string {
	return fmt.Sprintf("(%s, %s) = %d", m.left.ID(), m.right.ID(), m.score)
}
