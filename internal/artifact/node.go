package artifact

import (
	"fmt"
	"sync/atomic"
)

// ConflictKind is the kind given to synthetic conflict nodes.
const ConflictKind = "conflict"

// Layout holds the source text surrounding a node, used to print merged
// trees. Text is only set on leaves. Prefix and Suffix are the text between
// the node's start and its first child and between its last child and its
// end. Gap is the text between the first two children, used to separate
// children that have no separator of their own. Sep is the text following
// the node in its original parent up to the next sibling. HasSep is false
// for a last child, which has no separator; a captured Sep may be empty.
type Layout struct {
	Text   string
	Prefix string
	Suffix string
	Gap    string
	Sep    string
	HasSep bool
}

// serials numbers nodes in creation order across all trees.
var serials atomic.Uint64

// Node is one element of a syntax tree taking part in a merge.
//
// Each node belongs to exactly one revision. A node is either a leaf or an
// inner node; leaves never gain children. The kind and label together form
// the content key compared by Matches.
type Node struct {
	id       int
	serial   uint64
	kind     string
	label    string
	revision Revision
	leaf     bool
	dummy    bool
	ordered  bool
	layout   Layout

	parent   *Node
	children []*Node

	// matches is keyed by the revision of the counterpart node.
	matches map[Revision]*Matching
	merged  bool

	conflict  bool
	conflictL *Node
	conflictR *Node
}

// NewNode creates an inner node.
func NewNode(rev Revision, kind, label string, ordered bool) *Node {
	return &Node{serial: serials.Add(1), kind: kind, label: label, revision: rev, ordered: ordered}
}

// NewLeaf creates a leaf node.
func NewLeaf(rev Revision, kind, label string, ordered bool) *Node {
	return &Node{serial: serials.Add(1), kind: kind, label: label, revision: rev, ordered: ordered, leaf: true}
}

// EmptyDummy returns a placeholder node with no children that never matches
// anything. It stands in for the missing base of a two-way merge.
func EmptyDummy(rev Revision) *Node {
	return &Node{serial: serials.Add(1), revision: rev, dummy: true, ordered: true}
}

// NewConflict creates a node standing for two competing versions of a
// subtree. Either side may be nil.
func NewConflict(left, right *Node) *Node {
	return &Node{
		serial:    serials.Add(1),
		kind:      ConflictKind,
		revision:  Merged,
		leaf:      true,
		ordered:   true,
		conflict:  true,
		conflictL: left,
		conflictR: right,
	}
}

// ID returns an identifier unique within a revision, for example "left:4".
func (n *Node) ID() string {
	return fmt.Sprintf("%s:%d", n.revision, n.id)
}

// Renumber assigns pre-order numbers to the subtree rooted at n.
func (n *Node) Renumber() {
	next := 0
	var walk func(*Node)
	walk = func(c *Node) {
		c.id = next
		next++
		for _, cc := range c.children {
			walk(cc)
		}
	}
	walk(n)
}

func (n *Node) Kind() string       { return n.kind }
func (n *Node) Label() string      { return n.label }
func (n *Node) Revision() Revision { return n.revision }
func (n *Node) Parent() *Node      { return n.parent }
func (n *Node) IsLeaf() bool       { return n.leaf }
func (n *Node) IsEmptyDummy() bool { return n.dummy }
func (n *Node) IsConflict() bool   { return n.conflict }

// IsOrderSignificant reports whether the node's position among its siblings
// carries meaning.
func (n *Node) IsOrderSignificant() bool {
	return n.ordered
}

// Layout returns the source text surrounding the node.
func (n *Node) Layout() Layout {
	return n.layout
}

// SetLayout replaces the node's layout.
func (n *Node) SetLayout(l Layout) {
	n.layout = l
}

// ConflictSides returns the two competing subtrees of a conflict node.
func (n *Node) ConflictSides() (left, right *Node) {
	return n.conflictL, n.conflictR
}

// Children returns the node's children. The slice must not be modified.
func (n *Node) Children() []*Node {
	return n.children
}

func (n *Node) NumChildren() int {
	return len(n.children)
}

func (n *Node) Child(i int) *Node {
	return n.children[i]
}

// HasChildren reports whether n has at least one child.
func (n *Node) HasChildren() bool {
	return len(n.children) > 0
}

// AddChild appends c to n's children and makes n its parent.
func (n *Node) AddChild(c *Node) {
	if n.leaf || n.dummy {
		panic(fmt.Sprintf("artifact: cannot add child to %s %s", n.kind, n.ID()))
	}
	c.parent = n
	n.children = append(n.children, c)
}

// DeleteChildren removes all children of n.
func (n *Node) DeleteChildren() {
	for _, c := range n.children {
		c.parent = nil
	}
	n.children = nil
}

// Matches reports whether n and other carry the same content key. Dummies and
// conflict nodes match nothing.
func (n *Node) Matches(other *Node) bool {
	if n == nil || other == nil {
		return false
	}
	if n.dummy || other.dummy || n.conflict || other.conflict {
		return false
	}
	return n.kind == other.kind && n.label == other.label
}

// CloneShallow copies n without its children, parent or matchings.
func (n *Node) CloneShallow() *Node {
	return &Node{
		id:        n.id,
		serial:    serials.Add(1),
		kind:      n.kind,
		label:     n.label,
		revision:  n.revision,
		leaf:      n.leaf,
		dummy:     n.dummy,
		ordered:   n.ordered,
		layout:    n.layout,
		conflict:  n.conflict,
		conflictL: n.conflictL,
		conflictR: n.conflictR,
	}
}

// Clone deep-copies the subtree rooted at n. Matchings are not copied.
func (n *Node) Clone() *Node {
	c := n.CloneShallow()
	for _, child := range n.children {
		c.AddChild(child.Clone())
	}
	return c
}

// Size returns the number of nodes in the subtree rooted at n.
func (n *Node) Size() int {
	size := 1
	for _, c := range n.children {
		size += c.Size()
	}
	return size
}

// HasMatching reports whether n is matched to a node of revision rev.
func (n *Node) HasMatching(rev Revision) bool {
	_, ok := n.matches[rev]
	return ok
}

// Matching returns the matching between n and a node of revision rev, or nil.
func (n *Node) Matching(rev Revision) *Matching {
	return n.matches[rev]
}

// HasMatches reports whether n is matched to any node at all.
func (n *Node) HasMatches() bool {
	return len(n.matches) > 0
}

// HasChanges reports whether n or a node below it has no counterpart in
// any other revision.
func (n *Node) HasChanges() bool {
	if !n.HasMatches() {
		return true
	}
	for _, c := range n.children {
		if c.HasChanges() {
			return true
		}
	}
	return false
}

func (n *Node) setMatching(rev Revision, m *Matching) {
	if n.matches == nil {
		n.matches = make(map[Revision]*Matching, 2)
	}
	n.matches[rev] = m
}

// IsMerged reports whether n has already been merged.
func (n *Node) IsMerged() bool {
	return n.merged
}

func (n *Node) SetMerged(merged bool) {
	n.merged = merged
}

func (n *Node) String() string {
	if n.dummy {
		return "<dummy>"
	}
	if n.label == "" {
		return n.kind
	}
	return fmt.Sprintf("%s %q", n.kind, n.label)
}
