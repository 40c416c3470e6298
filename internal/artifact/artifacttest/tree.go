// Package artifacttest builds artifact trees from a compact notation for
// tests.
//
// The notation is a list of s-expressions:
//
//	(kind[:label] child...)   inner node
//	kind[:label]              leaf
//
// A kind prefixed with ~ is order-insignificant. For example
//
//	(class:A (~method:f (call:x)) ~method:g)
//
// is a class A with an unordered method f containing a call, and an
// unordered leaf method g.
package artifacttest

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jward/graft/internal/artifact"
)

// Tree parses src into a tree of the given revision and numbers it. It
// panics on malformed input.
func Tree(rev artifact.Revision, src string) *artifact.Node {
	p := &treeParser{rev: rev, toks: tokenize(src)}
	n := p.node()
	if p.pos != len(p.toks) {
		panic(fmt.Sprintf("artifacttest: trailing input at token %d in %q", p.pos, src))
	}
	n.Renumber()
	return n
}

// Find returns the first node in pre-order whose kind and label match, or nil.
func Find(root *artifact.Node, kind, label string) *artifact.Node {
	if root.Kind() == kind && root.Label() == label {
		return root
	}
	for _, c := range root.Children() {
		if n := Find(c, kind, label); n != nil {
			return n
		}
	}
	return nil
}

type treeParser struct {
	rev  artifact.Revision
	toks []string
	pos  int
}

func (p *treeParser) next() string {
	if p.pos >= len(p.toks) {
		panic("artifacttest: unexpected end of input")
	}
	t := p.toks[p.pos]
	p.pos++
	return t
}

func (p *treeParser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos]
}

func (p *treeParser) node() *artifact.Node {
	tok := p.next()
	if tok != "(" {
		kind, label, ordered := splitAtom(tok)
		n := artifact.NewLeaf(p.rev, kind, label, ordered)
		n.SetLayout(artifact.Layout{Text: tok})
		return n
	}
	kind, label, ordered := splitAtom(p.next())
	n := artifact.NewNode(p.rev, kind, label, ordered)
	for p.peek() != ")" {
		n.AddChild(p.node())
	}
	p.next()
	return n
}

func splitAtom(atom string) (kind, label string, ordered bool) {
	ordered = true
	if strings.HasPrefix(atom, "~") {
		ordered = false
		atom = atom[1:]
	}
	kind, label, _ = strings.Cut(atom, ":")
	return kind, label, ordered
}

func tokenize(src string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range src {
		switch {
		case r == '(' || r == ')':
			flush()
			toks = append(toks, string(r))
		case unicode.IsSpace(r):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}
