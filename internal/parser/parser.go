// Package parser turns source files into artifact trees with tree-sitter and
// prints merged trees back to source text.
//
// Only named tree-sitter nodes become artifact nodes. Anonymous tokens
// (keywords, operators, punctuation) are folded into the label of their
// parent, and the text between children is kept as layout so that an
// unmerged tree prints back byte for byte.
package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/graft/internal/artifact"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrSyntax              = errors.New("syntax error")
)

// Parser converts source text into artifact trees. It is safe for
// concurrent use; every call creates its own tree-sitter parser.
type Parser struct {
	policies map[string]*artifact.Policy
}

// New returns a Parser classifying node kinds with the given per-language
// policies. Languages without a policy treat every kind as ordered.
func New(policies map[string]*artifact.Policy) *Parser {
	return &Parser{policies: policies}
}

// Policy returns the policy used for lang, or nil.
func (p *Parser) Policy(lang string) *artifact.Policy {
	return p.policies[lang]
}

// Parse parses src as lang and returns the artifact tree of revision rev.
func (p *Parser) Parse(ctx context.Context, lang string, src []byte, rev artifact.Revision) (*artifact.Node, error) {
	grammar, ok := Grammar(lang)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}

	tsParser := sitter.NewParser()
	defer tsParser.Close()
	tsParser.SetLanguage(grammar)

	tree, err := tsParser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", lang, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("%w in %s source", ErrSyntax, lang)
	}

	b := &builder{src: src, rev: rev, policy: p.policies[lang]}
	n := b.build(root, 0, uint32(len(src)))
	n.Renumber()
	return n, nil
}

type builder struct {
	src    []byte
	rev    artifact.Revision
	policy *artifact.Policy
}

// build converts n, whose text is taken to span src[start:end]. The root
// spans the whole file so that leading and trailing text is kept.
func (b *builder) build(n *sitter.Node, start, end uint32) *artifact.Node {
	kind := n.Type()
	ordered := b.policy.IsOrdered(kind)
	named := namedChildren(n)

	if len(named) == 0 || b.policy.IsTextual(kind) {
		text := string(b.src[start:end])
		leaf := artifact.NewLeaf(b.rev, kind, normalize(text), ordered)
		leaf.SetLayout(artifact.Layout{Text: text})
		return leaf
	}

	node := artifact.NewNode(b.rev, kind, b.label(n), ordered)
	last := named[len(named)-1]
	layout := artifact.Layout{
		Prefix: string(b.src[start:named[0].StartByte()]),
		Suffix: string(b.src[last.EndByte():end]),
	}
	if len(named) > 1 {
		layout.Gap = string(b.src[named[0].EndByte():named[1].StartByte()])
	}
	node.SetLayout(layout)

	for i, c := range named {
		child := b.build(c, c.StartByte(), c.EndByte())
		if i+1 < len(named) {
			l := child.Layout()
			l.Sep = string(b.src[c.EndByte():named[i+1].StartByte()])
			l.HasSep = true
			child.SetLayout(l)
		}
		node.AddChild(child)
	}
	return node
}

// label is the name field's text, if any, followed by the node's anonymous
// tokens. Two inner nodes with the same kind and label differ only in
// their children. Separators and terminators are left out, since their
// number follows the number of children.
func (b *builder) label(n *sitter.Node) string {
	var parts []string
	if name := n.ChildByFieldName("name"); name != nil {
		parts = append(parts, name.Content(b.src))
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil || c.IsNamed() || isSeparator(c) {
			continue
		}
		parts = append(parts, c.Type())
	}
	return strings.Join(parts, " ")
}

// isSeparator reports whether an anonymous token only separates or ends
// siblings: line breaks, semicolons, commas and zero-width tokens.
func isSeparator(c *sitter.Node) bool {
	if c.StartByte() == c.EndByte() {
		return true
	}
	switch t := c.Type(); t {
	case ";", ",":
		return true
	default:
		return strings.TrimSpace(t) == ""
	}
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		if c := n.NamedChild(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// normalize collapses runs of white space so that reformatting alone does
// not change a label.
func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
