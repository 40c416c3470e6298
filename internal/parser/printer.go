package parser

import (
	"bytes"
	"strings"

	"github.com/jward/graft/internal/artifact"
)

// Markers name the two sides in conflict markers.
type Markers struct {
	Left  string
	Right string
}

// DefaultMarkers match the labels git uses for a plain merge.
var DefaultMarkers = Markers{Left: "left", Right: "right"}

// Printer renders artifact trees as source text.
type Printer struct {
	markers Markers
}

// NewPrinter returns a Printer writing conflicts with the given markers.
// Empty marker labels fall back to DefaultMarkers.
func NewPrinter(m Markers) *Printer {
	if m.Left == "" {
		m.Left = DefaultMarkers.Left
	}
	if m.Right == "" {
		m.Right = DefaultMarkers.Right
	}
	return &Printer{markers: m}
}

// Print renders n with the default markers.
func Print(n *artifact.Node) []byte {
	return NewPrinter(DefaultMarkers).Print(n)
}

// Print renders the tree rooted at n. Nodes copied unchanged from one
// revision print as they appeared there; conflicts print both sides between
// <<<<<<<, ======= and >>>>>>> lines.
func (p *Printer) Print(n *artifact.Node) []byte {
	w := &writer{markers: p.markers}
	w.node(n)
	return w.buf.Bytes()
}

type writer struct {
	buf     bytes.Buffer
	markers Markers

	// afterConflict is set while nothing has been written since the end of
	// a conflict block.
	afterConflict bool
}

// text writes layout text. A conflict block already ends its last line, so
// one leading newline is dropped from the text that follows it.
func (w *writer) text(s string) {
	if w.afterConflict {
		s = strings.TrimPrefix(s, "\n")
	}
	if s != "" {
		w.afterConflict = false
		w.buf.WriteString(s)
	}
}

func (w *writer) node(n *artifact.Node) {
	if n.IsConflict() {
		w.conflict(n)
		return
	}
	layout := n.Layout()
	if n.IsLeaf() {
		w.text(layout.Text)
		return
	}

	w.text(layout.Prefix)
	children := n.Children()
	for i, c := range children {
		w.node(c)
		if i+1 < len(children) {
			w.text(separator(n, c))
		}
	}
	w.text(layout.Suffix)
}

func (w *writer) conflict(n *artifact.Node) {
	indent := w.startLine()
	left, right := n.ConflictSides()

	w.buf.WriteString("<<<<<<< " + w.markers.Left + "\n")
	if left != nil {
		w.buf.WriteString(indent)
		w.afterConflict = false
		w.node(left)
		w.startLine()
	}
	w.buf.WriteString("=======\n")
	if right != nil {
		w.buf.WriteString(indent)
		w.afterConflict = false
		w.node(right)
		w.startLine()
	}
	w.buf.WriteString(">>>>>>> " + w.markers.Right + "\n")
	w.afterConflict = true
}

// startLine moves the buffer to the start of a line. Trailing blanks after
// the last newline are removed and returned as the current indentation.
func (w *writer) startLine() string {
	data := w.buf.Bytes()
	nl := bytes.LastIndexByte(data, '\n')
	tail := data[nl+1:]
	if len(bytes.TrimSpace(tail)) == 0 {
		indent := string(tail)
		w.buf.Truncate(nl + 1)
		return indent
	}
	w.buf.WriteByte('\n')
	return ""
}

// separator returns the text to put between c and its next sibling in
// parent: c's own separator from its original position, else the gap of the
// parent, else a newline.
func separator(parent, c *artifact.Node) string {
	if sep, ok := ownSeparator(c); ok {
		return sep
	}
	if gap := parent.Layout().Gap; gap != "" {
		return gap
	}
	return "\n"
}

func ownSeparator(c *artifact.Node) (string, bool) {
	if !c.IsConflict() {
		l := c.Layout()
		return l.Sep, l.HasSep
	}
	l, r := c.ConflictSides()
	for _, side := range []*artifact.Node{l, r} {
		if side != nil && side.Layout().HasSep {
			return side.Layout().Sep, true
		}
	}
	return "", false
}
