package artifact

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes an indented plain-text rendering of the tree rooted at n, one
// node per line, with its id, content key, ordering and stored matchings.
func Dump(w io.Writer, n *Node) {
	dump(w, n, 0)
}

// DumpString is Dump into a string.
func DumpString(n *Node) string {
	var sb strings.Builder
	Dump(&sb, n)
	return sb.String()
}

func dump(w io.Writer, n *Node, depth int) {
	indent := strings.Repeat("  ", depth)
	if n.conflict {
		fmt.Fprintf(w, "%s(conflict)\n", indent)
		l, r := n.ConflictSides()
		for _, side := range []*Node{l, r} {
			if side != nil {
				dump(w, side, depth+1)
			} else {
				fmt.Fprintf(w, "%s  <none>\n", indent)
			}
		}
		return
	}

	order := "ordered"
	if !n.ordered {
		order = "unordered"
	}
	fmt.Fprintf(w, "%s%s %s [%s]", indent, n.ID(), n, order)
	for _, rev := range []Revision{Left, Base, Right} {
		if m := n.matches[rev]; m != nil {
			fmt.Fprintf(w, " %s=%s", rev, m.Other(n).ID())
		}
	}
	fmt.Fprintln(w)
	for _, c := range n.children {
		dump(w, c, depth+1)
	}
}
