package merge

import (
	"fmt"

	"github.com/jward/graft/internal/artifact"
)

// mergeUnordered merges children whose order carries no meaning. Children
// are classified like in mergeOrdered, but insertions never conflict with
// each other: additions from both sides are all kept, and shared children
// are merged with their own counterparts wherever those are.
func mergeUnordered(ctx *Context, op *MergeOperation) error {
	s := op.Scenario
	target := op.Target
	l, b, r := s.Left.Revision(), s.Base.Revision(), s.Right.Revision()

	lw := &cursor{nodes: s.Left.Children()}
	rw := &cursor{nodes: s.Right.Children()}

	for !lw.done() || !rw.done() {
		progressed := false

		if lc := lw.cur(); lc != nil && !lc.HasMatching(r) {
			if err := ctx.Apply(oneSided(lc, b, target, true)); err != nil {
				return err
			}
			lw.next()
			progressed = true
		}

		lc, rc := lw.cur(), rw.cur()
		switch {
		case rc != nil && !rc.HasMatching(l):
			if err := ctx.Apply(oneSided(rc, b, target, false)); err != nil {
				return err
			}
			rw.next()
			progressed = true

		case lc != nil && rc != nil && lc.HasMatching(r) && rc.HasMatching(l):
			if !lc.IsMerged() {
				if err := mergePair(ctx, lc, lc.Matching(r).Other(lc), b, target); err != nil {
					return err
				}
			}
			lw.next()
			if !rc.IsMerged() {
				if err := mergePair(ctx, rc.Matching(l).Other(rc), rc, b, target); err != nil {
					return err
				}
			}
			rw.next()
			progressed = true
		}

		if !progressed {
			return fmt.Errorf("%w: unordered walk stuck at %s / %s", ErrInvariant, describe(lw.cur()), describe(rw.cur()))
		}
	}
	return nil
}

// oneSided decides what happens to a child only one side has: a deletion by
// the other side when the base has it (a conflict if it changed since), an
// insertion otherwise.
func oneSided(n *artifact.Node, baseRev artifact.Revision, target *artifact.Node, fromLeft bool) Operation {
	if !n.HasMatching(baseRev) {
		return &AddOperation{Node: n, Target: target}
	}
	if !n.HasChanges() {
		return &DeleteOperation{Node: n}
	}
	if fromLeft {
		return &ConflictOperation{Left: n, Target: target}
	}
	return &ConflictOperation{Right: n, Target: target}
}
