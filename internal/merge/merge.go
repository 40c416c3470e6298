package merge

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jward/graft/internal/artifact"
)

// Merge merges the scenario of op into op.Target. On the outermost call the
// matchings between all revisions are computed and stored; nested calls
// reuse them.
func Merge(ctx *Context, op *MergeOperation) error {
	s := op.Scenario
	left, base, right, target := s.Left, s.Base, s.Right, op.Target

	if !ctx.diffed {
		if err := ctx.diff(s); err != nil {
			return err
		}
		if !left.HasMatching(right.Revision()) || !right.HasMatching(left.Revision()) {
			ctx.Logger.Debug("roots differ", zap.Stringer("left", left), zap.Stringer("right", right))
			return fmt.Errorf("%w: %s vs %s", ErrRootsDiffer, left, right)
		}
	}

	leftChildren, rightChildren := left.Children(), right.Children()
	if (base.IsEmptyDummy() || base.HasChildren()) && (len(leftChildren) == 0 || len(rightChildren) == 0) {
		switch {
		case len(leftChildren) == 0 && len(rightChildren) == 0:
			return nil
		case len(leftChildren) == 0:
			return dropAll(ctx, rightChildren, target, false)
		default:
			return dropAll(ctx, leftChildren, target, true)
		}
	}

	if hasOrderedChild(left) || hasOrderedChild(right) {
		return mergeOrdered(ctx, op)
	}
	return mergeUnordered(ctx, op)
}

// dropAll handles one side having lost all of its children: the other side's
// children are deleted unless they changed, in which case they conflict with
// the deletion.
func dropAll(ctx *Context, children []*artifact.Node, target *artifact.Node, fromLeft bool) error {
	for _, c := range children {
		var op Operation = &DeleteOperation{Node: c}
		if c.HasChanges() {
			if fromLeft {
				op = &ConflictOperation{Left: c, Target: target}
			} else {
				op = &ConflictOperation{Right: c, Target: target}
			}
		}
		if err := ctx.Apply(op); err != nil {
			return err
		}
	}
	return nil
}

func hasOrderedChild(n *artifact.Node) bool {
	for _, c := range n.Children() {
		if c.IsOrderSignificant() {
			return true
		}
	}
	return false
}

// mergePair merges a left child with its right counterpart into a new child
// of target. The pair is merged three-way if the left child has a base
// counterpart, else two-way against an empty base.
func mergePair(ctx *Context, lc, rc *artifact.Node, baseRev artifact.Revision, target *artifact.Node) error {
	mt := artifact.TwoWay
	bc := artifact.EmptyDummy(artifact.Base)
	if m := lc.Matching(baseRev); m != nil {
		mt = artifact.ThreeWay
		bc = m.Other(lc)
	}

	t := lc.CloneShallow()
	target.AddChild(t)
	lc.SetMerged(true)
	rc.SetMerged(true)

	return ctx.Apply(&MergeOperation{
		Scenario: artifact.Scenario[*artifact.Node]{Type: mt, Left: lc, Base: bc, Right: rc},
		Target:   t,
	})
}

// cursor walks a child list.
type cursor struct {
	nodes []*artifact.Node
	pos   int
}

func (c *cursor) cur() *artifact.Node {
	if c.pos < len(c.nodes) {
		return c.nodes[c.pos]
	}
	return nil
}

func (c *cursor) next() {
	c.pos++
}

func (c *cursor) done() bool {
	return c.pos >= len(c.nodes)
}
