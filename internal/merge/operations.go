package merge

import (
	"fmt"

	"github.com/jward/graft/internal/artifact"
)

// Operation is one step building the merged tree.
type Operation interface {
	Apply(ctx *Context) error
	Name() string
	fmt.Stringer
}

// AddOperation copies Node into Target.
type AddOperation struct {
	Node   *artifact.Node
	Target *artifact.Node
}

func (op *AddOperation) Name() string { return "ADD" }

func (op *AddOperation) Apply(ctx *Context) error {
	op.Target.AddChild(op.Node.Clone())
	ctx.Stats.Added++
	return nil
}

func (op *AddOperation) String() string {
	return fmt.Sprintf("ADD %s %s", op.Node.ID(), op.Node)
}

// DeleteOperation drops Node. The merged tree is built from scratch, so
// deleting means not copying; the operation only records the decision.
type DeleteOperation struct {
	Node *artifact.Node
}

func (op *DeleteOperation) Name() string { return "DELETE" }

func (op *DeleteOperation) Apply(ctx *Context) error {
	ctx.Stats.Deleted++
	return nil
}

func (op *DeleteOperation) String() string {
	return fmt.Sprintf("DELETE %s %s", op.Node.ID(), op.Node)
}

// ConflictOperation adds a conflict node holding copies of Left and Right to
// Target. Either side may be nil.
type ConflictOperation struct {
	Left   *artifact.Node
	Right  *artifact.Node
	Target *artifact.Node
}

func (op *ConflictOperation) Name() string { return "CONFLICT" }

func (op *ConflictOperation) Apply(ctx *Context) error {
	var l, r *artifact.Node
	if op.Left != nil {
		l = op.Left.Clone()
	}
	if op.Right != nil {
		r = op.Right.Clone()
	}
	op.Target.AddChild(artifact.NewConflict(l, r))
	ctx.Stats.Conflicts++
	return nil
}

func (op *ConflictOperation) String() string {
	return fmt.Sprintf("CONFLICT %s <> %s", describe(op.Left), describe(op.Right))
}

// MergeOperation merges the nodes of Scenario into Target, which is a
// childless copy of the left node.
type MergeOperation struct {
	Scenario artifact.Scenario[*artifact.Node]
	Target   *artifact.Node
}

func (op *MergeOperation) Name() string { return "MERGE" }

func (op *MergeOperation) Apply(ctx *Context) error {
	ctx.Stats.Merged++
	return Merge(ctx, op)
}

func (op *MergeOperation) String() string {
	s := op.Scenario
	return fmt.Sprintf("MERGE %s %s, %s, %s", s.Type, describe(s.Left), describe(s.Base), describe(s.Right))
}

func describe(n *artifact.Node) string {
	if n == nil {
		return "<none>"
	}
	if n.IsEmptyDummy() {
		return "<dummy>"
	}
	return n.ID()
}
