package merge

import "fmt"

// mergeOrdered walks the children of left and right in lock-step. Children
// the other side lacks are deletions when the base has them and insertions
// otherwise. Insertions by both sides at the same position conflict, as does
// a deletion of something the other side changed. Children both sides share
// are merged recursively.
func mergeOrdered(ctx *Context, op *MergeOperation) error {
	s := op.Scenario
	target := op.Target
	l, b, r := s.Left.Revision(), s.Base.Revision(), s.Right.Revision()

	lw := &cursor{nodes: s.Left.Children()}
	rw := &cursor{nodes: s.Right.Children()}

	for !lw.done() || !rw.done() {
		progressed := false

		if lc := lw.cur(); lc != nil && !lc.HasMatching(r) {
			rc := rw.cur()
			var next Operation
			switch {
			case lc.HasMatching(b):
				// Deleted by right.
				if lc.HasChanges() {
					next = &ConflictOperation{Left: lc, Target: target}
				} else {
					next = &DeleteOperation{Node: lc}
				}
			case rc != nil && !rc.HasMatching(l) && (!rc.HasMatching(b) || rc.HasChanges()):
				// Inserted by left where right inserted or changed something.
				next = &ConflictOperation{Left: lc, Right: rc, Target: target}
				rw.next()
			default:
				next = &AddOperation{Node: lc, Target: target}
			}
			if err := ctx.Apply(next); err != nil {
				return err
			}
			lw.next()
			progressed = true
		}

		lc, rc := lw.cur(), rw.cur()
		switch {
		case rc != nil && !rc.HasMatching(l):
			var next Operation
			switch {
			case rc.HasMatching(b):
				// Deleted by left.
				if rc.HasChanges() {
					next = &ConflictOperation{Right: rc, Target: target}
				} else {
					next = &DeleteOperation{Node: rc}
				}
			case lc != nil && !lc.HasMatching(r) && (!lc.HasMatching(b) || lc.HasChanges()):
				// Inserted by right where left inserted or changed something.
				next = &ConflictOperation{Left: lc, Right: rc, Target: target}
				lw.next()
			default:
				next = &AddOperation{Node: rc, Target: target}
			}
			if err := ctx.Apply(next); err != nil {
				return err
			}
			rw.next()
			progressed = true

		case lc != nil && rc != nil && lc.HasMatching(r) && rc.HasMatching(l):
			if partner := lc.Matching(r).Other(lc); partner != rc {
				return fmt.Errorf("%w: %s is matched to %s, not %s", ErrInvariant, lc.ID(), partner.ID(), rc.ID())
			}
			if err := mergePair(ctx, lc, rc, b, target); err != nil {
				return err
			}
			lw.next()
			rw.next()
			progressed = true
		}

		if !progressed {
			return fmt.Errorf("%w: ordered walk stuck at %s / %s", ErrInvariant, describe(lw.cur()), describe(rw.cur()))
		}
	}
	return nil
}
