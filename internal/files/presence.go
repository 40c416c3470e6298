package files

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/jward/graft/internal/artifact"
)

var (
	ErrGhostArtifact        = errors.New("entry present in no revision")
	ErrInvalidCardinality   = errors.New("invalid presence cardinality")
	ErrInconsistentPresence = errors.New("inconsistent presence")
)

// Presence records which revisions contain a directory entry.
type Presence uint8

const (
	PresentLeft Presence = 1 << iota
	PresentBase
	PresentRight

	presenceMask = PresentLeft | PresentBase | PresentRight
)

var presenceBits = []struct {
	bit Presence
	rev artifact.Revision
}{
	{PresentLeft, artifact.Left},
	{PresentBase, artifact.Base},
	{PresentRight, artifact.Right},
}

// PresenceOf returns the bit of a revision.
func PresenceOf(rev artifact.Revision) Presence {
	for _, b := range presenceBits {
		if b.rev == rev {
			return b.bit
		}
	}
	return 0
}

func (p Presence) Has(rev artifact.Revision) bool {
	bit := PresenceOf(rev)
	return bit != 0 && p&bit != 0
}

// Cardinality is the number of bits set, including bits outside the three
// revisions.
func (p Presence) Cardinality() int {
	return bits.OnesCount8(uint8(p))
}

func (p Presence) String() string {
	var names []string
	for _, b := range presenceBits {
		if p&b.bit != 0 {
			names = append(names, string(b.rev))
		}
	}
	if extra := p &^ presenceMask; extra != 0 {
		names = append(names, fmt.Sprintf("%#x", uint8(extra)))
	}
	return "{" + strings.Join(names, ",") + "}"
}

// Action is what a directory merge does with one entry.
type Action int

const (
	ActionAdd Action = iota + 1
	ActionDelete
	ActionMergeTwoWay
	ActionMergeThreeWay
)

func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionDelete:
		return "delete"
	case ActionMergeTwoWay:
		return "merge two-way"
	case ActionMergeThreeWay:
		return "merge three-way"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Decision is the outcome of Decide. From names the revision whose entry
// is added or reported as deleted; it is empty for merges.
type Decision struct {
	Action Action
	From   artifact.Revision
}

// Decide classifies an entry by the revisions it is present in:
//
//	{base}               deleted by both sides     Delete base entry
//	{left} or {right}    added by one side         Add that entry
//	{left,right}         added by both sides       two-way merge
//	{base,left}          deleted by right          Delete left entry
//	{base,right}         deleted by left           Delete right entry
//	{left,base,right}    present everywhere        three-way merge
func Decide(p Presence) (Decision, error) {
	if p&^presenceMask != 0 {
		return Decision{}, fmt.Errorf("%w: %s has %d bits", ErrInvalidCardinality, p, p.Cardinality())
	}

	switch p.Cardinality() {
	case 0:
		return Decision{}, ErrGhostArtifact
	case 1:
		switch {
		case p.Has(artifact.Base):
			return Decision{Action: ActionDelete, From: artifact.Base}, nil
		case p.Has(artifact.Left):
			return Decision{Action: ActionAdd, From: artifact.Left}, nil
		default:
			return Decision{Action: ActionAdd, From: artifact.Right}, nil
		}
	case 2:
		if p.Has(artifact.Left) && p.Has(artifact.Right) {
			return Decision{Action: ActionMergeTwoWay}, nil
		}
		if !p.Has(artifact.Base) {
			return Decision{}, fmt.Errorf("%w: %s", ErrInconsistentPresence, p)
		}
		if p.Has(artifact.Left) {
			return Decision{Action: ActionDelete, From: artifact.Left}, nil
		}
		return Decision{Action: ActionDelete, From: artifact.Right}, nil
	case 3:
		return Decision{Action: ActionMergeThreeWay}, nil
	default:
		return Decision{}, fmt.Errorf("%w: %s", ErrInvalidCardinality, p)
	}
}
