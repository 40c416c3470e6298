package artifact

import (
	"errors"
	"fmt"
)

// Revision identifies one version of an artifact taking part in a merge.
type Revision string

const (
	Left   Revision = "left"
	Base   Revision = "base"
	Right  Revision = "right"
	Merged Revision = "merge"
)

func (r Revision) String() string {
	return string(r)
}

// ErrUnsupportedMergeType is returned when a merge is requested with an
// input count other than two or three.
var ErrUnsupportedMergeType = errors.New("unsupported merge type")

// MergeType is the kind of merge, identified by its number of inputs.
type MergeType int

const (
	TwoWay   MergeType = 2
	ThreeWay MergeType = 3
)

// NumFiles returns the number of inputs a merge of this type consumes.
func (t MergeType) NumFiles() int {
	return int(t)
}

func (t MergeType) String() string {
	switch t {
	case TwoWay:
		return "two-way"
	case ThreeWay:
		return "three-way"
	default:
		return fmt.Sprintf("merge-type(%d)", int(t))
	}
}

// ParseMergeType maps an input count to a MergeType.
func ParseMergeType(inputs int) (MergeType, error) {
	switch inputs {
	case 2:
		return TwoWay, nil
	case 3:
		return ThreeWay, nil
	default:
		return 0, fmt.Errorf("%w: %d inputs", ErrUnsupportedMergeType, inputs)
	}
}
