package artifact

import "fmt"

// Scenario bundles the inputs of one merge. Left and Right are always
// present; in a two-way merge Base is an empty dummy.
type Scenario[T any] struct {
	Type  MergeType
	Left  T
	Base  T
	Right T
}

// NewScenario builds a scenario from two (left, right) or three (left, base,
// right) inputs. For two inputs the base is produced by dummy.
func NewScenario[T any](inputs []T, dummy func() T) (Scenario[T], error) {
	mt, err := ParseMergeType(len(inputs))
	if err != nil {
		return Scenario[T]{}, err
	}
	if mt == TwoWay {
		return Scenario[T]{Type: TwoWay, Left: inputs[0], Base: dummy(), Right: inputs[1]}, nil
	}
	return Scenario[T]{Type: ThreeWay, Left: inputs[0], Base: inputs[1], Right: inputs[2]}, nil
}

func (s Scenario[T]) String() string {
	return fmt.Sprintf("%s merge", s.Type)
}
