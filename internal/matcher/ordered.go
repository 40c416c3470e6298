package matcher

import (
	"slices"

	"github.com/jward/graft/internal/artifact"
)

type step uint8

const (
	stepDiag step = iota
	stepLeft
	stepTop
)

// matchOrdered is Yang's Simple Tree Matching. The children of l and r are
// aligned in order by a dynamic program over prefix pairs; the score of a
// pair of children is their own (dispatched) matching score.
func (m *Matcher) matchOrdered(l, r *artifact.Node) (*artifact.Matching, error) {
	if !l.Matches(r) {
		return artifact.NewMatching(l, r, 0, nil), nil
	}

	rows, cols := l.NumChildren(), r.NumChildren()
	score := make([][]int, rows+1)
	steps := make([][]step, rows+1)
	pairs := make([][]*artifact.Matching, rows+1)
	for i := range score {
		score[i] = make([]int, cols+1)
		steps[i] = make([]step, cols+1)
		pairs[i] = make([]*artifact.Matching, cols+1)
	}

	for i := 1; i <= rows; i++ {
		for j := 1; j <= cols; j++ {
			w, err := m.Match(l.Child(i-1), r.Child(j-1))
			if err != nil {
				return nil, err
			}
			pairs[i][j] = w

			left, top := score[i][j-1], score[i-1][j]
			diag := score[i-1][j-1] + w.Score()
			switch {
			case left > top && left > diag:
				score[i][j], steps[i][j] = left, stepLeft
			case left > top:
				score[i][j], steps[i][j] = diag, stepDiag
			case top > diag:
				score[i][j], steps[i][j] = top, stepTop
			default:
				score[i][j], steps[i][j] = diag, stepDiag
			}
		}
	}

	var children []*artifact.Matching
	for i, j := rows, cols; i >= 1 && j >= 1; {
		switch steps[i][j] {
		case stepLeft:
			j--
		case stepTop:
			i--
		default:
			if score[i][j] > score[i-1][j-1] {
				c := pairs[i][j]
				c.Tag(artifact.AlgorithmOrdered)
				children = append(children, c)
			}
			i--
			j--
		}
	}
	slices.Reverse(children)

	return artifact.NewMatching(l, r, score[rows][cols]+1, children), nil
}
