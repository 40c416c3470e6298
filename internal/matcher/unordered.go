package matcher

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/jward/graft/internal/artifact"
)

// matchUnordered matches the children of l and r as a maximum-weight
// bipartite assignment. The weight matrix is padded to a square with
// zero-weight dummy rows or columns; only real pairs with positive weight
// are kept as child matchings.
func (m *Matcher) matchUnordered(l, r *artifact.Node) (*artifact.Matching, error) {
	if !l.Matches(r) {
		return artifact.NewMatching(l, r, 0, nil), nil
	}

	rows, cols := l.NumChildren(), r.NumChildren()
	if rows == 0 || cols == 0 {
		return artifact.NewMatching(l, r, 1, nil), nil
	}

	width := max(rows, cols)
	weights := make([][]int, width)
	for i := range weights {
		weights[i] = make([]int, width)
	}
	pairs := make([][]*artifact.Matching, rows)
	for i := 0; i < rows; i++ {
		pairs[i] = make([]*artifact.Matching, cols)
		for j := 0; j < cols; j++ {
			w, err := m.Match(l.Child(i), r.Child(j))
			if err != nil {
				return nil, err
			}
			pairs[i][j] = w
			weights[i][j] = w.Score()
		}
	}

	assignment, objective, err := m.solver.Solve(weights)
	if err != nil {
		return nil, fmt.Errorf("%w: %s vs %s: %w", ErrSolver, l.ID(), r.ID(), err)
	}

	var children []*artifact.Matching
	for i, j := range assignment {
		if i >= rows || j >= cols || weights[i][j] <= 0 {
			continue
		}
		c := pairs[i][j]
		c.Tag(artifact.AlgorithmUnordered)
		children = append(children, c)
	}

	score := int(math.Round(objective)) + 1
	m.logger.Debug("unordered match",
		zap.String("left", l.ID()),
		zap.String("right", r.ID()),
		zap.Int("width", width),
		zap.Int("score", score),
		zap.Int("children", len(children)),
	)
	return artifact.NewMatching(l, r, score, children), nil
}
