package matcher

import (
	"fmt"
	"math"
)

// Solver finds a maximum-weight perfect assignment on a square matrix of
// non-negative integer weights. assignment[i] is the column given to row i;
// objective is the summed weight of the assignment.
type Solver interface {
	Solve(weights [][]int) (assignment []int, objective float64, err error)
}

// SolverByName returns the solver registered under name: "hungarian" (the
// default, also selected by "") or "simplex".
func SolverByName(name string) (Solver, error) {
	switch name {
	case "", "hungarian":
		return Hungarian{}, nil
	case "simplex":
		return Simplex{}, nil
	default:
		return nil, fmt.Errorf("unknown solver %q", name)
	}
}

// Hungarian is an exact integral Kuhn-Munkres solver, O(n³).
type Hungarian struct{}

func (Hungarian) Solve(weights [][]int) ([]int, float64, error) {
	n := len(weights)
	if err := checkSquare(weights); err != nil {
		return nil, 0, err
	}
	if n == 0 {
		return nil, 0, nil
	}

	// Maximising w is minimising maxW-w.
	maxW := 0
	for _, row := range weights {
		for _, w := range row {
			maxW = max(maxW, w)
		}
	}
	cost := func(i, j int) int { return maxW - weights[i-1][j-1] }

	const inf = math.MaxInt / 4
	u := make([]int, n+1)
	v := make([]int, n+1)
	owner := make([]int, n+1) // owner[j] is the row holding column j, 1-based
	way := make([]int, n+1)
	minv := make([]int, n+1)
	used := make([]bool, n+1)

	for i := 1; i <= n; i++ {
		owner[0] = i
		j0 := 0
		for j := range minv {
			minv[j] = inf
			used[j] = false
		}
		for {
			used[j0] = true
			i0, delta, j1 := owner[j0], inf, 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				if cur := cost(i0, j) - u[i0] - v[j]; cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[owner[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if owner[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			owner[j0] = owner[j1]
			j0 = j1
		}
	}

	assignment := make([]int, n)
	objective := 0
	for j := 1; j <= n; j++ {
		i := owner[j] - 1
		assignment[i] = j - 1
		objective += weights[i][j-1]
	}
	return assignment, float64(objective), nil
}

func checkSquare(weights [][]int) error {
	for i, row := range weights {
		if len(row) != len(weights) {
			return fmt.Errorf("row %d has %d columns, want %d", i, len(row), len(weights))
		}
	}
	return nil
}
