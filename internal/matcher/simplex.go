package matcher

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// Simplex solves the assignment as a linear program: one variable in [0,1]
// per cell, every row and every column summing to one, weight maximised. The
// constraint matrix is totally unimodular, so the optimal vertex is
// integral. One column constraint is implied by the others and is dropped to
// keep the system at full row rank.
type Simplex struct{}

const simplexTol = 1e-10

func (Simplex) Solve(weights [][]int) (assignment []int, objective float64, err error) {
	n := len(weights)
	if err := checkSquare(weights); err != nil {
		return nil, 0, err
	}
	if n == 0 {
		return nil, 0, nil
	}

	// lp panics on malformed input.
	defer func() {
		if r := recover(); r != nil {
			assignment, objective, err = nil, 0, fmt.Errorf("simplex: %v", r)
		}
	}()

	vars := n * n
	c := make([]float64, vars)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			c[i*n+j] = -float64(weights[i][j])
		}
	}

	rows := 2*n - 1
	a := mat.NewDense(rows, vars, nil)
	b := make([]float64, rows)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a.Set(i, i*n+j, 1)
		}
		b[i] = 1
	}
	for j := 0; j < n-1; j++ {
		for i := 0; i < n; i++ {
			a.Set(n+j, i*n+j, 1)
		}
		b[n+j] = 1
	}

	optF, x, err := lp.Simplex(c, a, b, simplexTol, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("simplex: %w", err)
	}

	assignment = make([]int, n)
	taken := make([]bool, n)
	for i := 0; i < n; i++ {
		assignment[i] = -1
		for j := 0; j < n; j++ {
			if x[i*n+j] > 0.5 {
				assignment[i] = j
				break
			}
		}
		if assignment[i] < 0 || taken[assignment[i]] {
			return nil, 0, fmt.Errorf("simplex: fractional solution in row %d", i)
		}
		taken[assignment[i]] = true
	}
	return assignment, -optF, nil
}
