package nhmm

import (
	"context"
	"errors"
	"math/big"
)

var bigOne = big.NewInt(1)

// SolutionCount returns the number of distinct sequences the model can
// generate. The number of completions of a symbol depends only on its layer,
// so counts are memoised per (layer, symbol) and accumulated from the last
// layer back to Start without recursion.
func (m *Model) SolutionCount() (*big.Int, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	var below map[string]*big.Int
	for i := len(m.layers) - 1; i >= 0; i-- {
		l := m.layers[i]
		cur := make(map[string]*big.Int, len(l.prev))
		for _, prev := range l.prev {
			c := new(big.Int)
			for _, next := range l.rows[prev].next {
				if below == nil {
					c.Add(c, bigOne)
				} else if n, ok := below[next]; ok {
					c.Add(c, n)
				}
			}
			cur[prev] = c
		}
		below = cur
	}
	if c, ok := below[Start]; ok {
		return c, nil
	}
	return new(big.Int), nil
}

// walkFrame is one level of the explicit depth-first stack.
type walkFrame struct {
	layer int
	prev  string
	idx   int
}

// WalkSolutions calls fn with every sequence the model can generate, depth
// first in stored order. The number of sequences can grow exponentially with
// the sentence length; use SolutionCount first on large models. Returning
// ErrStopWalk from fn ends the walk with a nil error, any other error ends it
// with that error.
func (m *Model) WalkSolutions(ctx context.Context, fn func(seq []string) error) error {
	if err := m.ready(); err != nil {
		return err
	}
	const checkEvery = 1024

	last := len(m.layers) - 1
	path := make([]string, 0, m.sentenceLength)
	stack := []walkFrame{{layer: 0, prev: Start}}

	for steps := 0; len(stack) > 0; steps++ {
		if steps%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		top := &stack[len(stack)-1]
		r := m.layers[top.layer].rows[top.prev]
		if r == nil || top.idx >= len(r.next) {
			if top.layer > 0 {
				path = path[:len(path)-1]
			}
			stack = stack[:len(stack)-1]
			continue
		}

		next := r.next[top.idx]
		top.idx++

		if top.layer == last {
			seq := make([]string, len(path)+1)
			copy(seq, path)
			seq[len(path)] = next
			if err := fn(seq); err != nil {
				if errors.Is(err, ErrStopWalk) {
					return nil
				}
				return err
			}
			continue
		}

		path = append(path, next)
		stack = append(stack, walkFrame{layer: top.layer + 1, prev: next})
	}
	return nil
}
