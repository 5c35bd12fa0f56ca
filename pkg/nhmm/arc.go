package nhmm

import (
	"context"
	"fmt"
)

// enforceArcConsistency deletes dead nodes from the transition layers until a
// full backward and forward pass deletes nothing. Layer k of layers is logged
// under index k+1 of log, matching the layer numbering after the START layer is
// prepended. It returns the number of deletions.
//
// Deletions only ever shrink a finite structure, so the loop terminates, and
// the fixpoint does not depend on pass order.
func enforceArcConsistency(ctx context.Context, layers []*Layer, log *removalLog) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		removed := backwardPass(layers, log) + forwardPass(layers, log)
		total += removed
		if removed == 0 {
			return total, nil
		}
	}
}

// backwardPass walks from the last layer to the first, deleting edges into
// symbols that cannot continue at the following position and then rows left
// without edges.
func backwardPass(layers []*Layer, log *removalLog) int {
	n := 0
	for k := len(layers) - 1; k >= 0; k-- {
		l := layers[k]
		if k < len(layers)-1 {
			following := layers[k+1]
			n += l.pruneEdges(
				func(_, next string) bool { return following.HasPrevious(next) },
				func(_, next string) { log.record(k+1, next) },
			)
		}
		n += l.pruneRows(
			func(_ string, r *row) bool { return len(r.next) > 0 },
			func(prev string) { log.record(k+1, prev) },
		)
	}
	return n
}

// forwardPass walks from the second layer to the last, deleting rows whose
// symbol no edge of the preceding layer reaches.
func forwardPass(layers []*Layer, log *removalLog) int {
	n := 0
	for k := 1; k < len(layers); k++ {
		reachable := layers[k-1].nextSet()
		n += layers[k].pruneRows(
			func(prev string, _ *row) bool {
				_, ok := reachable[prev]
				return ok
			},
			func(prev string) { log.record(k+1, prev) },
		)
	}
	return n
}

// firstEmpty returns the index of the first layer without rows, or -1.
func firstEmpty(layers []*Layer) int {
	for k, l := range layers {
		if l.empty() {
			return k
		}
	}
	return -1
}

// checkArcConsistency verifies that every edge of a trained model lies on a
// complete path: every edge target has a row in the following layer and every
// row of a later layer is reached from the preceding one.
func checkArcConsistency(layers []*Layer) error {
	for k, l := range layers {
		if k+1 < len(layers) {
			following := layers[k+1]
			for _, prev := range l.prev {
				for _, next := range l.rows[prev].next {
					if !following.HasPrevious(next) {
						return fmt.Errorf("%w: %q -> %q at layer %d leads to a dead end", ErrInconsistent, prev, next, k)
					}
				}
			}
		}
		if k > 0 {
			reachable := layers[k-1].nextSet()
			for _, prev := range l.prev {
				if _, ok := reachable[prev]; !ok {
					return fmt.Errorf("%w: %q at layer %d is unreachable", ErrInconsistent, prev, k)
				}
			}
		}
	}
	return nil
}
