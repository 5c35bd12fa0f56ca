package nhmm

import (
	"fmt"
	"math"
)

// normalize rescales every row of l so that it sums to 1, keeping the ratios
// between a row's weights. Rows with a non-positive total must already have
// been removed by arc consistency; meeting one here is an ErrInconsistent.
func normalize(l *Layer) error {
	for _, prev := range l.prev {
		total := l.rowTotal(prev)
		if total <= 0 {
			return fmt.Errorf("%w: row %q has total weight %v", ErrInconsistent, prev, total)
		}
		r := l.rows[prev]
		for _, next := range r.next {
			r.weight[next] /= total
		}
	}
	return nil
}

// startLayer builds the START layer over the rows of first, weighting each
// symbol by its prior frequency.
func startLayer(first *Layer, prior map[string]float64) *Layer {
	l := newLayer()
	for _, sym := range first.prev {
		l.add(Start, sym, prior[sym])
	}
	return l
}

// stochasticTolerance bounds how far a normalised row may sum from 1.
const stochasticTolerance = 1e-9

// verifyLayers checks that every row sums to 1 and that the layers are arc
// consistent.
func verifyLayers(layers []*Layer) error {
	for i, l := range layers {
		for _, prev := range l.prev {
			if total := l.rowTotal(prev); math.Abs(total-1) > stochasticTolerance {
				return fmt.Errorf("%w: row %q of layer %d sums to %v", ErrInconsistent, prev, i, total)
			}
		}
	}
	return checkArcConsistency(layers)
}
