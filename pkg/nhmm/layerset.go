package nhmm

// LayerSet is the view an Applicator gets of the transition layers while
// constraints are applied. Layer k maps the symbol at sequence position k to
// the symbol at position k+1, so a set for sentences of length n holds n-1
// layers. All deletions go through the set so that they are recorded in the
// model's constraint removal log. Indexes out of range panic.
type LayerSet struct {
	layers []*Layer
	log    *removalLog
}

// Len returns the number of transition layers.
func (s *LayerSet) Len() int { return len(s.layers) }

// Positions returns the sentence length the layers describe.
func (s *LayerSet) Positions() int { return len(s.layers) + 1 }

// Layer returns layer k for reading. Mutate it only through the LayerSet.
func (s *LayerSet) Layer(k int) *Layer { return s.layers[k] }

// RemoveEdge deletes prev -> next from layer k and reports whether it existed.
// next is logged as removed only once no edge of layer k leads to it.
func (s *LayerSet) RemoveEdge(k int, prev, next string) bool {
	l := s.layers[k]
	if _, ok := l.Weight(prev, next); !ok {
		return false
	}
	l.pruneEdges(func(p, n string) bool { return p != prev || n != next }, nil)
	if !l.leadsTo(next) {
		s.log.record(k+1, next)
	}
	return true
}

// RemovePrevious deletes the whole row of prev from layer k, which forbids prev
// at position k. It reports whether the row existed.
func (s *LayerSet) RemovePrevious(k int, prev string) bool {
	n := s.layers[k].pruneRows(func(p string, _ *row) bool { return p != prev }, nil)
	if n == 0 {
		return false
	}
	s.log.record(k+1, prev)
	return true
}

// RemoveNext deletes every edge of layer k leading to next, which forbids next
// at position k+1. It returns the number of deleted edges.
func (s *LayerSet) RemoveNext(k int, next string) int {
	n := s.layers[k].pruneEdges(func(_, n string) bool { return n != next }, nil)
	if n > 0 {
		s.log.record(k+1, next)
	}
	return n
}
