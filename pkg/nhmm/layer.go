package nhmm

const (
	// Start is the reserved symbol every generated sequence implicitly begins from.
	Start = "<<START>>"
	// End is the reserved symbol marking the end of a sequence.
	End = "<<END>>"
)

// Layer is the transition matrix for one position of the target sequence: it
// maps a previous symbol to weighted next symbols. Previous symbols and the
// next symbols of every row keep the order in which they were first added,
// which is the order sampling walks them in.
type Layer struct {
	prev []string
	rows map[string]*row
}

type row struct {
	next   []string
	weight map[string]float64
}

func newLayer() *Layer {
	return &Layer{rows: make(map[string]*row)}
}

// add increments the weight of prev -> next, creating the row or edge if needed.
func (l *Layer) add(prev, next string, w float64) {
	r, ok := l.rows[prev]
	if !ok {
		r = &row{weight: make(map[string]float64)}
		l.rows[prev] = r
		l.prev = append(l.prev, prev)
	}
	if _, ok = r.weight[next]; !ok {
		r.next = append(r.next, next)
	}
	r.weight[next] += w
}

func (l *Layer) clone() *Layer {
	c := &Layer{
		prev: make([]string, len(l.prev)),
		rows: make(map[string]*row, len(l.rows)),
	}
	copy(c.prev, l.prev)
	for prev, r := range l.rows {
		nr := &row{
			next:   make([]string, len(r.next)),
			weight: make(map[string]float64, len(r.weight)),
		}
		copy(nr.next, r.next)
		for next, w := range r.weight {
			nr.weight[next] = w
		}
		c.rows[prev] = nr
	}
	return c
}

// Previous returns the previous symbols of the layer in stored order.
func (l *Layer) Previous() []string {
	out := make([]string, len(l.prev))
	copy(out, l.prev)
	return out
}

// Next returns the next symbols reachable from prev in stored order, or nil if
// prev has no row.
func (l *Layer) Next(prev string) []string {
	r, ok := l.rows[prev]
	if !ok {
		return nil
	}
	out := make([]string, len(r.next))
	copy(out, r.next)
	return out
}

// Weight returns the weight of prev -> next and whether the edge exists.
func (l *Layer) Weight(prev, next string) (float64, bool) {
	r, ok := l.rows[prev]
	if !ok {
		return 0, false
	}
	w, ok := r.weight[next]
	return w, ok
}

// HasPrevious reports whether prev has a row in the layer.
func (l *Layer) HasPrevious(prev string) bool {
	_, ok := l.rows[prev]
	return ok
}

// Len returns the number of previous symbols.
func (l *Layer) Len() int { return len(l.prev) }

// Size returns the number of previous/next pairs.
func (l *Layer) Size() int {
	n := 0
	for _, r := range l.rows {
		n += len(r.next)
	}
	return n
}

func (l *Layer) empty() bool { return len(l.prev) == 0 }

// rowTotal returns the sum of prev's outgoing weights.
func (l *Layer) rowTotal(prev string) float64 {
	r, ok := l.rows[prev]
	if !ok {
		return 0
	}
	var total float64
	for _, next := range r.next {
		total += r.weight[next]
	}
	return total
}

// nextSet returns every symbol that some row of the layer leads to.
func (l *Layer) nextSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, r := range l.rows {
		for _, next := range r.next {
			set[next] = struct{}{}
		}
	}
	return set
}

// leadsTo reports whether some row of the layer has an edge to next.
func (l *Layer) leadsTo(next string) bool {
	for _, r := range l.rows {
		if _, ok := r.weight[next]; ok {
			return true
		}
	}
	return false
}

// targets returns every symbol some row leads to, in the order rows and edges
// are stored.
func (l *Layer) targets() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, prev := range l.prev {
		for _, next := range l.rows[prev].next {
			if _, ok := seen[next]; !ok {
				seen[next] = struct{}{}
				out = append(out, next)
			}
		}
	}
	return out
}

// pruneRows deletes every row for which keep returns false, calling removed for
// each deleted previous symbol. It returns the number of deleted rows.
func (l *Layer) pruneRows(keep func(prev string, r *row) bool, removed func(prev string)) int {
	n := 0
	kept := l.prev[:0]
	for _, prev := range l.prev {
		if keep(prev, l.rows[prev]) {
			kept = append(kept, prev)
			continue
		}
		delete(l.rows, prev)
		n++
		if removed != nil {
			removed(prev)
		}
	}
	clear(l.prev[len(kept):])
	l.prev = kept
	return n
}

// pruneEdges deletes every edge for which keep returns false, leaving rows that
// become empty in place. It returns the number of deleted edges.
func (l *Layer) pruneEdges(keep func(prev, next string) bool, removed func(prev, next string)) int {
	n := 0
	for _, prev := range l.prev {
		r := l.rows[prev]
		kept := r.next[:0]
		for _, next := range r.next {
			if keep(prev, next) {
				kept = append(kept, next)
				continue
			}
			delete(r.weight, next)
			n++
			if removed != nil {
				removed(prev, next)
			}
		}
		clear(r.next[len(kept):])
		r.next = kept
	}
	return n
}

// sample walks prev's row in stored order and returns the first next symbol
// whose cumulative weight exceeds u. Rounding can leave the running total just
// below u for a draw close to 1, in which case the last symbol is returned.
func (l *Layer) sample(prev string, u float64) (string, bool) {
	r, ok := l.rows[prev]
	if !ok || len(r.next) == 0 {
		return "", false
	}
	var cum float64
	for _, next := range r.next {
		cum += r.weight[next]
		if cum > u {
			return next, true
		}
	}
	return r.next[len(r.next)-1], true
}

// toMap copies the layer into plain nested maps.
func (l *Layer) toMap() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(l.rows))
	for prev, r := range l.rows {
		m := make(map[string]float64, len(r.weight))
		for next, w := range r.weight {
			m[next] = w
		}
		out[prev] = m
	}
	return out
}
