package nhmm

import "math/rand/v2"

// removalLog records, per layer, the distinct symbols deleted during one phase
// of training in the order they were first removed.
type removalLog struct {
	symbols [][]string
	seen    []map[string]struct{}
}

func newRemovalLog(layers int) *removalLog {
	rl := &removalLog{
		symbols: make([][]string, layers),
		seen:    make([]map[string]struct{}, layers),
	}
	for i := range rl.seen {
		rl.seen[i] = make(map[string]struct{})
	}
	return rl
}

func (rl *removalLog) record(layer int, symbol string) {
	if _, ok := rl.seen[layer][symbol]; ok {
		return
	}
	rl.seen[layer][symbol] = struct{}{}
	rl.symbols[layer] = append(rl.symbols[layer], symbol)
}

func (rl *removalLog) get(layer int) []string {
	if rl == nil || layer < 0 || layer >= len(rl.symbols) {
		return nil
	}
	out := make([]string, len(rl.symbols[layer]))
	copy(out, rl.symbols[layer])
	return out
}

func (rl *removalLog) count(layer int) int {
	if rl == nil || layer < 0 || layer >= len(rl.symbols) {
		return 0
	}
	return len(rl.symbols[layer])
}

func (rl *removalLog) sample(layer int, r *rand.Rand) (string, bool) {
	if rl == nil || layer < 0 || layer >= len(rl.symbols) || len(rl.symbols[layer]) == 0 {
		return "", false
	}
	syms := rl.symbols[layer]
	return syms[r.IntN(len(syms))], true
}
