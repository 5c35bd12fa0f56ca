package nhmm

import (
	"context"
	"log/slog"
	"math/rand/v2"
)

// DebugInfo is a snapshot of a trained model's shape.
type DebugInfo struct {
	Order                   int   `json:"order"`
	SentenceLength          int   `json:"sentence_length"`
	TrainingSequences       int   `json:"training_sequences"`
	LayerSizes              []int `json:"layer_sizes"`
	RemovedByConstraint     []int `json:"removed_by_constraint"`
	RemovedByArcConsistency []int `json:"removed_by_arc_consistency"`
}

// Order returns the Markov order of the source the model was trained from.
func (m *Model) Order() int { return m.order }

// SentenceLength returns the length of every generated sequence, or 0 before
// training.
func (m *Model) SentenceLength() int { return m.sentenceLength }

// Trained reports whether Train has completed successfully.
func (m *Model) Trained() bool { return m.trained }

// TrainingSequences returns a copy of the sequences the model was trained on.
func (m *Model) TrainingSequences() [][]string {
	out := make([][]string, len(m.sequences))
	for i, s := range m.sequences {
		out[i] = append([]string(nil), s...)
	}
	return out
}

// LayerSizes returns the number of previous/next pairs in each layer,
// starting with the START layer.
func (m *Model) LayerSizes() []int {
	out := make([]int, len(m.layers))
	for i, l := range m.layers {
		out[i] = l.Size()
	}
	return out
}

// Frequencies returns a copy of the unconstrained transition counts.
func (m *Model) Frequencies() map[string]map[string]float64 {
	if m.frequencies == nil {
		return nil
	}
	return m.frequencies.toMap()
}

// Transitions returns a copy of layer i's transition probabilities, or nil if
// i is out of range.
func (m *Model) Transitions(i int) map[string]map[string]float64 {
	if i < 0 || i >= len(m.layers) {
		return nil
	}
	return m.layers[i].toMap()
}

// RemovedByConstraint returns the symbols constraint application deleted from
// layer i.
func (m *Model) RemovedByConstraint(i int) []string { return m.byConstraint.get(i) }

// RemovedByArcConsistency returns the symbols arc consistency deleted from
// layer i.
func (m *Model) RemovedByArcConsistency(i int) []string { return m.byArc.get(i) }

// SampleRemovedByConstraint returns a random symbol deleted from layer i by
// constraint application. r may be nil to use the model's source.
func (m *Model) SampleRemovedByConstraint(i int, r *rand.Rand) (string, bool) {
	return m.sampleRemoved(m.byConstraint, i, r)
}

// SampleRemovedByArcConsistency returns a random symbol deleted from layer i
// by arc consistency. r may be nil to use the model's source.
func (m *Model) SampleRemovedByArcConsistency(i int, r *rand.Rand) (string, bool) {
	return m.sampleRemoved(m.byArc, i, r)
}

func (m *Model) sampleRemoved(rl *removalLog, i int, r *rand.Rand) (string, bool) {
	if r != nil {
		return rl.sample(i, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return rl.sample(i, m.rng)
}

// DebugInfo returns a snapshot of the model's shape.
func (m *Model) DebugInfo() DebugInfo {
	info := DebugInfo{
		Order:                   m.order,
		SentenceLength:          m.sentenceLength,
		TrainingSequences:       len(m.sequences),
		LayerSizes:              m.LayerSizes(),
		RemovedByConstraint:     make([]int, len(m.layers)),
		RemovedByArcConsistency: make([]int, len(m.layers)),
	}
	for i := range m.layers {
		info.RemovedByConstraint[i] = m.byConstraint.count(i)
		info.RemovedByArcConsistency[i] = m.byArc.count(i)
	}
	return info
}

// LogDebugInfo writes the model's shape to its logger at info level, one
// record per layer.
func (m *Model) LogDebugInfo(ctx context.Context) {
	info := m.DebugInfo()
	m.logger.InfoContext(ctx, "Model info",
		slog.Int("order", info.Order),
		slog.Int("sentence_length", info.SentenceLength),
		slog.Int("training_sequences", info.TrainingSequences),
	)
	for i, size := range info.LayerSizes {
		m.logger.InfoContext(ctx, "Layer",
			slog.Int("layer", i),
			slog.Int("transitions", size),
			slog.Int("removed_by_constraint", info.RemovedByConstraint[i]),
			slog.Int("removed_by_arc_consistency", info.RemovedByArcConsistency[i]),
		)
	}
}

// Verify checks the invariants of a trained model: every row sums to 1 within
// tolerance and every edge lies on a complete path.
func (m *Model) Verify() error {
	if err := m.ready(); err != nil {
		return err
	}
	return verifyLayers(m.layers)
}
