package nhmm

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
)

// generateOptions is used by the generate functions to hold per-call settings.
type generateOptions struct {
	rng *rand.Rand
}

// GenerateOption configures a single generation call.
type GenerateOption func(*generateOptions)

// WithRand makes the call draw from r instead of the model's shared source.
// r must not be used concurrently by other goroutines.
func WithRand(r *rand.Rand) GenerateOption {
	return func(o *generateOptions) { o.rng = r }
}

func makeGenerateOptions(opts []GenerateOption) *generateOptions {
	o := &generateOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// draw returns a value from [0, 1) using the caller's source, or the model's shared
// source under its lock.
func (m *Model) draw(o *generateOptions) float64 {
	if o.rng != nil {
		return o.rng.Float64()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64()
}

// Generate returns one sequence of exactly SentenceLength symbols, drawn by a
// random walk from Start through every layer.
func (m *Model) Generate(opts ...GenerateOption) ([]string, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	return m.generate(makeGenerateOptions(opts))
}

func (m *Model) generate(o *generateOptions) ([]string, error) {
	out := make([]string, 0, m.sentenceLength)
	cur := Start
	for i, l := range m.layers {
		next, ok := l.sample(cur, m.draw(o))
		if !ok {
			return nil, fmt.Errorf("%w: no transition from %q at layer %d", ErrInconsistent, cur, i)
		}
		out = append(out, next)
		cur = next
	}
	return out, nil
}

// GenerateN returns n independently generated sequences.
func (m *Model) GenerateN(n int, opts ...GenerateOption) ([][]string, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("nhmm: negative sentence count %d", n)
	}
	o := makeGenerateOptions(opts)
	out := make([][]string, 0, n)
	for range n {
		s, err := m.generate(o)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// GenerateStream generates sequences on a background goroutine and sends them
// on the returned channel. It stops after n sequences, or runs until ctx is
// cancelled when n <= 0. The channel is closed when generation ends.
func (m *Model) GenerateStream(ctx context.Context, n int, opts ...GenerateOption) (<-chan []string, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	o := makeGenerateOptions(opts)
	out := make(chan []string)

	go func() {
		defer close(out)
		for i := 0; n <= 0 || i < n; i++ {
			s, err := m.generate(o)
			if err != nil {
				m.logger.ErrorContext(ctx, "Generation stream failed", slog.Int("generated", i), slog.Any("error", err))
				return
			}
			select {
			case <-ctx.Done():
				m.logger.DebugContext(ctx, "Generation stream cancelled by context", slog.Int("generated", i))
				return
			case out <- s:
			}
		}
	}()

	return out, nil
}

// Probability returns the probability that Generate produces sentence: the
// product of the transition probabilities along it, starting from Start. A
// transition the model does not contain makes the probability 0. A sentence
// whose length differs from SentenceLength is an ErrSentenceLength.
func (m *Model) Probability(sentence []string) (float64, error) {
	if err := m.ready(); err != nil {
		return 0, err
	}
	if len(sentence) != m.sentenceLength {
		return 0, fmt.Errorf("%w: got %d symbols, want %d", ErrSentenceLength, len(sentence), m.sentenceLength)
	}
	p := 1.0
	prev := Start
	for i, sym := range sentence {
		w, ok := m.layers[i].Weight(prev, sym)
		if !ok {
			return 0, nil
		}
		p *= w
		prev = sym
	}
	return p, nil
}
