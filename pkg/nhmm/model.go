package nhmm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
)

// Source is the unconstrained model a Model is trained from. Every sequence
// returned by Sequences must have the same length, which becomes the length of
// every generated sequence.
type Source interface {
	// Order returns the Markov order the source aggregated its statistics with.
	Order() int
	// Sequences returns the training sequences.
	Sequences() [][]string
}

// Model is a constrained, position-indexed Markov model. Train must complete
// before any other method is called, and must not run concurrently with them.
type Model struct {
	applicator Applicator
	logger     *slog.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand

	trained        bool
	order          int
	sentenceLength int
	sequences      [][]string
	frequencies    *Layer
	prior          map[string]float64
	layers         []*Layer
	byConstraint   *removalLog
	byArc          *removalLog
}

// Option configures a Model at construction.
type Option func(*Model)

// WithLogger sets the logger for training and debug output. By default all logs
// are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithSeed seeds the model's shared random source, making generation without
// WithRand reproducible.
func WithSeed(seed uint64) Option {
	return func(m *Model) { m.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// New returns an untrained model that applies constraints with a. A nil
// applicator leaves the model unconstrained.
func New(a Applicator, opts ...Option) *Model {
	if a == nil {
		a = Unconstrained{}
	}
	m := &Model{
		applicator: a,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetLogger replaces the model's logger.
func (m *Model) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// Train builds the constrained structure from src's sequences and tags, one
// constraint tag per sequence position (tags may be empty for no tags). The
// steps run in a fixed order: transition counting, replication into one layer
// per step, constraint application, arc consistency, START layer injection and
// normalisation.
//
// Train returns ErrUnsatisfiable when no sequence of the required length
// survives the constraints. On any error the model keeps its previous state.
func (m *Model) Train(ctx context.Context, src Source, tags []string) error {
	seqs := src.Sequences()
	length, err := validateSequences(seqs)
	if err != nil {
		return err
	}
	if len(tags) != 0 && len(tags) != length {
		return fmt.Errorf("%w: got %d tags for sentences of length %d", ErrConstraintLength, len(tags), length)
	}

	sequences := make([][]string, len(seqs))
	for i, s := range seqs {
		sequences[i] = append([]string(nil), s...)
	}

	freq, prior := aggregate(sequences)

	layers := make([]*Layer, length-1)
	for k := range layers {
		layers[k] = freq.clone()
	}

	byConstraint := newRemovalLog(length)
	byArc := newRemovalLog(length)

	if err = m.applicator.Apply(&LayerSet{layers: layers, log: byConstraint}, tags); err != nil {
		return fmt.Errorf("nhmm: applying constraints: %w", err)
	}

	removed, err := enforceArcConsistency(ctx, layers, byArc)
	if err != nil {
		return fmt.Errorf("nhmm: enforcing arc consistency: %w", err)
	}
	if k := firstEmpty(layers); k >= 0 {
		m.logger.DebugContext(ctx, "Layer emptied by constraints",
			slog.Int("layer", k+1),
			slog.Int("sentence_length", length),
		)
		return fmt.Errorf("%w: layer %d has no transitions left", ErrUnsatisfiable, k+1)
	}

	layers = append([]*Layer{startLayer(layers[0], prior)}, layers...)
	for i, l := range layers {
		if err = normalize(l); err != nil {
			return fmt.Errorf("normalizing layer %d: %w", i, err)
		}
	}
	if err = verifyLayers(layers); err != nil {
		return err
	}

	m.order = src.Order()
	m.sentenceLength = length
	m.sequences = sequences
	m.frequencies = freq
	m.prior = prior
	m.layers = layers
	m.byConstraint = byConstraint
	m.byArc = byArc
	m.trained = true

	m.logger.InfoContext(ctx, "Training completed",
		slog.Int("order", m.order),
		slog.Int("sentence_length", length),
		slog.Int("sequences", len(sequences)),
		slog.Int("arc_removals", removed),
	)
	return nil
}

func validateSequences(seqs [][]string) (int, error) {
	if len(seqs) == 0 {
		return 0, ErrNoSequences
	}
	length := len(seqs[0])
	if length < 2 {
		return 0, fmt.Errorf("%w: sequences need at least 2 symbols, got %d", ErrSequenceLength, length)
	}
	for i, s := range seqs {
		if len(s) != length {
			return 0, fmt.Errorf("%w: sequence %d has %d symbols, want %d", ErrSequenceLength, i, len(s), length)
		}
		for _, sym := range s {
			if sym == Start || sym == End {
				return 0, fmt.Errorf("%w: sequence %d contains %q", ErrReservedSymbol, i, sym)
			}
		}
	}
	return length, nil
}

// aggregate counts every consecutive pair of every sequence and the number of
// occurrences of every symbol.
func aggregate(seqs [][]string) (*Layer, map[string]float64) {
	freq := newLayer()
	prior := make(map[string]float64)
	for _, s := range seqs {
		for i, sym := range s {
			prior[sym]++
			if i+1 < len(s) {
				freq.add(sym, s[i+1], 1)
			}
		}
	}
	return freq, prior
}

func (m *Model) ready() error {
	if !m.trained {
		return ErrNotTrained
	}
	return nil
}
