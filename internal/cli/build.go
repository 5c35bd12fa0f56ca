package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/CTAG07/cmarkov/internal/config"
	"github.com/CTAG07/cmarkov/pkg/markov"
	"github.com/CTAG07/cmarkov/pkg/nhmm"
)

// applicator returns the constraint applicator the model config asks for.
func applicator(mc *config.ModelConfig) nhmm.Applicator {
	var chain nhmm.Chain
	switch mc.Constraint {
	case config.ConstraintPattern:
		chain = append(chain, nhmm.Pattern{FoldCase: mc.FoldCase})
	case config.ConstraintLetters:
		chain = append(chain, nhmm.LetterCount{})
	case config.ConstraintSyllables:
		chain = append(chain, nhmm.SyllableCount{})
	}
	if mc.NoRepeat {
		chain = append(chain, nhmm.NoRepeat{})
	}
	if mc.MaxRunes > 0 {
		chain = append(chain, nhmm.MaxRuneLength{N: mc.MaxRunes})
	}
	switch len(chain) {
	case 0:
		return nhmm.Unconstrained{}
	case 1:
		return chain[0]
	}
	return chain
}

// buildModel loads the configured corpus from store and trains a constrained
// model on it. With no configured length the tag count sets the length, or,
// without tags, the most common sentence length of the corpus.
func buildModel(ctx context.Context, store *markov.Store, mc *config.ModelConfig, seed uint64, logger *slog.Logger) (*nhmm.Model, error) {
	info, err := store.EnsureModel(ctx, mc.Name, mc.Order)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus model %q: %w", mc.Name, err)
	}

	length := mc.Length
	if length == 0 && len(mc.Tags) > 0 {
		length = len(mc.Tags)
	}
	if length == 0 {
		lengths, err := store.Lengths(ctx, info)
		if err != nil {
			return nil, fmt.Errorf("failed to read sentence lengths: %w", err)
		}
		if length = markov.CommonLength(lengths, 2); length == 0 {
			return nil, fmt.Errorf("corpus model %q: %w", mc.Name, nhmm.ErrNoSequences)
		}
		logger.DebugContext(ctx, "Picked sentence length", "model", mc.Name, "length", length, "sentences", lengths[length])
	}

	corpus, err := store.Corpus(ctx, info, length)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	opts := []nhmm.Option{nhmm.WithLogger(logger)}
	if seed != 0 {
		opts = append(opts, nhmm.WithSeed(seed))
	}
	m := nhmm.New(applicator(mc), opts...)
	if err = m.Train(ctx, corpus, mc.Tags); err != nil {
		return nil, fmt.Errorf("failed to train model %q on %d sentences of length %d: %w", mc.Name, corpus.Len(), length, err)
	}
	return m, nil
}
