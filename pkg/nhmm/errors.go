package nhmm

import "errors"

var (
	// ErrNotTrained is returned by queries on a model that has not completed Train.
	ErrNotTrained = errors.New("nhmm: model is not trained")

	// ErrNoSequences means the source supplied no training sequences.
	ErrNoSequences = errors.New("nhmm: no training sequences")

	// ErrSequenceLength means the training sequences do not share one length of at
	// least two symbols.
	ErrSequenceLength = errors.New("nhmm: training sequences have mismatched length")

	// ErrReservedSymbol means a training sequence contains Start or End.
	ErrReservedSymbol = errors.New("nhmm: training sequence contains a reserved symbol")

	// ErrConstraintLength means the constraint tags do not cover every position.
	ErrConstraintLength = errors.New("nhmm: constraint length does not match sentence length")

	// ErrUnsatisfiable is returned by Train when constraints and arc consistency
	// leave a layer with no transitions, so no sequence of the target length exists.
	ErrUnsatisfiable = errors.New("nhmm: constraints are unsatisfiable for the sentence length")

	// ErrInconsistent reports a broken training invariant: a zero-sum row reaching
	// normalisation, or a dead end during generation.
	ErrInconsistent = errors.New("nhmm: internal consistency failure")

	// ErrSentenceLength is returned by Probability for a sentence whose length
	// differs from the trained sentence length.
	ErrSentenceLength = errors.New("nhmm: sentence length does not match model")

	// ErrStopWalk can be returned by a WalkSolutions callback to end the walk early
	// without reporting an error.
	ErrStopWalk = errors.New("nhmm: stop walk")
)
