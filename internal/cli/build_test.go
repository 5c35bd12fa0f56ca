package cli

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CTAG07/cmarkov/internal/config"
	"github.com/CTAG07/cmarkov/pkg/markov"
	"github.com/CTAG07/cmarkov/pkg/nhmm"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// trainedStore returns a store whose "animals" model holds text.
func trainedStore(t *testing.T, text string) *markov.Store {
	t.Helper()
	db, err := initDB(filepath.Join(t.TempDir(), "cli.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, markov.SetupSchema(db))

	s, err := markov.NewStore(db, markov.NewDefaultTokenizer())
	require.NoError(t, err)
	t.Cleanup(s.Close)

	ctx := context.Background()
	info, err := s.EnsureModel(ctx, "animals", 1)
	require.NoError(t, err)
	require.NoError(t, s.Train(ctx, info, strings.NewReader(text)))
	return s
}

func TestApplicator(t *testing.T) {
	testCases := []struct {
		name string
		mc   config.ModelConfig
		want nhmm.Applicator
	}{
		{name: "none", mc: config.ModelConfig{Constraint: config.ConstraintNone}, want: nhmm.Unconstrained{}},
		{name: "empty", mc: config.ModelConfig{}, want: nhmm.Unconstrained{}},
		{name: "pattern", mc: config.ModelConfig{Constraint: config.ConstraintPattern, FoldCase: true}, want: nhmm.Pattern{FoldCase: true}},
		{name: "letters", mc: config.ModelConfig{Constraint: config.ConstraintLetters}, want: nhmm.LetterCount{}},
		{name: "syllables", mc: config.ModelConfig{Constraint: config.ConstraintSyllables}, want: nhmm.SyllableCount{}},
		{name: "only no repeat", mc: config.ModelConfig{NoRepeat: true}, want: nhmm.NoRepeat{}},
		{
			name: "chained",
			mc:   config.ModelConfig{Constraint: config.ConstraintPattern, NoRepeat: true, MaxRunes: 4},
			want: nhmm.Chain{nhmm.Pattern{}, nhmm.NoRepeat{}, nhmm.MaxRuneLength{N: 4}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, applicator(&tc.mc))
		})
	}
}

func TestBuildModel(t *testing.T) {
	s := trainedStore(t, "the cat sat. a dog ran. the dog sat. big fish.")
	ctx := context.Background()

	t.Run("Most common length", func(t *testing.T) {
		m, err := buildModel(ctx, s, &config.ModelConfig{Name: "animals", Order: 1}, 0, discard)
		require.NoError(t, err)
		assert.Equal(t, 3, m.SentenceLength())
		assert.Len(t, m.TrainingSequences(), 3)
	})

	t.Run("Length from tags", func(t *testing.T) {
		s := trainedStore(t, "the cat sat. a dog ran. one two three four. five six seven eight. red fish blue fish.")
		m, err := buildModel(ctx, s, &config.ModelConfig{
			Name:       "animals",
			Order:      1,
			Constraint: config.ConstraintPattern,
			Tags:       []string{"*", "*", "ran"},
		}, 0, discard)
		require.NoError(t, err)
		assert.Equal(t, 3, m.SentenceLength())
		seq, err := m.Generate()
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "dog", "ran"}, seq)
	})

	t.Run("Fixed length", func(t *testing.T) {
		m, err := buildModel(ctx, s, &config.ModelConfig{Name: "animals", Order: 1, Length: 2}, 0, discard)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"big", "fish"}}, m.TrainingSequences())
	})

	t.Run("Constrained", func(t *testing.T) {
		mc := &config.ModelConfig{
			Name:       "animals",
			Order:      1,
			Constraint: config.ConstraintPattern,
			Tags:       []string{"*", "*", "ran"},
		}
		m, err := buildModel(ctx, s, mc, 9, discard)
		require.NoError(t, err)

		count, err := m.SolutionCount()
		require.NoError(t, err)
		assert.Equal(t, int64(2), count.Int64())

		seq, err := m.Generate()
		require.NoError(t, err)
		assert.Equal(t, []string{"dog", "ran"}, seq[1:])
	})

	t.Run("Unsatisfiable", func(t *testing.T) {
		mc := &config.ModelConfig{
			Name:       "animals",
			Order:      1,
			Constraint: config.ConstraintPattern,
			Tags:       []string{"zebra", "*", "*"},
		}
		_, err := buildModel(ctx, s, mc, 0, discard)
		assert.ErrorIs(t, err, nhmm.ErrUnsatisfiable)
	})

	t.Run("Empty corpus", func(t *testing.T) {
		_, err := buildModel(ctx, s, &config.ModelConfig{Name: "empty", Order: 1}, 0, discard)
		assert.ErrorIs(t, err, nhmm.ErrNoSequences)
	})

	t.Run("Seeded models agree", func(t *testing.T) {
		mc := &config.ModelConfig{Name: "animals", Order: 1}
		a, err := buildModel(ctx, s, mc, 42, discard)
		require.NoError(t, err)
		b, err := buildModel(ctx, s, mc, 42, discard)
		require.NoError(t, err)

		sa, err := a.GenerateN(20)
		require.NoError(t, err)
		sb, err := b.GenerateN(20)
		require.NoError(t, err)
		assert.Equal(t, sa, sb)
	})
}
