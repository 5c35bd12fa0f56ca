package nhmm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CTAG07/cmarkov/pkg/nhmm"
)

func TestSolutionCount(t *testing.T) {
	testCases := []struct {
		name string
		a    nhmm.Applicator
		src  nhmm.Source
		tags []string
		want int64
	}{
		{name: "two symbol sentences", src: sentences("a x", "b x", "b y"), want: 3},
		{name: "single path", src: sentences("only one path"), want: 1},
		{name: "pinned end", a: nhmm.Pattern{}, src: animals, tags: []string{"*", "*", "ran"}, want: 2},
		{name: "cycle", src: sentences("a b a", "b a b"), want: 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := trained(t, tc.a, tc.src, tc.tags)
			count, err := m.SolutionCount()
			require.NoError(t, err)
			assert.Equal(t, tc.want, count.Int64())
		})
	}
}

func TestSolutionCount_MatchesWalk(t *testing.T) {
	m := trained(t, nil, fish, nil)

	count, err := m.SolutionCount()
	require.NoError(t, err)

	seen := make(map[string]struct{})
	err = m.WalkSolutions(context.Background(), func(seq []string) error {
		key := ""
		for _, s := range seq {
			key += s + " "
		}
		_, dup := seen[key]
		assert.False(t, dup, "duplicate solution %v", seq)
		seen[key] = struct{}{}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, count.Int64(), int64(len(seen)))
}

func TestWalkSolutions_Order(t *testing.T) {
	m := trained(t, nil, sentences("a x", "b x", "b y"), nil)

	var got [][]string
	err := m.WalkSolutions(context.Background(), func(seq []string) error {
		got = append(got, seq)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "x"}, {"b", "x"}, {"b", "y"}}, got)
}

func TestWalkSolutions_Stop(t *testing.T) {
	m := trained(t, nil, sentences("a x", "b x", "b y"), nil)

	calls := 0
	err := m.WalkSolutions(context.Background(), func([]string) error {
		calls++
		if calls == 2 {
			return nhmm.ErrStopWalk
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	boom := errors.New("boom")
	err = m.WalkSolutions(context.Background(), func([]string) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestWalkSolutions_Cancelled(t *testing.T) {
	m := trained(t, nil, fish, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.WalkSolutions(ctx, func([]string) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)

	err = nhmm.New(nil).WalkSolutions(context.Background(), func([]string) error { return nil })
	assert.ErrorIs(t, err, nhmm.ErrNotTrained)
}
