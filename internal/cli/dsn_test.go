package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNativeDSN(t *testing.T) {
	testCases := []struct {
		name string
		dsn  string
		want string
	}{
		{name: "no query", dsn: "./data/cmarkov.db", want: "./data/cmarkov.db"},
		{
			name: "pragmas",
			dsn:  "./data/cmarkov.db?_journal_mode=WAL&_busy_timeout=5000",
			want: "./data/cmarkov.db?_pragma=busy_timeout%285000%29&_pragma=journal_mode%28WAL%29",
		},
		{name: "other params kept", dsn: "x.db?mode=ro", want: "x.db?mode=ro"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, nativeDSN(tc.dsn))
		})
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	require.NoError(t, ensureDir(filepath.Join(dir, "cmarkov.db")+"?_journal_mode=WAL"))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.NoError(t, ensureDir(":memory:"))
}
