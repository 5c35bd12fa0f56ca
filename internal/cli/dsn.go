package cli

import (
	"fmt"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// cgoPragmas maps the go-sqlite3 DSN parameters used in configs to pragma names.
var cgoPragmas = map[string]string{
	"_journal_mode": "journal_mode",
	"_busy_timeout": "busy_timeout",
	"_synchronous":  "synchronous",
	"_foreign_keys": "foreign_keys",
	"_cache_size":   "cache_size",
}

// nativeDSN rewrites go-sqlite3 style parameters of dsn as _pragma parameters,
// leaving everything else untouched.
func nativeDSN(dsn string) string {
	path, rawQuery, ok := strings.Cut(dsn, "?")
	if !ok {
		return dsn
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return dsn
	}
	out := url.Values{}
	for _, key := range slices.Sorted(maps.Keys(query)) {
		pragma, isPragma := cgoPragmas[key]
		for _, v := range query[key] {
			if isPragma {
				out.Add("_pragma", fmt.Sprintf("%s(%s)", pragma, v))
			} else {
				out.Add(key, v)
			}
		}
	}
	return path + "?" + out.Encode()
}

// ensureDir creates the directory holding the database file of dsn.
func ensureDir(dsn string) error {
	path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if path == "" || path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
