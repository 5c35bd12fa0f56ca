//go:build !cgo_sqlite

package cli

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// initDB opens dataSource with the pure Go driver, translating the
// "_journal_mode" and "_busy_timeout" query parameters the cgo driver
// understands into pragmas.
func initDB(dataSource string) (*sql.DB, error) {
	return sql.Open("sqlite", nativeDSN(dataSource))
}
