package database

import (
	"database/sql"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// sqliteDriverName is go-sqlite3 with fold_lower registered on every
// connection. SQLite's built-in LOWER only folds ASCII.
const sqliteDriverName = "sqlite3_reportdesk"

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("fold_lower", strings.ToLower, true)
		},
	})
}

// Lower returns the SQL function that lower-cases text the same way
// strings.ToLower does for this dialect.
func (d Dialect) Lower() string {
	if d == DialectPostgres {
		return "LOWER"
	}
	return "fold_lower"
}
