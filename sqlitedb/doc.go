// Package sqlitedb opens SQLite databases for use with rowmap.
//
// It wraps zombiezen.com/go/sqlite, a pure Go build of SQLite, so no cgo
// toolchain is needed. A [Conn] prepares [rowmap.Statement] values whose
// parameter and column names are read from the engine, and adds the
// connection-level pieces rowmap leaves out: transactions, numbered
// migrations and the common pragmas.
//
// A Conn is a single connection and is NOT safe for concurrent use. Open
// one per goroutine; SQLite's busy timeout arbitrates between them.
//
// # Defaults
//
//   - Path: ":memory:" when empty.
//   - journal_mode=WAL for writable file databases. In-memory databases
//     keep MEMORY.
//   - busy_timeout: 5 seconds before a locked database reports
//     rowmap.ErrBusy.
//   - upper(): replaced with a Unicode-aware version.
//
// [LoadConfig] reads the same settings from a JSON file and ROWMAP_*
// environment variables.
//
// # Usage
//
//	conn, err := sqlitedb.Open(sqlitedb.Config{Path: "app.db", Logger: logger})
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//
//	if err := conn.Migrate(1, func(c *sqlitedb.Conn) error {
//	    return c.Exec(`CREATE TABLE foo (a INTEGER PRIMARY KEY, b TEXT)`)
//	}); err != nil {
//	    return err
//	}
//
//	st, err := conn.Prepare(`SELECT a, b FROM foo WHERE b = :b`)
//	if err != nil {
//	    return err
//	}
//	defer st.Finalize()
//	if err := st.BindName("b", rowmap.Text("x")); err != nil {
//	    return err
//	}
//	foos, err := rowmap.Query[Foo](st)
package sqlitedb
