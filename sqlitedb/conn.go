package sqlitedb

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/go-mizu/rowmap"
)

var (
	ErrClosed      = errors.New("sqlitedb: connection is closed")
	ErrEmptyQuery  = errors.New("sqlitedb: empty query")
	ErrTrailingSQL = errors.New("sqlitedb: query has more than one statement")
)

// Conn is a single SQLite connection. It is not safe for concurrent use;
// open one Conn per goroutine or serialize access.
//
// ArrayStrategy and DateStrategy are copied to every Statement the
// connection prepares. Changing them affects later Prepare calls only.
type Conn struct {
	ArrayStrategy rowmap.ArrayStrategy
	DateStrategy  rowmap.DateStrategy

	conn   *sqlite.Conn
	cfg    Config
	log    *slog.Logger
	stmts  map[*handle]struct{}
	closed bool
}

var _ rowmap.Preparer = (*Conn)(nil)

// Open opens the database described by cfg. Zero fields take defaults: an
// in-memory database, WAL journaling for files and a five second busy
// timeout.
func Open(cfg Config) (*Conn, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	flags := sqlite.OpenURI
	if cfg.ReadOnly {
		flags |= sqlite.OpenReadOnly
	} else {
		flags |= sqlite.OpenReadWrite | sqlite.OpenCreate
	}
	raw, err := sqlite.OpenConn(cfg.Path, flags)
	if err != nil {
		return nil, engineError("open", err)
	}
	raw.SetBusyTimeout(cfg.BusyTimeout)

	c := &Conn{
		ArrayStrategy: cfg.ArrayStrategy,
		DateStrategy:  cfg.DateStrategy,
		conn:          raw,
		cfg:           cfg,
		log:           cfg.Logger,
		stmts:         make(map[*handle]struct{}),
	}
	if err := c.registerFunctions(); err != nil {
		raw.Close()
		return nil, err
	}
	if !cfg.ReadOnly && !cfg.InMemory() {
		if err := c.SetJournalMode(cfg.JournalMode); err != nil {
			c.Close()
			return nil, fmt.Errorf("sqlitedb: set journal mode: %w", err)
		}
	}

	c.log.Debug("sqlitedb: opened",
		"path", cfg.Path,
		"read_only", cfg.ReadOnly,
		"journal_mode", string(cfg.JournalMode),
		"busy_timeout", cfg.BusyTimeout,
	)
	return c, nil
}

// OpenMemory opens a private in-memory database with default settings.
func OpenMemory() (*Conn, error) {
	return Open(Config{Path: MemoryPath})
}

// registerFunctions installs SQL functions the built-in engine lacks.
// upper() is replaced with a Unicode-aware version; SQLite's own only folds
// ASCII.
func (c *Conn) registerFunctions() error {
	err := c.conn.CreateFunction("upper", &sqlite.FunctionImpl{
		NArgs:         1,
		Deterministic: true,
		AllowIndirect: true,
		Scalar: func(ctx sqlite.Context, args []sqlite.Value) (sqlite.Value, error) {
			if args[0].Type() == sqlite.TypeNull {
				return sqlite.Value{}, nil
			}
			return sqlite.TextValue(strings.ToUpper(args[0].Text())), nil
		},
	})
	if err != nil {
		return engineError("create function upper", err)
	}
	return nil
}

// Path returns the path the connection was opened with.
func (c *Conn) Path() string { return c.cfg.Path }

// Prepare compiles a single SQL statement. The returned Statement must be
// finalized by the caller; Close finalizes any that are still open.
func (c *Conn) Prepare(query string) (*rowmap.Statement, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if blankSQL(query) {
		return nil, ErrEmptyQuery
	}
	stmt, trailing, err := c.conn.PrepareTransient(query)
	if err != nil {
		return nil, engineError("prepare", err)
	}
	consumed, rest := query[:len(query)-trailing], query[len(query)-trailing:]
	if blankSQL(consumed) {
		// Leading semicolons compile to an empty handle.
		stmt.Finalize()
		if consumed == "" {
			return nil, ErrEmptyQuery
		}
		return c.Prepare(rest)
	}
	if !blankSQL(rest) {
		stmt.Finalize()
		return nil, fmt.Errorf("%w: %q", ErrTrailingSQL, strings.TrimSpace(rest))
	}

	h := &handle{Stmt: stmt, conn: c}
	st, err := rowmap.NewStatement(h)
	if err != nil {
		stmt.Finalize()
		return nil, err
	}
	st.ArrayStrategy = c.ArrayStrategy
	st.DateStrategy = c.DateStrategy
	h.st = st
	c.stmts[h] = struct{}{}
	return st, nil
}

// blankSQL reports whether s holds no statement: only whitespace, comments
// and semicolons. The engine compiles such text to an empty handle that
// cannot be stepped.
func blankSQL(s string) bool {
	for {
		s = strings.TrimLeft(s, " \t\r\n\f\v;")
		switch {
		case s == "":
			return true
		case strings.HasPrefix(s, "--"):
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				return true
			}
			s = s[i+1:]
		case strings.HasPrefix(s, "/*"):
			i := strings.Index(s[2:], "*/")
			if i < 0 {
				return true
			}
			s = s[i+4:]
		default:
			return false
		}
	}
}

// Exec runs every statement in script in order, discarding any rows they
// produce. It stops at the first error.
func (c *Conn) Exec(script string) error {
	if c.closed {
		return ErrClosed
	}
	rest := strings.TrimSpace(script)
	for !blankSQL(rest) {
		stmt, trailing, err := c.conn.PrepareTransient(rest)
		if err != nil {
			return engineError("exec", err)
		}
		consumed := len(rest) - trailing
		if blankSQL(rest[:consumed]) {
			stmt.Finalize()
		} else {
			err := drain(stmt)
			if ferr := stmt.Finalize(); err == nil && ferr != nil {
				err = engineError("finalize", ferr)
			}
			if err != nil {
				return err
			}
		}
		if consumed <= 0 {
			break
		}
		rest = strings.TrimSpace(rest[consumed:])
	}
	return nil
}

func drain(stmt *sqlite.Stmt) error {
	for {
		ok, err := stmt.Step()
		if err != nil {
			return engineError("exec", err)
		}
		if !ok {
			return nil
		}
	}
}

// LastInsertRowID returns the rowid of the most recent successful INSERT.
func (c *Conn) LastInsertRowID() int64 { return c.conn.LastInsertRowID() }

// Changes returns the number of rows changed by the most recent INSERT,
// UPDATE or DELETE.
func (c *Conn) Changes() int { return c.conn.Changes() }

// Begin starts a deferred transaction.
func (c *Conn) Begin() error { return c.Exec("BEGIN") }

// Commit commits the current transaction.
func (c *Conn) Commit() error { return c.Exec("COMMIT") }

// Rollback aborts the current transaction.
func (c *Conn) Rollback() error { return c.Exec("ROLLBACK") }

// Transaction runs fn inside a savepoint. The savepoint is released when fn
// returns nil and rolled back when it returns an error or panics. Calls may
// nest.
//
// Example:
//
//	err := conn.Transaction(func(c *sqlitedb.Conn) error {
//	    st, err := c.Prepare(`INSERT INTO foo (b) VALUES (:b)`)
//	    if err != nil {
//	        return err
//	    }
//	    defer st.Finalize()
//	    return rowmap.Exec(st, Foo{B: "x"})
//	})
func (c *Conn) Transaction(fn func(*Conn) error) (err error) {
	if c.closed {
		return ErrClosed
	}
	defer sqlitex.Save(c.conn)(&err)
	return fn(c)
}

// inWAL reports whether a writable connection is currently in WAL mode.
// The mode may have changed since Open.
func (c *Conn) inWAL() bool {
	if c.cfg.ReadOnly {
		return false
	}
	mode, err := c.JournalMode()
	if err != nil {
		c.log.Warn("sqlitedb: read journal mode", "path", c.cfg.Path, "error", err)
		return false
	}
	return mode == JournalWAL
}

// Close finalizes statements that are still open and closes the connection.
// File databases in WAL mode are checkpointed first. Calling Close again is
// a no-op.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	if n := len(c.stmts); n > 0 {
		c.log.Debug("sqlitedb: finalizing open statements", "count", n)
	}
	for h := range c.stmts {
		if err := h.st.Finalize(); err != nil {
			c.log.Warn("sqlitedb: finalize on close", "error", err)
		}
	}
	if c.inWAL() {
		if err := c.Checkpoint(CheckpointTruncate); err != nil {
			c.log.Warn("sqlitedb: checkpoint on close", "path", c.cfg.Path, "error", err)
		} else {
			c.log.Debug("sqlitedb: checkpointed", "path", c.cfg.Path)
		}
	}
	c.closed = true
	if err := c.conn.Close(); err != nil {
		return engineError("close", err)
	}
	c.log.Debug("sqlitedb: closed", "path", c.cfg.Path)
	return nil
}
