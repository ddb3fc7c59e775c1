package sqlitedb

import (
	"zombiezen.com/go/sqlite"

	"github.com/go-mizu/rowmap"
)

// handle adapts a zombiezen statement to rowmap.Handle. The bind and plain
// column accessors come from the embedded *sqlite.Stmt; the methods below
// shadow the ones whose signatures differ or whose errors need wrapping.
type handle struct {
	*sqlite.Stmt
	conn *Conn
	st   *rowmap.Statement
}

var _ rowmap.Handle = (*handle)(nil)

func (h *handle) Step() (bool, error) {
	ok, err := h.Stmt.Step()
	if err != nil {
		return false, engineError("step", err)
	}
	return ok, nil
}

func (h *handle) Reset() error {
	if err := h.Stmt.Reset(); err != nil {
		return engineError("reset", err)
	}
	return nil
}

func (h *handle) ClearBindings() error {
	if err := h.Stmt.ClearBindings(); err != nil {
		return engineError("clear bindings", err)
	}
	return nil
}

func (h *handle) Finalize() error {
	if h.conn != nil {
		delete(h.conn.stmts, h)
	}
	if err := h.Stmt.Finalize(); err != nil {
		return engineError("finalize", err)
	}
	return nil
}

func (h *handle) ColumnType(col int) rowmap.StorageClass {
	return rowmap.StorageClass(h.Stmt.ColumnType(col))
}

func (h *handle) ColumnBlob(col int) []byte {
	n := h.Stmt.ColumnLen(col)
	buf := make([]byte, n)
	h.Stmt.ColumnBytes(col, buf)
	return buf
}

// engineError converts a zombiezen error into a *rowmap.EngineError so that
// callers can match ErrBusy and ErrMisuse without importing the engine.
func engineError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &rowmap.EngineError{
		Op:   op,
		Code: int(sqlite.ErrCode(err)),
		Msg:  err.Error(),
		Err:  err,
	}
}
