package rowmap

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrNoRows          = errors.New("rowmap: no rows in result set")
	ErrBusy            = errors.New("rowmap: engine busy")
	ErrMisuse          = errors.New("rowmap: engine misuse")
	ErrFinalized       = errors.New("rowmap: statement is finalized")
	ErrStaleRow        = errors.New("rowmap: row used after its statement advanced")
	ErrDuplicateName   = errors.New("rowmap: duplicate bind parameter name")
	ErrUnexpectedRow   = errors.New("rowmap: statement produced a row")
	ErrUnsupportedType = errors.New("rowmap: unsupported type")
	ErrNull            = errors.New("rowmap: value is NULL")
	ErrUnknownColumn   = errors.New("rowmap: unknown column")
	ErrNoField         = errors.New("rowmap: no field context")
	ErrOverflow        = errors.New("rowmap: value overflows destination")
	ErrArrayLength     = errors.New("rowmap: array length mismatch")
)

// Primary engine result codes surfaced through EngineError. Extended codes
// carry the primary code in their low byte.
const (
	CodeError  = 1
	CodeBusy   = 5
	CodeMisuse = 21
)

// EngineError is a failure reported by the engine, such as malformed query
// text or a constraint violation at step time.
type EngineError struct {
	Op   string // prepare, step, reset, finalize, exec, ...
	Code int    // engine result code, possibly extended
	Msg  string
	Err  error
}

func (e *EngineError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("rowmap: engine error %d: %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("rowmap: %s: %s", e.Op, e.Msg)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Primary returns the primary result code.
func (e *EngineError) Primary() int { return e.Code & 0xff }

// Is reports whether the error matches ErrBusy or ErrMisuse.
func (e *EngineError) Is(target error) bool {
	switch target {
	case ErrBusy:
		return e.Primary() == CodeBusy
	case ErrMisuse:
		return e.Primary() == CodeMisuse
	}
	return false
}

// TypeMismatchError reports a column whose storage class cannot satisfy the
// requested Go type.
type TypeMismatchError struct {
	Column string
	Class  StorageClass
	Type   string
	Err    error // optional decoding failure
}

func (e *TypeMismatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rowmap: column %s (%s) cannot be read as %s: %v", e.Column, e.Class, e.Type, e.Err)
	}
	return fmt.Sprintf("rowmap: column %s (%s) cannot be read as %s", e.Column, e.Class, e.Type)
}

func (e *TypeMismatchError) Unwrap() error { return e.Err }

// UnknownNameError reports a name-based lookup against a name the statement
// does not define.
type UnknownNameError struct {
	Name string
}

func (e *UnknownNameError) Error() string {
	return fmt.Sprintf("rowmap: unknown column %q", e.Name)
}

func (e *UnknownNameError) Unwrap() error { return ErrUnknownColumn }

// NullError reports a NULL column read through a non-nullable accessor.
type NullError struct {
	Column string
	Type   string
}

func (e *NullError) Error() string {
	return fmt.Sprintf("rowmap: column %s is NULL, cannot be read as %s", e.Column, e.Type)
}

func (e *NullError) Unwrap() error { return ErrNull }

// FieldError attributes a bridge failure to a struct field. Path is the
// dotted field path from the root aggregate, with array positions in
// brackets.
type FieldError struct {
	Path string
	Type reflect.Type
	Err  error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("rowmap: field %s (%s): %v", e.Path, e.Type, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }
