package rowmap

import (
	"fmt"
	"math"
	"reflect"
	"time"
)

// Row is the current result row of a Statement. It is only valid until the
// statement is stepped, reset or finalized; using it afterwards panics with
// ErrStaleRow.
type Row struct {
	st  *Statement
	gen uint64
}

// Scalar is the set of Go types readable from a single column.
//
// Unsigned types read back the bit pattern they were written with, so a
// uint64 above math.MaxInt64 round-trips through its negative int64 storage.
type Scalar interface {
	bool | int | int8 | int16 | int32 | int64 |
		uint | uint8 | uint16 | uint32 | uint64 |
		float32 | float64 | string | []byte | time.Time
}

func (r *Row) check() {
	if r.st.finalized {
		panic(ErrFinalized)
	}
	if r.gen != r.st.gen {
		panic(ErrStaleRow)
	}
}

// Statement returns the statement the row belongs to.
func (r *Row) Statement() *Statement { return r.st }

// Columns returns the result column names in order.
func (r *Row) Columns() []string { return r.st.ColumnNames() }

// Index returns the column index for name. It panics with an
// *UnknownNameError if the statement has no such column.
func (r *Row) Index(name string) int {
	i, ok := r.st.columns[name]
	if !ok {
		panic(&UnknownNameError{Name: name})
	}
	return i
}

// Class returns the storage class of the column in this row.
func (r *Row) Class(col int) StorageClass {
	r.check()
	if col < 0 || col >= len(r.st.colNames) {
		panic(fmt.Sprintf("rowmap: column index %d out of range [0,%d)", col, len(r.st.colNames)))
	}
	return r.st.h.ColumnType(col)
}

// IsNull reports whether the column holds NULL.
func (r *Row) IsNull(col int) bool { return r.Class(col) == ClassNull }

// IsNullName reports whether the named column holds NULL.
func (r *Row) IsNullName(name string) bool { return r.IsNull(r.Index(name)) }

// Value reads the column as stored: Int64, Float64, Text, Blob, or nil for
// NULL.
func (r *Row) Value(col int) Value {
	h := r.st.h
	switch r.Class(col) {
	case ClassInteger:
		return Int64(h.ColumnInt64(col))
	case ClassFloat:
		return Float64(h.ColumnFloat(col))
	case ClassText:
		return Text(h.ColumnText(col))
	case ClassBlob:
		return Blob(h.ColumnBlob(col))
	}
	return nil
}

// NamedValue is Value by column name.
func (r *Row) NamedValue(name string) Value { return r.Value(r.Index(name)) }

// ArrayValue decodes an array column with the statement's ArrayStrategy.
// A NULL column yields a nil Array.
func (r *Row) ArrayValue(col int) (Array, error) {
	class := r.Class(col)
	if class == ClassNull {
		return nil, nil
	}
	plain, err := r.readArray(col, class)
	if err != nil {
		return nil, err
	}
	return arrayValue(plain), nil
}

func (r *Row) label(col int) string {
	return fmt.Sprintf("%q (index %d)", r.st.colNames[col], col)
}

// Column reads a non-NULL column as T. It panics with a *NullError when the
// column is NULL and with a *TypeMismatchError when its storage class cannot
// produce a T.
func Column[T Scalar](r *Row, col int) T {
	v, null, err := readScalar[T](r, col)
	if err != nil {
		panic(err)
	}
	if null {
		panic(&NullError{Column: r.label(col), Type: reflect.TypeFor[T]().String()})
	}
	return v
}

// ColumnNullable reads a column as T, returning nil for NULL.
func ColumnNullable[T Scalar](r *Row, col int) *T {
	v, null, err := readScalar[T](r, col)
	if err != nil {
		panic(err)
	}
	if null {
		return nil
	}
	return &v
}

// Named is Column by column name. Unknown names panic with an
// *UnknownNameError.
func Named[T Scalar](r *Row, name string) T { return Column[T](r, r.Index(name)) }

// NamedNullable is ColumnNullable by column name.
func NamedNullable[T Scalar](r *Row, name string) *T { return ColumnNullable[T](r, r.Index(name)) }

// ColumnArray decodes an array column into a slice of E. Elements may be
// scalars, pointers to scalars (for NULL elements), nested slices or any.
// A NULL column yields a nil slice.
func ColumnArray[E any](r *Row, col int) ([]E, error) {
	class := r.Class(col)
	if class == ClassNull {
		return nil, nil
	}
	plain, err := r.readArray(col, class)
	if err != nil {
		return nil, err
	}
	var out []E
	if err := assignElem(reflect.ValueOf(&out).Elem(), plain); err != nil {
		return nil, fmt.Errorf("rowmap: column %s: %w", r.label(col), err)
	}
	return out, nil
}

// NamedArray is ColumnArray by column name.
func NamedArray[E any](r *Row, name string) ([]E, error) { return ColumnArray[E](r, r.Index(name)) }

func readScalar[T Scalar](r *Row, col int) (out T, null bool, err error) {
	class := r.Class(col)
	if class == ClassNull {
		return out, true, nil
	}
	switch p := any(&out).(type) {
	case *bool:
		var n int64
		n, err = r.readInt(col, class, "bool")
		*p = n != 0
	case *int:
		var n int64
		n, err = r.readInt(col, class, "int")
		*p = int(n)
	case *int8:
		var n int64
		n, err = r.readInt(col, class, "int8")
		*p = int8(n)
	case *int16:
		var n int64
		n, err = r.readInt(col, class, "int16")
		*p = int16(n)
	case *int32:
		var n int64
		n, err = r.readInt(col, class, "int32")
		*p = int32(n)
	case *int64:
		*p, err = r.readInt(col, class, "int64")
	case *uint:
		var n int64
		n, err = r.readInt(col, class, "uint")
		*p = uint(n)
	case *uint8:
		var n int64
		n, err = r.readInt(col, class, "uint8")
		*p = uint8(n)
	case *uint16:
		var n int64
		n, err = r.readInt(col, class, "uint16")
		*p = uint16(n)
	case *uint32:
		var n int64
		n, err = r.readInt(col, class, "uint32")
		*p = uint32(n)
	case *uint64:
		var n int64
		n, err = r.readInt(col, class, "uint64")
		*p = uint64(n)
	case *float32:
		var f float64
		f, err = r.readFloat(col, class, "float32")
		*p = float32(f)
	case *float64:
		*p, err = r.readFloat(col, class, "float64")
	case *string:
		*p, err = r.readString(col, class, "string")
	case *[]byte:
		*p, err = r.readBytes(col, class, "[]byte")
	case *time.Time:
		*p, err = r.readTime(col, class)
	}
	return out, false, err
}

func (r *Row) mismatch(col int, class StorageClass, typ string, err error) error {
	return &TypeMismatchError{Column: r.label(col), Class: class, Type: typ, Err: err}
}

// readInt accepts INTEGER, and FLOAT holding an integral value, since REAL
// affinity columns store integers as floats.
func (r *Row) readInt(col int, class StorageClass, typ string) (int64, error) {
	switch class {
	case ClassInteger:
		return r.st.h.ColumnInt64(col), nil
	case ClassFloat:
		f := r.st.h.ColumnFloat(col)
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return int64(f), nil
		}
	}
	return 0, r.mismatch(col, class, typ, nil)
}

func (r *Row) readFloat(col int, class StorageClass, typ string) (float64, error) {
	if class != ClassFloat && class != ClassInteger {
		return 0, r.mismatch(col, class, typ, nil)
	}
	return r.st.h.ColumnFloat(col), nil
}

func (r *Row) readString(col int, class StorageClass, typ string) (string, error) {
	if class != ClassText && class != ClassBlob {
		return "", r.mismatch(col, class, typ, nil)
	}
	return r.st.h.ColumnText(col), nil
}

func (r *Row) readBytes(col int, class StorageClass, typ string) ([]byte, error) {
	if class != ClassBlob && class != ClassText {
		return nil, r.mismatch(col, class, typ, nil)
	}
	return r.st.h.ColumnBlob(col), nil
}

func (r *Row) readTime(col int, class StorageClass) (time.Time, error) {
	t, err := r.st.DateStrategy.readTime(r.st.h, col, class)
	if err == errStorageClass {
		return time.Time{}, r.mismatch(col, class, "time.Time", nil)
	}
	if err != nil {
		return time.Time{}, r.mismatch(col, class, "time.Time", err)
	}
	return t, nil
}

func (r *Row) readArray(col int, class StorageClass) ([]any, error) {
	if class != ClassBlob && class != ClassText {
		return nil, r.mismatch(col, class, "array", nil)
	}
	plain, err := r.st.ArrayStrategy.unmarshal(r.st.h.ColumnBlob(col))
	if err != nil {
		return nil, r.mismatch(col, class, "array", err)
	}
	return plain, nil
}
