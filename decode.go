package rowmap

import (
	"encoding"
	"fmt"
	"reflect"
	"strings"
)

// Decode reads the current row into a new T, which must be a struct.
//
// Fields map to columns by `db:"name"` first, otherwise by field name,
// matching exactly and then ignoring ASCII case. Nested structs are
// flattened; a nested struct behind a pointer stays nil when none of its
// columns hold a value.
//
// Pointer, slice and any fields are nullable: NULL or a missing column
// leaves them nil. Any other field fails with a *FieldError wrapping ErrNull
// or ErrUnknownColumn. Storage class mismatches, overflow and malformed
// array or timestamp data are reported the same way.
//
// Example:
//
//	for row, err := range st.Rows() {
//	    if err != nil {
//	        return err
//	    }
//	    foo, err := rowmap.Decode[Foo](row)
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(foo.B, foo.C)
//	}
func Decode[T any](r *Row) (T, error) {
	var out T
	err := getMapper().decodeValue(r, reflect.ValueOf(&out).Elem())
	return out, err
}

// DecodeInto reads the current row into the struct pointed to by dst.
func DecodeInto(r *Row, dst any) error { return getMapper().Decode(r, dst) }

// Decode reads the current row into the struct pointed to by dst using m's
// codec cache.
func (m *Mapper) Decode(r *Row, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("rowmap: decode: destination must be a non-nil pointer, got %T", dst)
	}
	return m.decodeValue(r, rv.Elem())
}

func (m *Mapper) decodeValue(r *Row, rv reflect.Value) error {
	r.check()
	n := 0
	for t := rv.Type(); t.Kind() == reflect.Pointer; t = t.Elem() {
		n++
	}
	if !isStruct(rv.Type()) {
		return fmt.Errorf("rowmap: decode %s: %w", rv.Type(), ErrNoField)
	}
	rv = allocPtrs(rv, n)
	return m.decodeStruct(r, m.codec(rv.Type()), rv, nil)
}

func (m *Mapper) decodeStruct(r *Row, c *structCodec, rv reflect.Value, path []string) error {
	for i := range c.fields {
		f := &c.fields[i]
		fpath := append(path[:len(path):len(path)], f.goName)
		fv := rv.Field(f.index)

		if f.err != nil {
			return &FieldError{Path: strings.Join(fpath, "."), Type: f.typ, Err: f.err}
		}
		if f.kind == kindStruct {
			if f.ptrs > 0 && !m.anyPresent(r, f.nested) {
				fv.Set(reflect.Zero(fv.Type()))
				continue
			}
			if err := m.decodeStruct(r, f.nested, allocPtrs(fv, f.ptrs), fpath); err != nil {
				return err
			}
			continue
		}

		fieldErr := func(err error) error {
			return &FieldError{Path: strings.Join(fpath, "."), Type: f.typ, Err: err}
		}
		col, ok := r.st.lookupColumn(f.name)
		if !ok {
			if f.nullable() {
				fv.Set(reflect.Zero(fv.Type()))
				continue
			}
			return fieldErr(&UnknownNameError{Name: f.name})
		}
		class := r.Class(col)
		if class == ClassNull {
			if f.nullable() {
				fv.Set(reflect.Zero(fv.Type()))
				continue
			}
			return fieldErr(&NullError{Column: r.label(col), Type: f.typ.String()})
		}
		if err := readField(r, col, class, f.kind, allocPtrs(fv, f.ptrs)); err != nil {
			return fieldErr(err)
		}
	}
	return nil
}

// anyPresent reports whether any column mapped by c holds a value.
func (m *Mapper) anyPresent(r *Row, c *structCodec) bool {
	for i := range c.fields {
		f := &c.fields[i]
		if f.kind == kindStruct && f.nested != nil {
			if m.anyPresent(r, f.nested) {
				return true
			}
			continue
		}
		if col, ok := r.st.lookupColumn(f.name); ok && !r.IsNull(col) {
			return true
		}
	}
	return false
}

// readField stores a non-NULL column into v according to kind.
func readField(r *Row, col int, class StorageClass, kind fieldKind, v reflect.Value) error {
	typ := v.Type().String()
	switch kind {
	case kindBool:
		n, err := r.readInt(col, class, typ)
		if err != nil {
			return err
		}
		v.SetBool(n != 0)
	case kindInt:
		n, err := r.readInt(col, class, typ)
		if err != nil {
			return err
		}
		if v.OverflowInt(n) {
			return fmt.Errorf("%w: %d in %s", ErrOverflow, n, typ)
		}
		v.SetInt(n)
	case kindUint:
		n, err := r.readInt(col, class, typ)
		if err != nil {
			return err
		}
		if n < 0 || v.OverflowUint(uint64(n)) {
			return fmt.Errorf("%w: %d in %s", ErrOverflow, n, typ)
		}
		v.SetUint(uint64(n))
	case kindFloat:
		f, err := r.readFloat(col, class, typ)
		if err != nil {
			return err
		}
		if v.Kind() == reflect.Float32 && v.OverflowFloat(f) {
			return fmt.Errorf("%w: %g in %s", ErrOverflow, f, typ)
		}
		v.SetFloat(f)
	case kindString:
		s, err := r.readString(col, class, typ)
		if err != nil {
			return err
		}
		v.SetString(s)
	case kindBytes:
		b, err := r.readBytes(col, class, typ)
		if err != nil {
			return err
		}
		v.SetBytes(b)
	case kindByteArray:
		b, err := r.readBytes(col, class, typ)
		if err != nil {
			return err
		}
		if len(b) != v.Len() {
			return fmt.Errorf("%w: %d bytes for %s", ErrArrayLength, len(b), typ)
		}
		reflect.Copy(v, reflect.ValueOf(b))
	case kindTime:
		t, err := r.readTime(col, class)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(t))
	case kindBinary:
		b, err := r.readBytes(col, class, typ)
		if err != nil {
			return err
		}
		return v.Addr().Interface().(encoding.BinaryUnmarshaler).UnmarshalBinary(b)
	case kindTextual:
		s, err := r.readString(col, class, typ)
		if err != nil {
			return err
		}
		return v.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s))
	case kindArray:
		plain, err := r.readArray(col, class)
		if err != nil {
			return err
		}
		return assignElem(v, plain)
	case kindInterface:
		if v.Type() == valueType {
			v.Set(reflect.ValueOf(r.Value(col)))
			return nil
		}
		v.Set(reflect.ValueOf(plainValue(r.Value(col))))
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, typ)
	}
	return nil
}

// plainValue unwraps a stored Value into its natural Go type.
func plainValue(v Value) any {
	switch x := v.(type) {
	case Int64:
		return int64(x)
	case Float64:
		return float64(x)
	case Text:
		return string(x)
	case Blob:
		return []byte(x)
	}
	return nil
}

// decodeWithMapper maps the current row into T. Structs decode by field;
// any other T reads the row's single column.
func decodeWithMapper[T any](m *Mapper, r *Row) (T, error) {
	var out T
	rv := reflect.ValueOf(&out).Elem()
	rt := rv.Type()
	if isStruct(rt) {
		return out, m.decodeValue(r, rv)
	}
	if n := r.st.ColumnCount(); n != 1 {
		return out, fmt.Errorf("rowmap: cannot map %d columns into %s; use a struct", n, rt)
	}
	ptrs := 0
	for t := rt; t.Kind() == reflect.Pointer; t = t.Elem() {
		ptrs++
	}
	base := derefPtr(rt)
	kind := classify(base)
	switch kind {
	case kindUnsupported, kindWideUint, kindStruct:
		return out, fmt.Errorf("%w: %s", ErrUnsupportedType, rt)
	}
	class := r.Class(0)
	if class == ClassNull {
		if ptrs > 0 || kind == kindBytes || kind == kindInterface || (kind == kindArray && base.Kind() == reflect.Slice) {
			return out, nil
		}
		return out, &NullError{Column: r.label(0), Type: rt.String()}
	}
	if err := readField(r, 0, class, kind, allocPtrs(rv, ptrs)); err != nil {
		return out, err
	}
	return out, nil
}
