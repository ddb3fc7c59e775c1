package rowmap

import (
	"fmt"
	"reflect"
	"strings"
)

// Encode binds the fields of the struct v (or pointer to struct) to the
// statement's named parameters.
//
// Fields bind by `db:"name"` first, otherwise by field name, matching the
// parameter name exactly and then ignoring ASCII case. Fields without a
// matching parameter are skipped. Nested structs are flattened: their fields
// bind by their own names. Nil pointers and nil slices bind NULL.
//
// Fields of unsupported types (uint64, uint, maps, channels, functions,
// complex numbers, arrays of those) fail with a *FieldError wrapping
// ErrUnsupportedType, even when no parameter would receive them.
//
// Example:
//
//	type Foo struct {
//	    B string  `db:"b"`
//	    C float64 `db:"c"`
//	    D *int64  `db:"d"`
//	}
//
//	st, _ := conn.Prepare(`INSERT INTO foo (b, c, d) VALUES (:b, :c, :d)`)
//	defer st.Finalize()
//	if err := rowmap.Encode(Foo{B: "foo", C: 42.1}, st); err != nil {
//	    return err
//	}
//	err := st.Perform()
func Encode(v any, st *Statement) error { return getMapper().Encode(v, st) }

// Encode is the package-level Encode using m's codec cache.
func (m *Mapper) Encode(v any, st *Statement) error {
	st.mustLive()
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return fmt.Errorf("rowmap: encode: nil %s", rv.Type())
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() || !isStruct(rv.Type()) {
		return fmt.Errorf("rowmap: encode %T: %w", v, ErrNoField)
	}
	return m.encodeStruct(st, m.codec(rv.Type()), rv, nil)
}

// encodeStruct binds every field of c. An invalid rv stands for an absent
// (nil pointer) aggregate, whose fields all bind NULL.
func (m *Mapper) encodeStruct(st *Statement, c *structCodec, rv reflect.Value, path []string) error {
	for i := range c.fields {
		f := &c.fields[i]
		fpath := append(path[:len(path):len(path)], f.goName)

		var fv reflect.Value
		if rv.IsValid() {
			fv = derefPtrs(rv.Field(f.index), f.ptrs)
		}
		if f.err != nil {
			return &FieldError{Path: strings.Join(fpath, "."), Type: f.typ, Err: f.err}
		}
		if f.kind == kindStruct {
			if err := m.encodeStruct(st, f.nested, fv, fpath); err != nil {
				return err
			}
			continue
		}

		slot, ok := st.lookupBind(f.name)
		if !ok {
			continue
		}
		var val Value
		if fv.IsValid() {
			var err error
			if val, err = valueOf(fv); err != nil {
				return &FieldError{Path: strings.Join(fpath, "."), Type: f.typ, Err: err}
			}
		}
		if err := st.bindValue(slot, val); err != nil {
			return &FieldError{Path: strings.Join(fpath, "."), Type: f.typ, Err: err}
		}
	}
	return nil
}
