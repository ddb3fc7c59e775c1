package rowmap

import (
	"encoding"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// Mapper owns the per-type codec cache. Use the package-level lazy getter
// (getMapper) or create your own in tests.
type Mapper struct {
	codecCache sync.Map // key: reflect.Type -> *structCodec
}

func NewMapper() *Mapper { return &Mapper{} }

// --- package-level lazy global mapper (used by Encode/Decode/Query/Get/Exec) ---

var (
	mapper     *Mapper
	mapperOnce sync.Once
)

func getMapper() *Mapper {
	mapperOnce.Do(func() { mapper = NewMapper() })
	return mapper
}

// ---------------- Field classification ----------------

type fieldKind uint8

const (
	kindUnsupported fieldKind = iota
	kindBool
	kindInt       // int, int8..int64
	kindUint      // uint8..uint32
	kindWideUint  // uint, uint64, uintptr: rejected by the struct bridges
	kindFloat     // float32, float64
	kindString    // string
	kindBytes     // []byte
	kindByteArray // [N]byte
	kindTime      // time.Time, stored per DateStrategy
	kindBinary    // encoding.BinaryMarshaler + BinaryUnmarshaler, stored as blob
	kindTextual   // encoding.TextMarshaler + TextUnmarshaler, stored as text
	kindArray     // other slices and arrays, stored per ArrayStrategy
	kindStruct    // nested aggregate
	kindInterface // any, as an array element
)

var (
	timeType              = reflect.TypeFor[time.Time]()
	binaryMarshalerType   = reflect.TypeFor[encoding.BinaryMarshaler]()
	binaryUnmarshalerType = reflect.TypeFor[encoding.BinaryUnmarshaler]()
	textMarshalerType     = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType   = reflect.TypeFor[encoding.TextUnmarshaler]()
	valueType             = reflect.TypeFor[Value]()
)

// classify picks the storage kind for t, which must not be a pointer. The
// underlying kind wins over marshaler interfaces so that named scalars keep
// their natural storage class.
func classify(t reflect.Type) fieldKind {
	if t == timeType {
		return kindTime
	}
	switch t.Kind() {
	case reflect.Bool:
		return kindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return kindInt
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return kindUint
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return kindWideUint
	case reflect.Float32, reflect.Float64:
		return kindFloat
	case reflect.String:
		return kindString
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return kindBytes
		}
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return kindByteArray
		}
	}
	if t.Implements(binaryMarshalerType) && reflect.PointerTo(t).Implements(binaryUnmarshalerType) {
		return kindBinary
	}
	if t.Implements(textMarshalerType) && reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return kindTextual
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return kindArray
	case reflect.Struct:
		return kindStruct
	case reflect.Interface:
		return kindInterface
	}
	return kindUnsupported
}

// arrayElemSupported reports whether values of t can live inside an array
// blob: booleans, signed integers, unsigned integers up to 32 bits, floats,
// strings, any, nested slices/arrays of those, and pointers to them.
func arrayElemSupported(t reflect.Type) bool {
	t = derefPtr(t)
	switch classify(t) {
	case kindBool, kindInt, kindUint, kindFloat, kindString, kindInterface:
		return true
	case kindArray:
		return arrayElemSupported(t.Elem())
	}
	return false
}

// ---------------- Codec plans ----------------

type fieldCodec struct {
	name   string       // column / parameter name
	goName string       // Go field name, used in field paths
	index  int          // field index within the parent struct
	typ    reflect.Type // field type with pointer layers removed
	ptrs   int          // pointer layers on the field
	kind   fieldKind
	nested *structCodec // kindStruct only
	err    error        // set when the field cannot be mapped
}

// nullable reports whether NULL or a missing column has a natural Go
// representation for the field.
func (f *fieldCodec) nullable() bool {
	if f.ptrs > 0 {
		return true
	}
	switch f.kind {
	case kindBytes, kindInterface:
		return true
	case kindArray:
		return f.typ.Kind() == reflect.Slice
	}
	return false
}

type structCodec struct {
	typ    reflect.Type
	fields []fieldCodec
}

func (m *Mapper) codec(rt reflect.Type) *structCodec {
	if v, ok := m.codecCache.Load(rt); ok {
		return v.(*structCodec)
	}
	c := buildCodec(rt, map[reflect.Type]bool{})
	v, _ := m.codecCache.LoadOrStore(rt, c)
	return v.(*structCodec)
}

func buildCodec(rt reflect.Type, building map[reflect.Type]bool) *structCodec {
	building[rt] = true
	defer delete(building, rt)

	c := &structCodec{typ: rt}
	n := rt.NumField()
	for i := 0; i < n; i++ {
		sf := rt.Field(i)
		if sf.PkgPath != "" && !sf.Anonymous { // unexported, non-anonymous
			continue
		}
		name, _, omit := parseTag(sf.Tag.Get("db"))
		if omit {
			continue
		}
		if name == "" {
			name = sf.Name
		}

		f := fieldCodec{name: name, goName: sf.Name, index: i}
		t := sf.Type
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
			f.ptrs++
		}
		f.typ = t
		f.kind = classify(t)

		switch f.kind {
		case kindStruct:
			if building[t] {
				f.err = fmt.Errorf("%w: recursive type %s", ErrUnsupportedType, t)
				break
			}
			if sf.PkgPath != "" && f.ptrs > 0 {
				// Cannot allocate through an unexported embedded pointer.
				continue
			}
			f.nested = buildCodec(t, building)
		case kindArray:
			if !arrayElemSupported(t.Elem()) {
				f.err = fmt.Errorf("%w: array of %s", ErrUnsupportedType, t.Elem())
			}
		case kindWideUint:
			f.err = fmt.Errorf("%w: %s cannot be stored losslessly as a signed 64-bit integer", ErrUnsupportedType, t)
		case kindUnsupported:
			f.err = ErrUnsupportedType
		}
		if sf.PkgPath != "" && f.kind != kindStruct {
			continue // embedded unexported non-struct
		}
		c.fields = append(c.fields, f)
	}
	return c
}

// parseTag supports: "-", "col", ",inline", "col,inline", "inline,col".
// Nested structs are always flattened, so inline is accepted for
// compatibility and has no further effect.
func parseTag(tag string) (name string, inline bool, omit bool) {
	if tag == "-" {
		return "", false, true
	}
	if tag == "" {
		return "", false, false
	}
	start := 0
	for i := 0; i <= len(tag); i++ {
		if i == len(tag) || tag[i] == ',' {
			part := tag[start:i]
			if part == "inline" {
				inline = true
			} else if part != "" && name == "" {
				name = part
			}
			start = i + 1
		}
	}
	return name, inline, false
}

// ---------------- Type helpers ----------------

func isStruct(t reflect.Type) bool { return derefPtr(t).Kind() == reflect.Struct && derefPtr(t) != timeType }

func derefPtr(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// allocPtrs walks n pointer layers from v, allocating nil pointers, and
// returns the settable value underneath.
func allocPtrs(v reflect.Value, n int) reflect.Value {
	for i := 0; i < n; i++ {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}
	return v
}

// derefPtrs walks n pointer layers from v, returning the zero Value if any
// layer is nil.
func derefPtrs(v reflect.Value, n int) reflect.Value {
	for i := 0; i < n && v.IsValid(); i++ {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// ---------------- Name normalization (ASCII fast-path) ----------------

func toLowerAscii(s string) string {
	var need bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			need = true
			break
		}
	}
	if !need {
		return s
	}
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c = c + ('a' - 'A')
		}
		b[i] = c
	}
	return string(b)
}
