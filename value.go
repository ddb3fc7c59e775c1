package rowmap

import (
	"encoding"
	"fmt"
	"reflect"
	"time"
)

// Value is one of the scalar, timestamp, blob or array values the mapping
// layer can bind. The set of variants is closed; a nil Value is NULL.
//
// Unsigned variants are stored by reinterpreting their bits as a signed
// 64-bit integer, so reading back through the same unsigned type is exact.
type Value interface {
	isValue()
}

type (
	Bool      bool
	Int       int
	Int8      int8
	Int16     int16
	Int32     int32
	Int64     int64
	Uint      uint
	Uint8     uint8
	Uint16    uint16
	Uint32    uint32
	Uint64    uint64
	Float32   float32
	Float64   float64
	Text      string
	Blob      []byte
	Timestamp time.Time
	// Array is serialized into one blob using the statement's ArrayStrategy.
	// Elements may be Bool, integers, floats, Text, nested Arrays or nil.
	Array []Value
)

func (Bool) isValue()      {}
func (Int) isValue()       {}
func (Int8) isValue()      {}
func (Int16) isValue()     {}
func (Int32) isValue()     {}
func (Int64) isValue()     {}
func (Uint) isValue()      {}
func (Uint8) isValue()     {}
func (Uint16) isValue()    {}
func (Uint32) isValue()    {}
func (Uint64) isValue()    {}
func (Float32) isValue()   {}
func (Float64) isValue()   {}
func (Text) isValue()      {}
func (Blob) isValue()      {}
func (Timestamp) isValue() {}
func (Array) isValue()     {}

// ValueOf converts a Go value to a Value. Named types convert by their
// underlying kind, nil pointers and nil slices become NULL, time.Time becomes
// a Timestamp, and types implementing encoding.BinaryMarshaler or
// encoding.TextMarshaler become a Blob or Text. Slices and arrays other than
// byte sequences become an Array.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case Value:
		return x, nil
	case time.Time:
		return Timestamp(x), nil
	case []byte:
		if x == nil {
			return nil, nil
		}
		return Blob(x), nil
	}
	return valueOf(reflect.ValueOf(v))
}

func valueOf(rv reflect.Value) (Value, error) {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, nil
	}
	if rv.CanInterface() {
		if v, ok := rv.Interface().(Value); ok {
			return v, nil
		}
	}

	switch classify(rv.Type()) {
	case kindBool:
		return Bool(rv.Bool()), nil
	case kindInt:
		switch rv.Kind() {
		case reflect.Int8:
			return Int8(rv.Int()), nil
		case reflect.Int16:
			return Int16(rv.Int()), nil
		case reflect.Int32:
			return Int32(rv.Int()), nil
		case reflect.Int:
			return Int(rv.Int()), nil
		}
		return Int64(rv.Int()), nil
	case kindUint:
		switch rv.Kind() {
		case reflect.Uint8:
			return Uint8(rv.Uint()), nil
		case reflect.Uint16:
			return Uint16(rv.Uint()), nil
		}
		return Uint32(rv.Uint()), nil
	case kindWideUint:
		if rv.Kind() == reflect.Uint {
			return Uint(rv.Uint()), nil
		}
		return Uint64(rv.Uint()), nil
	case kindFloat:
		if rv.Kind() == reflect.Float32 {
			return Float32(rv.Float()), nil
		}
		return Float64(rv.Float()), nil
	case kindString:
		return Text(rv.String()), nil
	case kindBytes:
		if rv.IsNil() {
			return nil, nil
		}
		return Blob(rv.Bytes()), nil
	case kindByteArray:
		b := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(b), rv)
		return Blob(b), nil
	case kindTime:
		return Timestamp(rv.Interface().(time.Time)), nil
	case kindBinary:
		b, err := rv.Interface().(encoding.BinaryMarshaler).MarshalBinary()
		if err != nil {
			return nil, err
		}
		return Blob(b), nil
	case kindTextual:
		b, err := rv.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return nil, err
		}
		return Text(b), nil
	case kindArray:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil, nil
		}
		out := make(Array, rv.Len())
		for i := range out {
			ev, err := valueOf(rv.Index(i))
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = ev
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, rv.Type())
}

// bindValue is the single write dispatcher from Value to the engine.
func (s *Statement) bindValue(slot int, v Value) error {
	h := s.h
	switch x := v.(type) {
	case nil:
		h.BindNull(slot)
	case Bool:
		if x {
			h.BindInt64(slot, 1)
		} else {
			h.BindInt64(slot, 0)
		}
	case Int:
		h.BindInt64(slot, int64(x))
	case Int8:
		h.BindInt64(slot, int64(x))
	case Int16:
		h.BindInt64(slot, int64(x))
	case Int32:
		h.BindInt64(slot, int64(x))
	case Int64:
		h.BindInt64(slot, int64(x))
	case Uint:
		h.BindInt64(slot, int64(x))
	case Uint8:
		h.BindInt64(slot, int64(x))
	case Uint16:
		h.BindInt64(slot, int64(x))
	case Uint32:
		h.BindInt64(slot, int64(x))
	case Uint64:
		h.BindInt64(slot, int64(x))
	case Float32:
		h.BindFloat(slot, float64(x))
	case Float64:
		h.BindFloat(slot, float64(x))
	case Text:
		h.BindText(slot, string(x))
	case Blob:
		h.BindBytes(slot, []byte(x))
	case Timestamp:
		return s.bindValue(slot, s.DateStrategy.timeValue(time.Time(x)))
	case Array:
		b, err := s.ArrayStrategy.marshal(x)
		if err != nil {
			return err
		}
		h.BindBytes(slot, b)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
	return nil
}
