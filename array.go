package rowmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"howett.net/plist"
)

// Property lists have no null object, so a NULL array element is written as
// an empty dictionary. Dictionaries never appear otherwise.
var plistNull = map[string]any{}

func (s ArrayStrategy) marshal(a Array) ([]byte, error) {
	plain, err := s.plainArray(a)
	if err != nil {
		return nil, err
	}
	switch s {
	case ArrayJSON:
		b, err := json.Marshal(plain)
		if err != nil {
			return nil, fmt.Errorf("rowmap: json array: %w", err)
		}
		return b, nil
	default:
		b, err := plist.Marshal(plain, plist.BinaryFormat)
		if err != nil {
			return nil, fmt.Errorf("rowmap: plist array: %w", err)
		}
		return b, nil
	}
}

func (s ArrayStrategy) plainArray(a Array) ([]any, error) {
	out := make([]any, len(a))
	for i, v := range a {
		switch x := v.(type) {
		case nil:
			if s == ArrayJSON {
				out[i] = nil
			} else {
				out[i] = plistNull
			}
		case Bool:
			out[i] = bool(x)
		case Int:
			out[i] = int64(x)
		case Int8:
			out[i] = int64(x)
		case Int16:
			out[i] = int64(x)
		case Int32:
			out[i] = int64(x)
		case Int64:
			out[i] = int64(x)
		case Uint:
			out[i] = uint64(x)
		case Uint8:
			out[i] = int64(x)
		case Uint16:
			out[i] = int64(x)
		case Uint32:
			out[i] = int64(x)
		case Uint64:
			out[i] = uint64(x)
		case Float32:
			out[i] = float32(x)
		case Float64:
			out[i] = float64(x)
		case Text:
			out[i] = string(x)
		case Array:
			nested, err := s.plainArray(x)
			if err != nil {
				return nil, fmt.Errorf("[%d]%w", i, err)
			}
			out[i] = nested
		default:
			return nil, fmt.Errorf("[%d]: %w: array element %T", i, ErrUnsupportedType, v)
		}
	}
	return out, nil
}

// unmarshal decodes a serialized array into plain Go values: nil, bool,
// int64, uint64 (above MaxInt64 only), float64, string and []any.
func (s ArrayStrategy) unmarshal(b []byte) ([]any, error) {
	var raw []any
	switch s {
	case ArrayJSON:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("rowmap: json array: %w", err)
		}
	default:
		if _, err := plist.Unmarshal(b, &raw); err != nil {
			return nil, fmt.Errorf("rowmap: plist array: %w", err)
		}
	}
	out, err := normalizeArray(raw)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeArray(raw []any) ([]any, error) {
	out := make([]any, len(raw))
	for i, v := range raw {
		n, err := normalizeElem(v)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

func normalizeElem(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, int64:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		return normalizeUint(uint64(x)), nil
	case uint64:
		return normalizeUint(x), nil
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		if u, err := strconv.ParseUint(string(x), 10, 64); err == nil {
			return normalizeUint(u), nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("rowmap: json array: %w", err)
		}
		return f, nil
	case []any:
		return normalizeArray(x)
	case map[string]any:
		if len(x) == 0 {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("%w: array element %T", ErrUnsupportedType, v)
}

func normalizeUint(u uint64) any {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return u
}

// arrayValue turns normalized plain values back into Values.
func arrayValue(plain []any) Array {
	out := make(Array, len(plain))
	for i, v := range plain {
		out[i] = elemValue(v)
	}
	return out
}

// elemValue converts one normalized element. NULL stays nil.
func elemValue(v any) Value {
	switch x := v.(type) {
	case bool:
		return Bool(x)
	case int64:
		return Int64(x)
	case uint64:
		return Uint64(x)
	case float64:
		return Float64(x)
	case string:
		return Text(x)
	case []any:
		return arrayValue(x)
	}
	return nil
}

// assignElem stores a normalized plain value into dst, converting numbers
// to the destination width. Slices are allocated, fixed-size arrays must
// match in length, and nil is only accepted by pointers, slices and
// interfaces.
func assignElem(dst reflect.Value, src any) error {
	if src == nil {
		switch dst.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Interface:
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		return fmt.Errorf("%w: cannot store null in %s", ErrNull, dst.Type())
	}

	switch dst.Kind() {
	case reflect.Pointer:
		p := reflect.New(dst.Type().Elem())
		if err := assignElem(p.Elem(), src); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	case reflect.Interface:
		if dst.Type() == valueType {
			v := elemValue(src)
			if v == nil {
				return elemMismatch(src, dst)
			}
			dst.Set(reflect.ValueOf(v))
			return nil
		}
		sv := reflect.ValueOf(src)
		if !sv.Type().AssignableTo(dst.Type()) {
			return elemMismatch(src, dst)
		}
		dst.Set(sv)
		return nil
	case reflect.Bool:
		b, ok := src.(bool)
		if !ok {
			return elemMismatch(src, dst)
		}
		dst.SetBool(b)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := elemInt(src)
		if !ok {
			return elemMismatch(src, dst)
		}
		if dst.OverflowInt(n) {
			return fmt.Errorf("%w: %d in %s", ErrOverflow, n, dst.Type())
		}
		dst.SetInt(n)
		return nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		n, ok := elemInt(src)
		if !ok {
			return elemMismatch(src, dst)
		}
		if n < 0 || dst.OverflowUint(uint64(n)) {
			return fmt.Errorf("%w: %d in %s", ErrOverflow, n, dst.Type())
		}
		dst.SetUint(uint64(n))
		return nil
	case reflect.Float32, reflect.Float64:
		var f float64
		switch x := src.(type) {
		case float64:
			f = x
		case int64:
			f = float64(x)
		case uint64:
			f = float64(x)
		default:
			return elemMismatch(src, dst)
		}
		// Shortest float32 text parses slightly past MaxFloat32, so only
		// values that round to infinity overflow.
		if dst.Kind() == reflect.Float32 && math.IsInf(float64(float32(f)), 0) && !math.IsInf(f, 0) {
			return fmt.Errorf("%w: %g in %s", ErrOverflow, f, dst.Type())
		}
		dst.SetFloat(f)
		return nil
	case reflect.String:
		s, ok := src.(string)
		if !ok {
			return elemMismatch(src, dst)
		}
		dst.SetString(s)
		return nil
	case reflect.Slice, reflect.Array:
		items, ok := src.([]any)
		if !ok {
			return elemMismatch(src, dst)
		}
		if dst.Kind() == reflect.Slice {
			dst.Set(reflect.MakeSlice(dst.Type(), len(items), len(items)))
		} else if dst.Len() != len(items) {
			return fmt.Errorf("%w: %d elements for %s", ErrArrayLength, len(items), dst.Type())
		}
		for i, item := range items {
			if err := assignElem(dst.Index(i), item); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		return nil
	}
	return fmt.Errorf("%w: array element %s", ErrUnsupportedType, dst.Type())
}

func elemInt(src any) (int64, bool) {
	switch x := src.(type) {
	case int64:
		return x, true
	case float64:
		if x == math.Trunc(x) && x >= math.MinInt64 && x < math.MaxInt64 {
			return int64(x), true
		}
	}
	return 0, false
}

func elemMismatch(src any, dst reflect.Value) error {
	return fmt.Errorf("rowmap: array element %T cannot be stored in %s", src, dst.Type())
}
