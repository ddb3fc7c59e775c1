package rowmap

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

/* ---------------------------
   Tests: strategy parsing
----------------------------*/

func TestParseStrategies(t *testing.T) {
	for in, want := range map[string]ArrayStrategy{"plist": ArrayPlist, "BPLIST": ArrayPlist, " json ": ArrayJSON} {
		got, err := ParseArrayStrategy(in)
		if err != nil || got != want {
			t.Fatalf("ParseArrayStrategy(%q) = %v,%v want %v", in, got, err, want)
		}
	}
	if _, err := ParseArrayStrategy("xml"); err == nil {
		t.Fatal("expected error for xml")
	}

	for in, want := range map[string]DateStrategy{"integer": DateInteger, "unix": DateInteger, "Julian": DateReal, "iso8601": DateText} {
		got, err := ParseDateStrategy(in)
		if err != nil || got != want {
			t.Fatalf("ParseDateStrategy(%q) = %v,%v want %v", in, got, err, want)
		}
	}

	var d DateStrategy
	if err := d.UnmarshalText([]byte("text")); err != nil || d != DateText {
		t.Fatalf("UnmarshalText got %v,%v", d, err)
	}
	if b, _ := DateReal.MarshalText(); string(b) != "real" {
		t.Fatalf("MarshalText got %q", b)
	}
	if ArrayStrategy(7).String() != "ArrayStrategy(7)" {
		t.Fatalf("unknown strategy String got %q", ArrayStrategy(7).String())
	}
}

/* ---------------------------
   Tests: dates
----------------------------*/

func TestJulianDay(t *testing.T) {
	epoch := time.Unix(0, 0).UTC()
	if jd := JulianDay(epoch); jd != 2440587.5 {
		t.Fatalf("JulianDay(epoch) got %v", jd)
	}
	// J2000.0 is noon on 1 January 2000.
	j2000 := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	if jd := JulianDay(j2000); jd != 2451545.0 {
		t.Fatalf("JulianDay(J2000) got %v", jd)
	}
	want := time.Date(1969, 7, 20, 20, 17, 40, 0, time.UTC)
	got := FromJulianDay(JulianDay(want))
	if d := got.Sub(want); d > time.Millisecond || d < -time.Millisecond {
		t.Fatalf("round trip got %v want %v", got, want)
	}
}

func TestParseTime_Layouts(t *testing.T) {
	want := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
	for _, s := range []string{
		"2023-11-14T22:13:20Z",
		"2023-11-14T23:13:20+01:00",
		"2023-11-14 22:13:20",
		"2023-11-14T22:13:20.000",
	} {
		got, err := parseTime(s)
		if err != nil {
			t.Fatalf("parseTime(%q): %v", s, err)
		}
		if !got.Equal(want) {
			t.Fatalf("parseTime(%q) got %v want %v", s, got, want)
		}
	}
	if _, err := parseTime("yesterday"); err == nil {
		t.Fatal("expected error")
	}
}

/* ---------------------------
   Tests: arrays
----------------------------*/

func TestArray_OneDimensionalBothStrategies(t *testing.T) {
	for _, s := range []ArrayStrategy{ArrayPlist, ArrayJSON} {
		st, _ := newEchoStatement(t, "a")
		st.ArrayStrategy = s
		in := []int64{1, -2, math.MaxInt64, math.MinInt64}
		v, _ := ValueOf(in)
		if err := st.Bind(1, v); err != nil {
			t.Fatalf("%s: bind: %v", s, err)
		}
		got, err := ColumnArray[int64](mustStep(t, st), 0)
		if err != nil {
			t.Fatalf("%s: read: %v", s, err)
		}
		if !reflect.DeepEqual(got, in) {
			t.Fatalf("%s: got %v want %v", s, got, in)
		}
	}
}

func TestArray_ThreeDimensionalWithNulls(t *testing.T) {
	one, three := 1, 3
	in := [][][]*int{
		{{&one, nil}, {}},
		{{&three}},
	}
	for _, s := range []ArrayStrategy{ArrayPlist, ArrayJSON} {
		st, _ := newEchoStatement(t, "a")
		st.ArrayStrategy = s
		v, err := ValueOf(in)
		if err != nil {
			t.Fatal(err)
		}
		if err := st.Bind(1, v); err != nil {
			t.Fatalf("%s: bind: %v", s, err)
		}
		got, err := ColumnArray[[][]*int](mustStep(t, st), 0)
		if err != nil {
			t.Fatalf("%s: read: %v", s, err)
		}
		if len(got) != 2 || len(got[0]) != 2 || len(got[0][0]) != 2 || len(got[0][1]) != 0 || len(got[1][0]) != 1 {
			t.Fatalf("%s: shape mismatch %v", s, got)
		}
		if *got[0][0][0] != 1 || got[0][0][1] != nil || *got[1][0][0] != 3 {
			t.Fatalf("%s: values mismatch", s)
		}
	}
}

func TestArray_MixedElementsAsAny(t *testing.T) {
	for _, s := range []ArrayStrategy{ArrayPlist, ArrayJSON} {
		st, _ := newEchoStatement(t, "a")
		st.ArrayStrategy = s
		_ = st.Bind(1, Array{Bool(true), Int64(-5), Float64(2.5), Text("ü"), nil, Array{Int64(1)}})
		r := mustStep(t, st)
		got, err := r.ArrayValue(0)
		if err != nil {
			t.Fatalf("%s: %v", s, err)
		}
		want := Array{Bool(true), Int64(-5), Float64(2.5), Text("ü"), nil, Array{Int64(1)}}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: got %#v want %#v", s, got, want)
		}
	}
}

func TestArray_FloatExtremesBothStrategies(t *testing.T) {
	f32 := []float32{0, math.MaxFloat32, -math.MaxFloat32, math.SmallestNonzeroFloat32}
	f64 := []float64{0, math.MaxFloat64, -math.MaxFloat64, math.SmallestNonzeroFloat64}
	for _, s := range []ArrayStrategy{ArrayPlist, ArrayJSON} {
		st, _ := newEchoStatement(t, "a", "b")
		st.ArrayStrategy = s
		v32, _ := ValueOf(f32)
		v64, _ := ValueOf(f64)
		_ = st.Bind(1, v32)
		_ = st.Bind(2, v64)
		r := mustStep(t, st)

		got32, err := ColumnArray[float32](r, 0)
		if err != nil {
			t.Fatalf("%s: float32: %v", s, err)
		}
		if !reflect.DeepEqual(got32, f32) {
			t.Fatalf("%s: got %v want %v", s, got32, f32)
		}
		got64, err := ColumnArray[float64](r, 1)
		if err != nil {
			t.Fatalf("%s: float64: %v", s, err)
		}
		if !reflect.DeepEqual(got64, f64) {
			t.Fatalf("%s: got %v want %v", s, got64, f64)
		}
	}
}

func TestArray_Float32Overflow(t *testing.T) {
	var f float32
	if err := assignElem(reflectValue(&f), 1e39); !errors.Is(err, ErrOverflow) {
		t.Fatalf("1e39 into float32: got %v", err)
	}
	if err := assignElem(reflectValue(&f), 3.4028235e+38); err != nil || f != math.MaxFloat32 {
		t.Fatalf("shortest MaxFloat32 text: got %v, %v", f, err)
	}
}

func TestArray_UnsignedAboveMaxInt64(t *testing.T) {
	for _, s := range []ArrayStrategy{ArrayPlist, ArrayJSON} {
		plain, err := s.plainArray(Array{Uint64(math.MaxUint64)})
		if err != nil {
			t.Fatal(err)
		}
		b, err := s.marshal(Array{Uint64(math.MaxUint64)})
		if err != nil {
			t.Fatalf("%s: %v (%v)", s, err, plain)
		}
		back, err := s.unmarshal(b)
		if err != nil {
			t.Fatalf("%s: %v", s, err)
		}
		if len(back) != 1 || back[0] != uint64(math.MaxUint64) {
			t.Fatalf("%s: got %#v", s, back)
		}
	}
}

func TestArray_DecodeErrors(t *testing.T) {
	st, _ := newTestStatement(t, nil, []string{"a", "n"}, [][]any{{[]byte("[1, 300]"), int64(1)}})
	st.ArrayStrategy = ArrayJSON
	r := mustStep(t, st)

	if _, err := ColumnArray[uint8](r, 0); !errors.Is(err, ErrOverflow) {
		t.Fatalf("uint8 overflow: got %v", err)
	}
	if _, err := ColumnArray[string](r, 0); err == nil {
		t.Fatal("numbers into strings should fail")
	}
	var tm *TypeMismatchError
	if _, err := ColumnArray[int](r, 1); !errors.As(err, &tm) {
		t.Fatalf("INTEGER column as array: got %v", err)
	}
	var fixed [3]int
	if err := assignElem(reflectValue(&fixed), []any{int64(1)}); !errors.Is(err, ErrArrayLength) {
		t.Fatalf("fixed array length: got %v", err)
	}
	var notNull int
	if err := assignElem(reflectValue(&notNull), nil); !errors.Is(err, ErrNull) {
		t.Fatalf("null into int: got %v", err)
	}
}

func TestArray_MalformedBlob(t *testing.T) {
	st, _ := newTestStatement(t, nil, []string{"a"}, [][]any{{[]byte("(1, 2")}})
	r := mustStep(t, st)
	var tm *TypeMismatchError
	if _, err := ColumnArray[int](r, 0); !errors.As(err, &tm) || tm.Err == nil {
		t.Fatalf("got %v", err)
	}
}

func reflectValue(p any) reflect.Value { return reflect.ValueOf(p).Elem() }
