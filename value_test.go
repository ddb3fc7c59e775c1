package rowmap

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
)

type level int16

type hexColor struct{ R, G, B uint8 }

func (c hexColor) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)), nil
}

func (c *hexColor) UnmarshalText(b []byte) error {
	_, err := fmt.Sscanf(string(b), "#%02x%02x%02x", &c.R, &c.G, &c.B)
	return err
}

/* ---------------------------
   Tests: ValueOf
----------------------------*/

func TestValueOf_Classification(t *testing.T) {
	n := int32(5)
	var nilPtr *int32
	now := time.Unix(1700000000, 0).UTC()
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	tests := []struct {
		in   any
		want Value
	}{
		{nil, nil},
		{true, Bool(true)},
		{42, Int(42)},
		{int8(-3), Int8(-3)},
		{level(7), Int16(7)},
		{&n, Int32(5)},
		{nilPtr, nil},
		{uint8(200), Uint8(200)},
		{uint64(math.MaxUint64), Uint64(math.MaxUint64)},
		{float32(1.5), Float32(1.5)},
		{"s", Text("s")},
		{[]byte("b"), Blob("b")},
		{[]byte(nil), nil},
		{now, Timestamp(now)},
		{id, Blob(id[:])},
		{hexColor{R: 255, G: 128}, Text("#ff8000")},
		{[]int{1, 2}, Array{Int(1), Int(2)}},
		{[][]string{{"a"}, nil}, Array{Array{Text("a")}, nil}},
		{[]int(nil), nil},
		{Int64(9), Int64(9)},
	}
	for _, tc := range tests {
		got, err := ValueOf(tc.in)
		if err != nil {
			t.Fatalf("ValueOf(%#v): %v", tc.in, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("ValueOf(%#v) got %#v want %#v", tc.in, got, tc.want)
		}
	}
}

func TestValueOf_Unsupported(t *testing.T) {
	for _, in := range []any{map[string]int{}, make(chan int), complex(1, 2), []map[string]int{{}}} {
		if _, err := ValueOf(in); !errors.Is(err, ErrUnsupportedType) {
			t.Fatalf("ValueOf(%T) err %v, want ErrUnsupportedType", in, err)
		}
	}
}

/* ---------------------------
   Tests: bind dispatch
----------------------------*/

func TestBindValue_Dispatch(t *testing.T) {
	st, h := newTestStatement(t, []string{"?", "?", "?", "?", "?", "?", "?"}, nil, nil)
	values := []Value{Bool(true), Int8(-1), Uint32(math.MaxUint32), Float32(0.5), Text("t"), Blob{9}, nil}
	for i, v := range values {
		if err := st.Bind(i+1, v); err != nil {
			t.Fatalf("Bind(%d): %v", i+1, err)
		}
	}
	want := map[int]any{
		1: int64(1),
		2: int64(-1),
		3: int64(math.MaxUint32),
		4: 0.5,
		5: "t",
		6: []byte{9},
		7: nullBind{},
	}
	if !reflect.DeepEqual(h.binds, want) {
		t.Fatalf("binds got %#v want %#v", h.binds, want)
	}
}

func TestBindValue_TimestampStrategies(t *testing.T) {
	ts := time.Date(2001, 2, 3, 4, 5, 6, 700_000_000, time.FixedZone("X", 3600))
	tests := []struct {
		s    DateStrategy
		want any
	}{
		{DateInteger, ts.Unix()},
		{DateReal, JulianDay(ts)},
		{DateText, "2001-02-03T03:05:06.7Z"},
	}
	for _, tc := range tests {
		st, h := newTestStatement(t, []string{"?"}, nil, nil)
		st.DateStrategy = tc.s
		if err := st.Bind(1, Timestamp(ts)); err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(h.binds[1], tc.want) {
			t.Fatalf("%s: bound %#v want %#v", tc.s, h.binds[1], tc.want)
		}
	}
}

func TestBindValue_ArrayUsesStatementStrategy(t *testing.T) {
	st, h := newTestStatement(t, []string{"?"}, nil, nil)
	st.ArrayStrategy = ArrayJSON
	if err := st.Bind(1, Array{Int64(1), nil, Text("x")}); err != nil {
		t.Fatal(err)
	}
	if got := string(h.binds[1].([]byte)); got != `[1,null,"x"]` {
		t.Fatalf("json array got %s", got)
	}

	st.ArrayStrategy = ArrayPlist
	if err := st.Bind(1, Array{Int64(1)}); err != nil {
		t.Fatal(err)
	}
	if got := h.binds[1].([]byte); len(got) < 8 || string(got[:8]) != "bplist00" {
		t.Fatalf("plist array header got %q", got)
	}
}

func TestBindValue_UnsupportedArrayElement(t *testing.T) {
	st, _ := newTestStatement(t, []string{"?"}, nil, nil)
	err := st.Bind(1, Array{Blob("no")})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("got %v want ErrUnsupportedType", err)
	}
}
