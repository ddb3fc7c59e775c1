package rowmap

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
)

type address struct {
	Street string `db:"street"`
	City   string `db:"city"`
}

type customer struct {
	ID      int64     `db:"id"`
	Name    string    // binds by field name, ignoring case
	Email   *string   `db:"email"`
	Tags    []string  `db:"tags"`
	Joined  time.Time `db:"joined"`
	Token   uuid.UUID `db:"token"`
	Color   hexColor  `db:"color"`
	Address address
	Ignored string `db:"-"`
}

/* ---------------------------
   Tests: Encode
----------------------------*/

func TestEncode_BindsByTagAndName(t *testing.T) {
	st, h := newTestStatement(t,
		[]string{":id", ":name", ":email", ":tags", ":joined", ":token", ":color", ":street", ":city", ":Ignored"},
		nil, nil)
	st.ArrayStrategy = ArrayJSON

	joined := time.Unix(1700000000, 0)
	token := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	c := customer{
		ID:      7,
		Name:    "Zoë",
		Tags:    []string{"a", "b"},
		Joined:  joined,
		Token:   token,
		Color:   hexColor{R: 1, G: 2, B: 3},
		Address: address{Street: "Main", City: "Oslo"},
		Ignored: "x",
	}
	if err := Encode(&c, st); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := map[int]any{
		1: int64(7),
		2: "Zoë",
		3: nullBind{},
		4: []byte(`["a","b"]`),
		5: int64(1700000000),
		6: token[:],
		7: "#010203",
		8: "Main",
		9: "Oslo",
	}
	if !reflect.DeepEqual(h.binds, want) {
		t.Fatalf("binds got %#v\nwant %#v", h.binds, want)
	}
}

func TestEncode_NilNestedPointerBindsNull(t *testing.T) {
	type Inner struct {
		X int `db:"x"`
	}
	type Outer struct {
		In *Inner
	}
	st, h := newTestStatement(t, []string{":x"}, nil, nil)
	if err := Encode(Outer{}, st); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.binds[1].(nullBind); !ok {
		t.Fatalf("x got %#v want NULL", h.binds[1])
	}
}

func TestEncode_UnsupportedFieldFails(t *testing.T) {
	type Bad struct {
		Counter uint64 `db:"counter"`
	}
	// Even without a matching parameter.
	st, _ := newTestStatement(t, []string{":other"}, nil, nil)
	err := Encode(Bad{Counter: math.MaxUint64}, st)
	var fe *FieldError
	if !errors.As(err, &fe) || !errors.Is(err, ErrUnsupportedType) || fe.Path != "Counter" {
		t.Fatalf("got %v, want FieldError on Counter", err)
	}
}

func TestEncode_FieldPathForNested(t *testing.T) {
	type Inner struct {
		M map[string]int
	}
	type Outer struct {
		In Inner
	}
	st, _ := newTestStatement(t, nil, nil, nil)
	var fe *FieldError
	if err := Encode(Outer{}, st); !errors.As(err, &fe) || fe.Path != "In.M" {
		t.Fatalf("got %v, want FieldError at In.M", err)
	}
}

func TestEncode_RejectsNonStruct(t *testing.T) {
	st, _ := newTestStatement(t, []string{":a"}, nil, nil)
	if err := Encode(42, st); !errors.Is(err, ErrNoField) {
		t.Fatalf("got %v want ErrNoField", err)
	}
	var nilp *customer
	if err := Encode(nilp, st); err == nil {
		t.Fatal("expected error for nil pointer")
	}
}
