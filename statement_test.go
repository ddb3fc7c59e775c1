package rowmap

import (
	"errors"
	"reflect"
	"testing"
)

/* ---------------------------
   Tests: name resolution
----------------------------*/

func TestNewStatement_BindablesStripPrefixes(t *testing.T) {
	st, _ := newTestStatement(t, []string{":ONE", "$TWO", "@THREE"}, nil, nil)
	want := map[string]int{"ONE": 1, "TWO": 2, "THREE": 3}
	if got := st.Bindables(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Bindables got %v want %v", got, want)
	}
	if got := st.BindNames(); !reflect.DeepEqual(got, []string{"ONE", "TWO", "THREE"}) {
		t.Fatalf("BindNames got %v", got)
	}
	if i, ok := st.BindIndex("TWO"); !ok || i != 2 {
		t.Fatalf("BindIndex(TWO) = %d,%v", i, ok)
	}
	if _, ok := st.BindIndex("two"); ok {
		t.Fatal("BindIndex should be exact")
	}
}

func TestNewStatement_AnonymousParameters(t *testing.T) {
	st, _ := newTestStatement(t, []string{"", "?2", ":x"}, nil, nil)
	if got := st.Bindables(); !reflect.DeepEqual(got, map[string]int{"x": 3}) {
		t.Fatalf("Bindables got %v", got)
	}
	if st.BindCount() != 3 {
		t.Fatalf("BindCount got %d want 3", st.BindCount())
	}

	st, _ = newTestStatement(t, []string{""}, nil, nil)
	if got := st.Bindables(); len(got) != 0 {
		t.Fatalf("anonymous-only statement has bindables %v", got)
	}
}

func TestNewStatement_DuplicateNameAfterStripping(t *testing.T) {
	h := &fakeHandle{params: []string{":a", "$a"}}
	_, err := NewStatement(h)
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestNewStatement_Columns(t *testing.T) {
	st, _ := newTestStatement(t, nil, []string{"a", "b", "a", "Mixed"}, nil)
	want := map[string]int{"a": 0, "b": 1, "Mixed": 3}
	if got := st.Columns(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Columns got %v want %v", got, want)
	}
	if got := st.ColumnNames(); !reflect.DeepEqual(got, []string{"a", "b", "a", "Mixed"}) {
		t.Fatalf("ColumnNames got %v", got)
	}
	if st.ColumnCount() != 4 {
		t.Fatalf("ColumnCount got %d", st.ColumnCount())
	}
	if i, ok := st.lookupColumn("mixed"); !ok || i != 3 {
		t.Fatalf("case-insensitive lookup got %d,%v", i, ok)
	}
	if i, ok := st.lookupColumn("B"); !ok || i != 1 {
		t.Fatalf("lookup of capitalized name got %d,%v", i, ok)
	}
}

func TestStatement_NameTablesAreCopies(t *testing.T) {
	st, _ := newTestStatement(t, []string{":a"}, []string{"x"}, nil)
	st.Bindables()["a"] = 99
	st.Columns()["x"] = 99
	if i, _ := st.BindIndex("a"); i != 1 {
		t.Fatal("Bindables exposed internal map")
	}
	if i, _ := st.ColumnIndex("x"); i != 0 {
		t.Fatal("Columns exposed internal map")
	}
}

/* ---------------------------
   Tests: bind / step / reset
----------------------------*/

func TestStatement_BindNameUnknownIsNoop(t *testing.T) {
	st, h := newTestStatement(t, []string{":a"}, nil, nil)
	if err := st.BindName("zz", Int64(1)); err != nil {
		t.Fatalf("BindName unknown: %v", err)
	}
	if len(h.binds) != 0 {
		t.Fatalf("unexpected binds %v", h.binds)
	}
	if err := st.BindName("a", Int64(7)); err != nil {
		t.Fatal(err)
	}
	if h.binds[1] != int64(7) {
		t.Fatalf("slot 1 got %v", h.binds[1])
	}
}

func TestStatement_BindSlotZeroPanics(t *testing.T) {
	st, _ := newTestStatement(t, []string{"?"}, nil, nil)
	mustPanic(t, func() { _ = st.Bind(0, Int64(1)) })
}

func TestStatement_StepUntilDone(t *testing.T) {
	st, _ := newTestStatement(t, nil, []string{"n"}, [][]any{{int64(1)}, {int64(2)}})
	var got []int64
	for {
		row, err := st.Step()
		if err != nil {
			t.Fatal(err)
		}
		if row == nil {
			break
		}
		got = append(got, Column[int64](row, 0))
	}
	if !reflect.DeepEqual(got, []int64{1, 2}) {
		t.Fatalf("got %v", got)
	}
}

func TestStatement_StepError(t *testing.T) {
	busy := &EngineError{Op: "step", Code: CodeBusy, Msg: "database is locked"}
	st, h := newTestStatement(t, nil, []string{"n"}, nil)
	h.stepErr = busy
	row, err := st.Step()
	if row != nil || !errors.Is(err, ErrBusy) {
		t.Fatalf("Step got row=%v err=%v", row, err)
	}
}

func TestStatement_PerformRejectsRows(t *testing.T) {
	st, _ := newTestStatement(t, nil, []string{"n"}, [][]any{{int64(1)}})
	if err := st.Perform(); !errors.Is(err, ErrUnexpectedRow) {
		t.Fatalf("expected ErrUnexpectedRow, got %v", err)
	}

	st, _ = newTestStatement(t, nil, nil, nil)
	if err := st.Perform(); err != nil {
		t.Fatalf("Perform: %v", err)
	}
}

func TestStatement_ResetKeepsNamesAndClearsBindings(t *testing.T) {
	st, h := newTestStatement(t, []string{":a"}, []string{"n"}, [][]any{{int64(1)}})
	_ = st.BindName("a", Int64(3))
	mustStep(t, st)
	if err := st.Reset(); err != nil {
		t.Fatal(err)
	}
	if h.resets != 1 || h.clears != 1 || h.binds != nil {
		t.Fatalf("reset=%d clears=%d binds=%v", h.resets, h.clears, h.binds)
	}
	if i, ok := st.BindIndex("a"); !ok || i != 1 {
		t.Fatal("bindables lost after Reset")
	}
	// Rows are available again.
	if got := Column[int64](mustStep(t, st), 0); got != 1 {
		t.Fatalf("after reset got %d", got)
	}
}

func TestStatement_FinalizeIdempotent(t *testing.T) {
	st, h := newTestStatement(t, nil, nil, nil)
	if err := st.Finalize(); err != nil {
		t.Fatal(err)
	}
	if err := st.Finalize(); err != nil {
		t.Fatal(err)
	}
	if h.finalizes != 1 {
		t.Fatalf("engine finalize called %d times", h.finalizes)
	}
	if !st.Finalized() {
		t.Fatal("Finalized() false")
	}
}

func TestStatement_UseAfterFinalizePanics(t *testing.T) {
	st, _ := newTestStatement(t, []string{":a"}, []string{"n"}, [][]any{{int64(1)}})
	_ = st.Finalize()

	for name, fn := range map[string]func(){
		"Step":     func() { _, _ = st.Step() },
		"Reset":    func() { _ = st.Reset() },
		"Bind":     func() { _ = st.Bind(1, Int64(1)) },
		"BindName": func() { _ = st.BindName("a", Int64(1)) },
	} {
		if err := panicErr(t, fn); !errors.Is(err, ErrFinalized) {
			t.Fatalf("%s: panic %v, want ErrFinalized", name, err)
		}
	}
}

func TestStatement_FinalizeError(t *testing.T) {
	boom := errors.New("finalize failed")
	st, h := newTestStatement(t, nil, nil, nil)
	h.finalizeErr = boom
	if err := st.Finalize(); !errors.Is(err, boom) {
		t.Fatalf("got %v want %v", err, boom)
	}
}

func TestStatement_RowsIterator(t *testing.T) {
	st, _ := newTestStatement(t, nil, []string{"n"}, [][]any{{int64(1)}, {int64(2)}, {int64(3)}})
	var got []int64
	for row, err := range st.Rows() {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, Column[int64](row, 0))
		if len(got) == 2 {
			break
		}
	}
	if !reflect.DeepEqual(got, []int64{1, 2}) {
		t.Fatalf("got %v", got)
	}

	boom := errors.New("boom")
	st, h := newTestStatement(t, nil, []string{"n"}, nil)
	h.stepErr = boom
	for row, err := range st.Rows() {
		if row != nil || !errors.Is(err, boom) {
			t.Fatalf("got row=%v err=%v", row, err)
		}
	}
}
