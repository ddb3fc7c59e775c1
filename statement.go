package rowmap

import (
	"fmt"
	"iter"
	"maps"
)

// Statement is a prepared query together with its resolved parameter and
// column names and its per-statement encoding strategies.
//
// A Statement is not safe for concurrent use. The name tables are fixed at
// creation; ArrayStrategy and DateStrategy may be changed between uses.
type Statement struct {
	ArrayStrategy ArrayStrategy
	DateStrategy  DateStrategy

	h Handle

	bindables map[string]int // parameter name without prefix -> 1-based slot
	bindFold  map[string]int
	bindNames []string // by slot - 1, "" for anonymous slots
	columns   map[string]int // column name -> 0-based index
	colFold   map[string]int
	colNames  []string

	gen       uint64 // advanced by Step, Reset and Finalize
	finalized bool
}

// NewStatement wraps a prepared engine handle and resolves its names. The
// caller keeps ownership of h if NewStatement fails.
func NewStatement(h Handle) (*Statement, error) {
	s := &Statement{h: h}
	if err := s.resolve(); err != nil {
		return nil, err
	}
	return s, nil
}

// bindKey strips one of the named-parameter prefixes. Anonymous and
// numbered parameters ("?", "?NNN") are not addressable by name.
func bindKey(name string) (string, bool) {
	if len(name) < 2 {
		return "", false
	}
	switch name[0] {
	case ':', '$', '@':
		return name[1:], true
	}
	return "", false
}

func (s *Statement) resolve() error {
	n := s.h.BindParamCount()
	s.bindables = make(map[string]int, n)
	s.bindFold = make(map[string]int, n)
	s.bindNames = make([]string, n)
	for i := 1; i <= n; i++ {
		key, ok := bindKey(s.h.BindParamName(i))
		if !ok {
			continue
		}
		if prev, dup := s.bindables[key]; dup {
			return fmt.Errorf("%w: %q names parameters %d and %d", ErrDuplicateName, key, prev, i)
		}
		s.bindables[key] = i
		s.bindNames[i-1] = key
		if lc := toLowerAscii(key); lc != key {
			if _, seen := s.bindFold[lc]; !seen {
				s.bindFold[lc] = i
			}
		}
	}

	c := s.h.ColumnCount()
	s.columns = make(map[string]int, c)
	s.colFold = make(map[string]int, c)
	s.colNames = make([]string, c)
	for i := 0; i < c; i++ {
		name := s.h.ColumnName(i)
		s.colNames[i] = name
		// First occurrence wins for repeated names, as in joins.
		if _, seen := s.columns[name]; !seen {
			s.columns[name] = i
		}
		if lc := toLowerAscii(name); lc != name {
			if _, seen := s.colFold[lc]; !seen {
				s.colFold[lc] = i
			}
		}
	}
	return nil
}

// Bindables returns a copy of the parameter name table (name -> 1-based slot).
func (s *Statement) Bindables() map[string]int { return maps.Clone(s.bindables) }

// Columns returns a copy of the column name table (name -> 0-based index).
func (s *Statement) Columns() map[string]int { return maps.Clone(s.columns) }

// BindNames returns the parameter names by slot; anonymous slots are "".
func (s *Statement) BindNames() []string { return append([]string(nil), s.bindNames...) }

// ColumnNames returns the result column names in order.
func (s *Statement) ColumnNames() []string { return append([]string(nil), s.colNames...) }

// BindCount returns the number of parameter slots, named or not.
func (s *Statement) BindCount() int { return len(s.bindNames) }

// ColumnCount returns the number of result columns.
func (s *Statement) ColumnCount() int { return len(s.colNames) }

// BindIndex returns the 1-based slot for a parameter name given without its
// prefix.
func (s *Statement) BindIndex(name string) (int, bool) {
	i, ok := s.bindables[name]
	return i, ok
}

// ColumnIndex returns the 0-based index of a result column.
func (s *Statement) ColumnIndex(name string) (int, bool) {
	i, ok := s.columns[name]
	return i, ok
}

// lookupBind and lookupColumn match exactly first, then ignoring ASCII case.
// They serve the struct bridges, where Go field names are capitalized.
func (s *Statement) lookupBind(name string) (int, bool) {
	if i, ok := s.bindables[name]; ok {
		return i, true
	}
	i, ok := s.bindables[toLowerAscii(name)]
	if !ok {
		i, ok = s.bindFold[toLowerAscii(name)]
	}
	return i, ok
}

func (s *Statement) lookupColumn(name string) (int, bool) {
	if i, ok := s.columns[name]; ok {
		return i, true
	}
	i, ok := s.columns[toLowerAscii(name)]
	if !ok {
		i, ok = s.colFold[toLowerAscii(name)]
	}
	return i, ok
}

func (s *Statement) mustLive() {
	if s.finalized {
		panic(ErrFinalized)
	}
}

// Bind writes v into the 1-based parameter slot. A nil v binds NULL.
// Bind panics if slot is less than 1. Errors from the engine for an
// out-of-range slot surface on the next Step.
func (s *Statement) Bind(slot int, v Value) error {
	s.mustLive()
	if slot < 1 {
		panic(fmt.Sprintf("rowmap: bind slot %d out of range, slots are 1-based", slot))
	}
	if err := s.bindValue(slot, v); err != nil {
		return fmt.Errorf("rowmap: bind slot %d: %w", slot, err)
	}
	return nil
}

// BindName writes v into the slot named name (without its prefix). Unknown
// names are ignored.
func (s *Statement) BindName(name string, v Value) error {
	s.mustLive()
	slot, ok := s.bindables[name]
	if !ok {
		return nil
	}
	if err := s.bindValue(slot, v); err != nil {
		return fmt.Errorf("rowmap: bind %q: %w", name, err)
	}
	return nil
}

// Step advances to the next result row. It returns a nil row and a nil error
// when the statement is done. The returned row is valid until the next Step,
// Reset or Finalize. Busy and misuse conditions are reported as errors
// matching ErrBusy and ErrMisuse.
func (s *Statement) Step() (*Row, error) {
	s.mustLive()
	s.gen++
	ok, err := s.h.Step()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &Row{st: s, gen: s.gen}, nil
}

// Perform runs a statement that is not expected to produce rows.
func (s *Statement) Perform() error {
	row, err := s.Step()
	if err != nil {
		return err
	}
	if row != nil {
		return ErrUnexpectedRow
	}
	return nil
}

// Reset rewinds the statement and clears its bound values. The name tables
// are kept.
func (s *Statement) Reset() error {
	s.mustLive()
	s.gen++
	err := s.h.Reset()
	if cerr := s.h.ClearBindings(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Finalize releases the engine handle. Calling it again is a no-op.
func (s *Statement) Finalize() error {
	if s.finalized {
		return nil
	}
	s.finalized = true
	s.gen++
	return s.h.Finalize()
}

// Finalized reports whether Finalize has been called.
func (s *Statement) Finalized() bool { return s.finalized }

// Rows steps the statement to completion, yielding each row. Iteration stops
// at the first error, which is yielded with a nil row.
//
// Example:
//
//	for row, err := range st.Rows() {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(rowmap.Named[string](row, "name"))
//	}
func (s *Statement) Rows() iter.Seq2[*Row, error] {
	return func(yield func(*Row, error) bool) {
		for {
			row, err := s.Step()
			if err != nil {
				yield(nil, err)
				return
			}
			if row == nil {
				return
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}
