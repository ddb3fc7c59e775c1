package rowmap

// Get steps the statement once and decodes the first row into a value of
// type T, then resets the statement.
//
// It returns [ErrNoRows] if the statement yields no rows and does not
// enforce "exactly one row" beyond the first; if more rows exist, they are
// ignored. Use LIMIT 1 (or an equivalent WHERE clause) when you require
// at-most-one row.
//
// T follows the same rules as in [Query].
//
// Example:
//
//	st, err := conn.Prepare(`SELECT id, email FROM users WHERE id = :id`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Finalize()
//	_ = st.BindName("id", rowmap.Int64(42))
//	u, err := rowmap.Get[User](st)
//	if err != nil {
//	    if errors.Is(err, rowmap.ErrNoRows) {
//	        // handle not found
//	    } else {
//	        // handle other errors
//	    }
//	}
//	// use u
func Get[T any](st *Statement) (out T, err error) {
	// Ensure the Reset error is propagated if no earlier error occurred.
	defer func() {
		if rerr := st.Reset(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	row, err := st.Step()
	if err != nil {
		return out, err
	}
	if row == nil {
		return out, ErrNoRows
	}

	m := getMapper() // lazy, thread-safe
	return decodeWithMapper[T](m, row)
}
