package rowmap

// Query steps the statement to completion and decodes every row into a
// slice of T, then resets the statement so it can be bound and run again.
//
// T may be a struct (supports `db` tags and nested structs) or, for
// single-column results, any type readable from one column: scalars,
// []byte, time.Time, slices decoded with the statement's ArrayStrategy, and
// pointers to those for nullable columns.
//
// Query is not safe for concurrent use of the same statement. The codec
// cache it relies on is shared and safe for concurrent use.
//
// Example:
//
//	type User struct {
//	    ID    int64  `db:"id"`
//	    Email string `db:"email"`
//	}
//
//	st, err := conn.Prepare(`SELECT id, email FROM users WHERE org = :org ORDER BY id`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Finalize()
//	_ = st.BindName("org", rowmap.Int64(7))
//	users, err := rowmap.Query[User](st)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, u := range users {
//	    fmt.Println(u.ID, u.Email)
//	}
func Query[T any](st *Statement) (out []T, err error) {
	// Propagate the Reset error if nothing else failed.
	defer func() {
		if rerr := st.Reset(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	m := getMapper() // lazy, thread-safe
	for row, stepErr := range st.Rows() {
		if stepErr != nil {
			return nil, stepErr
		}
		v, decErr := decodeWithMapper[T](m, row)
		if decErr != nil {
			return nil, decErr
		}
		out = append(out, v)
	}
	return out, nil
}
