package rowmap

// Exec binds the fields of v with [Encode] (unless v is nil), runs a
// statement that does not return rows (INSERT, UPDATE, DELETE, DDL) and
// resets it, leaving it ready for the next call.
//
// Example:
//
//	st, err := conn.Prepare(`INSERT INTO users (email) VALUES (:email)`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Finalize()
//	for _, u := range users {
//	    if err := rowmap.Exec(st, u); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// Notes:
//   - Use a transaction around multiple Exec calls when you need atomicity.
//   - The connection reports the generated row id; see sqlitedb.Conn.LastInsertRowID.
func Exec(st *Statement, v any) (err error) {
	defer func() {
		if rerr := st.Reset(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	if v != nil {
		if err := Encode(v, st); err != nil {
			return err
		}
	}
	return st.Perform()
}
