package rowmap

// StorageClass is the physical representation of a column value as reported
// by the engine for the current row. The numeric values match SQLite's
// fundamental datatype codes.
type StorageClass int

const (
	ClassInteger StorageClass = 1
	ClassFloat   StorageClass = 2
	ClassText    StorageClass = 3
	ClassBlob    StorageClass = 4
	ClassNull    StorageClass = 5
)

func (c StorageClass) String() string {
	switch c {
	case ClassInteger:
		return "INTEGER"
	case ClassFloat:
		return "FLOAT"
	case ClassText:
		return "TEXT"
	case ClassBlob:
		return "BLOB"
	case ClassNull:
		return "NULL"
	}
	return "UNKNOWN"
}

// Handle is a prepared statement as exposed by the engine. Parameter indexes
// are 1-based and column indexes are 0-based.
//
// Bind methods do not report errors; engines defer them to the next Step.
type Handle interface {
	BindParamCount() int
	BindParamName(param int) string
	ColumnCount() int
	ColumnName(col int) string

	Step() (rowReturned bool, err error)
	Reset() error
	ClearBindings() error
	Finalize() error

	ColumnType(col int) StorageClass
	ColumnInt64(col int) int64
	ColumnFloat(col int) float64
	ColumnText(col int) string
	ColumnBlob(col int) []byte

	BindInt64(param int, value int64)
	BindFloat(param int, value float64)
	BindText(param int, value string)
	BindBytes(param int, value []byte)
	BindNull(param int)
}

// Preparer is implemented by engine connections that compile query text into
// a Statement.
type Preparer interface {
	Prepare(query string) (*Statement, error)
}
