package sqlitedb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-mizu/rowmap"
)

// JournalMode is the value of PRAGMA journal_mode.
type JournalMode string

const (
	JournalDelete   JournalMode = "DELETE"
	JournalTruncate JournalMode = "TRUNCATE"
	JournalPersist  JournalMode = "PERSIST"
	JournalMemory   JournalMode = "MEMORY"
	JournalWAL      JournalMode = "WAL"
	JournalOff      JournalMode = "OFF"
)

// ParseJournalMode parses a journal mode name, ignoring case.
func ParseJournalMode(s string) (JournalMode, error) {
	switch m := JournalMode(strings.ToUpper(strings.TrimSpace(s))); m {
	case JournalDelete, JournalTruncate, JournalPersist, JournalMemory, JournalWAL, JournalOff:
		return m, nil
	}
	return "", fmt.Errorf("sqlitedb: unknown journal mode %q", s)
}

// AutoVacuum is the value of PRAGMA auto_vacuum.
type AutoVacuum string

const (
	AutoVacuumNone        AutoVacuum = "NONE"
	AutoVacuumFull        AutoVacuum = "FULL"
	AutoVacuumIncremental AutoVacuum = "INCREMENTAL"
)

// ParseAutoVacuum accepts the pragma's names and its numeric form.
func ParseAutoVacuum(s string) (AutoVacuum, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "0", "NONE":
		return AutoVacuumNone, nil
	case "1", "FULL":
		return AutoVacuumFull, nil
	case "2", "INCREMENTAL":
		return AutoVacuumIncremental, nil
	}
	return "", fmt.Errorf("sqlitedb: unknown auto_vacuum value %q", s)
}

// SecureDelete is the value of PRAGMA secure_delete.
type SecureDelete string

const (
	SecureDeleteOff  SecureDelete = "OFF"
	SecureDeleteOn   SecureDelete = "ON"
	SecureDeleteFast SecureDelete = "FAST"
)

// ParseSecureDelete accepts the pragma's names and its numeric form.
func ParseSecureDelete(s string) (SecureDelete, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "0", "OFF", "FALSE":
		return SecureDeleteOff, nil
	case "1", "ON", "TRUE":
		return SecureDeleteOn, nil
	case "2", "FAST":
		return SecureDeleteFast, nil
	}
	return "", fmt.Errorf("sqlitedb: unknown secure_delete value %q", s)
}

// CheckpointMode is the argument of PRAGMA wal_checkpoint.
type CheckpointMode string

const (
	CheckpointPassive  CheckpointMode = "PASSIVE"
	CheckpointFull     CheckpointMode = "FULL"
	CheckpointRestart  CheckpointMode = "RESTART"
	CheckpointTruncate CheckpointMode = "TRUNCATE"
)

// pragma reads the first column of the first row of PRAGMA name.
func (c *Conn) pragma(name string) (string, error) {
	st, err := c.Prepare("PRAGMA " + name)
	if err != nil {
		return "", err
	}
	defer st.Finalize()

	row, err := st.Step()
	if err != nil {
		return "", err
	}
	if row == nil {
		return "", fmt.Errorf("sqlitedb: pragma %s returned no rows", name)
	}
	switch v := row.Value(0).(type) {
	case rowmap.Int64:
		return strconv.FormatInt(int64(v), 10), nil
	case rowmap.Float64:
		return strconv.FormatFloat(float64(v), 'g', -1, 64), nil
	case rowmap.Text:
		return string(v), nil
	case rowmap.Blob:
		return string(v), nil
	}
	return "", nil
}

func (c *Conn) setPragma(name, value string) error {
	return c.Exec(fmt.Sprintf("PRAGMA %s = %s", name, value))
}

// JournalMode reports the current journal mode.
func (c *Conn) JournalMode() (JournalMode, error) {
	s, err := c.pragma("journal_mode")
	if err != nil {
		return "", err
	}
	return ParseJournalMode(s)
}

// SetJournalMode changes the journal mode. In-memory databases silently
// keep MEMORY (or OFF).
func (c *Conn) SetJournalMode(m JournalMode) error {
	if _, err := ParseJournalMode(string(m)); err != nil {
		return err
	}
	return c.setPragma("journal_mode", string(m))
}

// AutoVacuum reports the auto_vacuum setting.
func (c *Conn) AutoVacuum() (AutoVacuum, error) {
	s, err := c.pragma("auto_vacuum")
	if err != nil {
		return "", err
	}
	return ParseAutoVacuum(s)
}

// SetAutoVacuum changes auto_vacuum. Switching between NONE and the other
// modes only takes effect on an empty database or after Vacuum.
func (c *Conn) SetAutoVacuum(v AutoVacuum) error {
	if _, err := ParseAutoVacuum(string(v)); err != nil {
		return err
	}
	return c.setPragma("auto_vacuum", string(v))
}

// SecureDelete reports the secure_delete setting.
func (c *Conn) SecureDelete() (SecureDelete, error) {
	s, err := c.pragma("secure_delete")
	if err != nil {
		return "", err
	}
	return ParseSecureDelete(s)
}

// SetSecureDelete changes secure_delete.
func (c *Conn) SetSecureDelete(v SecureDelete) error {
	if _, err := ParseSecureDelete(string(v)); err != nil {
		return err
	}
	return c.setPragma("secure_delete", string(v))
}

// UserVersion reports PRAGMA user_version, which migrations track.
func (c *Conn) UserVersion() (int, error) {
	s, err := c.pragma("user_version")
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

// SetUserVersion sets PRAGMA user_version.
func (c *Conn) SetUserVersion(v int) error {
	return c.setPragma("user_version", strconv.Itoa(v))
}

// Checkpoint runs a WAL checkpoint. It is a no-op outside WAL mode.
func (c *Conn) Checkpoint(mode CheckpointMode) error {
	switch mode {
	case CheckpointPassive, CheckpointFull, CheckpointRestart, CheckpointTruncate:
	default:
		return fmt.Errorf("sqlitedb: unknown checkpoint mode %q", mode)
	}
	return c.Exec(fmt.Sprintf("PRAGMA wal_checkpoint(%s)", mode))
}

// Vacuum rebuilds the database file.
func (c *Conn) Vacuum() error { return c.Exec("VACUUM") }

// IncrementalVacuum frees up to pages pages from the freelist, or all of
// them when pages is zero or less. It requires INCREMENTAL auto_vacuum.
func (c *Conn) IncrementalVacuum(pages int) error {
	if pages <= 0 {
		return c.Exec("PRAGMA incremental_vacuum")
	}
	return c.Exec(fmt.Sprintf("PRAGMA incremental_vacuum(%d)", pages))
}

// SQLiteVersion reports the engine's version string.
func (c *Conn) SQLiteVersion() (string, error) {
	st, err := c.Prepare("SELECT sqlite_version()")
	if err != nil {
		return "", err
	}
	defer st.Finalize()
	return rowmap.Get[string](st)
}
