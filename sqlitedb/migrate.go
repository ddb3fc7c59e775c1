package sqlitedb

import (
	"errors"
	"fmt"
)

// ErrMigrationOrder is returned when a migration would skip a version.
var ErrMigrationOrder = errors.New("sqlitedb: migration out of order")

// NeedsMigration reports whether the schema is older than target.
func (c *Conn) NeedsMigration(target int) (bool, error) {
	v, err := c.UserVersion()
	if err != nil {
		return false, err
	}
	return v < target, nil
}

// Migrate applies a numbered schema migration. Versions start at 1 and must
// be applied in order; a version that is already applied is skipped. fn and
// the version bump run in one transaction, so a failing migration leaves
// the schema untouched.
//
// Example:
//
//	err := conn.Migrate(1, func(c *sqlitedb.Conn) error {
//	    return c.Exec(`CREATE TABLE foo (a INTEGER PRIMARY KEY, b TEXT)`)
//	})
func (c *Conn) Migrate(version int, fn func(*Conn) error) error {
	current, err := c.UserVersion()
	if err != nil {
		return err
	}
	if version <= current {
		c.log.Debug("sqlitedb: migration already applied", "version", version, "current", current)
		return nil
	}
	if version != current+1 {
		return fmt.Errorf("%w: at version %d, cannot apply %d", ErrMigrationOrder, current, version)
	}

	err = c.Transaction(func(c *Conn) error {
		if err := fn(c); err != nil {
			return err
		}
		return c.SetUserVersion(version)
	})
	if err != nil {
		return fmt.Errorf("sqlitedb: migration %d: %w", version, err)
	}
	c.log.Info("sqlitedb: migrated", "path", c.cfg.Path, "version", version)
	return nil
}
