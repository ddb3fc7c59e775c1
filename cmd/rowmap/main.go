// Package main provides rowmap, a small command for inspecting and querying
// SQLite databases through the rowmap value mapping.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/go-mizu/rowmap"
	"github.com/go-mizu/rowmap/sqlitedb"
)

var version = "dev"

// CLI defines the command-line interface using Kong
var CLI struct {
	Config        string         `name:"config" short:"c" help:"JSON config file" type:"path"`
	DB            *string        `name:"db" short:"d" help:"Database path (default: in-memory, env ROWMAP_PATH)"`
	ReadOnly      *bool          `name:"read-only" help:"Open the database read-only"`
	JournalMode   string         `name:"journal-mode" help:"Journal mode for file databases (WAL, DELETE, ...)"`
	BusyTimeout   *time.Duration `name:"busy-timeout" help:"How long to wait on a locked database"`
	ArrayStrategy string         `name:"array-strategy" help:"Array storage: plist or json"`
	DateStrategy  string         `name:"date-strategy" help:"Date storage: integer, real or text"`
	LogLevel      string         `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat     string         `name:"log-format" default:"text" enum:"text,json" help:"Log format"`

	// Subcommands
	Inspect InspectCmd `cmd:"" help:"Show a statement's parameters and result columns"`
	Query   QueryCmd   `cmd:"" help:"Run a query and print each row as JSON"`
	Exec    ExecCmd    `cmd:"" help:"Run a script of one or more statements"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// InspectCmd prints the name tables of a prepared statement
type InspectCmd struct {
	Query string `arg:"" help:"SQL statement"`
}

func (c *InspectCmd) Run() error {
	conn, err := openConn()
	if err != nil {
		return err
	}
	defer conn.Close()

	st, err := conn.Prepare(c.Query)
	if err != nil {
		return err
	}
	defer st.Finalize()

	return writeJSON(os.Stdout, map[string]any{
		"bind_count": st.BindCount(),
		"bindables":  st.Bindables(),
		"columns":    st.ColumnNames(),
	})
}

// QueryCmd runs a statement and prints its rows as JSON lines
type QueryCmd struct {
	Query  string   `arg:"" help:"SQL statement"`
	Params []string `name:"param" short:"p" help:"Parameter as name=value; value may be null, a number, uuid:<uuid> or text"`
}

func (c *QueryCmd) Run() error {
	conn, err := openConn()
	if err != nil {
		return err
	}
	defer conn.Close()

	st, err := conn.Prepare(c.Query)
	if err != nil {
		return err
	}
	defer st.Finalize()

	if err := bindParams(st, c.Params); err != nil {
		return err
	}
	names := st.ColumnNames()
	n := 0
	for row, err := range st.Rows() {
		if err != nil {
			return err
		}
		out := make(map[string]any, len(names))
		for i, name := range names {
			out[name] = jsonValue(row.Value(i))
		}
		if err := writeJSON(os.Stdout, out); err != nil {
			return err
		}
		n++
	}
	slog.Debug("query done", "rows", n)
	return nil
}

// ExecCmd runs a SQL script
type ExecCmd struct {
	Script string `arg:"" optional:"" help:"SQL script (reads stdin when omitted)"`
	File   string `name:"file" short:"f" type:"existingfile" help:"Read the script from a file"`
}

func (c *ExecCmd) Run() error {
	script := c.Script
	switch {
	case c.File != "":
		b, err := os.ReadFile(c.File)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		script = string(b)
	case script == "":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		script = string(b)
	}

	conn, err := openConn()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Exec(script); err != nil {
		return err
	}
	return writeJSON(os.Stdout, map[string]any{
		"changes":        conn.Changes(),
		"last_insert_id": conn.LastInsertRowID(),
	})
}

// VersionCmd prints version information
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	conn, err := sqlitedb.OpenMemory()
	if err != nil {
		return err
	}
	defer conn.Close()

	v, err := conn.SQLiteVersion()
	if err != nil {
		return err
	}
	fmt.Printf("rowmap %s (sqlite %s)\n", version, v)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("rowmap"),
		kong.Description("Inspect and query SQLite databases with typed value mapping"),
		kong.UsageOnError(),
	)
	initLogger(CLI.LogLevel, CLI.LogFormat)

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

func initLogger(level, format string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// openConn loads the config file and environment, then applies flags on top.
func openConn() (*sqlitedb.Conn, error) {
	flags, err := flagOverlay()
	if err != nil {
		return nil, err
	}
	cfg, err := sqlitedb.LoadConfig(CLI.Config, flags)
	if err != nil {
		return nil, err
	}
	cfg.Logger = slog.Default()
	return sqlitedb.Open(cfg)
}

// flagOverlay collects the connection flags that were given on the command
// line. Unset flags leave the config file and environment in charge.
func flagOverlay() (sqlitedb.Overlay, error) {
	o := sqlitedb.Overlay{
		Path:        CLI.DB,
		ReadOnly:    CLI.ReadOnly,
		BusyTimeout: CLI.BusyTimeout,
	}
	if CLI.JournalMode != "" {
		mode, err := sqlitedb.ParseJournalMode(CLI.JournalMode)
		if err != nil {
			return sqlitedb.Overlay{}, err
		}
		o.JournalMode = &mode
	}
	if CLI.ArrayStrategy != "" {
		s, err := rowmap.ParseArrayStrategy(CLI.ArrayStrategy)
		if err != nil {
			return sqlitedb.Overlay{}, err
		}
		o.ArrayStrategy = &s
	}
	if CLI.DateStrategy != "" {
		s, err := rowmap.ParseDateStrategy(CLI.DateStrategy)
		if err != nil {
			return sqlitedb.Overlay{}, err
		}
		o.DateStrategy = &s
	}
	return o, nil
}

func bindParams(st *rowmap.Statement, params []string) error {
	for _, p := range params {
		name, raw, ok := strings.Cut(p, "=")
		if !ok {
			return fmt.Errorf("param %q: expected name=value", p)
		}
		name = strings.TrimLeft(strings.TrimSpace(name), ":$@")
		if _, known := st.BindIndex(name); !known {
			return fmt.Errorf("param %q: statement has no parameter named %q", p, name)
		}
		v, err := parseParam(raw)
		if err != nil {
			return fmt.Errorf("param %q: %w", p, err)
		}
		if err := st.BindName(name, v); err != nil {
			return err
		}
	}
	return nil
}

// parseParam guesses a value's type from its text.
func parseParam(raw string) (rowmap.Value, error) {
	if raw == "null" {
		return nil, nil
	}
	if rest, ok := strings.CutPrefix(raw, "uuid:"); ok {
		id, err := uuid.Parse(rest)
		if err != nil {
			return nil, err
		}
		return rowmap.ValueOf(id)
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return rowmap.Int64(n), nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return rowmap.Float64(f), nil
	}
	return rowmap.Text(raw), nil
}

func jsonValue(v rowmap.Value) any {
	switch x := v.(type) {
	case rowmap.Int64:
		return int64(x)
	case rowmap.Float64:
		return float64(x)
	case rowmap.Text:
		return string(x)
	case rowmap.Blob:
		if len(x) == 16 {
			if id, err := uuid.FromBytes(x); err == nil && id.Variant() == uuid.RFC4122 && id.Version() != 0 {
				return id.String()
			}
		}
		return []byte(x)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
