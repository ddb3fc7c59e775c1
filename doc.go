/*
Package rowmap is a typed value-mapping layer over an embedded SQLite engine.
It moves Go values into the parameters of a prepared statement and reads
result columns back into Go values, either one column at a time or for whole
structs. You write plain SQL; rowmap resolves the statement's parameter and
column names once and maps values by name or position.

# Overview

A [Statement] wraps a prepared engine [Handle]. When it is created, rowmap
resolves two name tables:

  - Parameters: names written with a ":", "$" or "@" prefix are stored
    without it and map to their 1-based slot. Anonymous "?" and numbered
    "?NNN" parameters are positional only.
  - Columns: each result column name maps to its 0-based index.

The tables never change for the life of the statement. [Statement.Reset]
clears bound values and rewinds execution but keeps them.

# Values

[Value] is a closed set of variants (Bool, Int8..Int64, Uint8..Uint64,
Float32, Float64, Text, Blob, Timestamp, Array). A nil Value is NULL.
[Statement.Bind] and [Statement.BindName] write values; [Column], [Named] and
their Nullable forms read them back as any [Scalar] type.

Unsigned integers are stored by reinterpreting their bits as int64, so a
uint64 read back as uint64 is exact. The struct bridges still reject uint64
and uint fields: values above math.MaxInt64 would be stored negative and
compare wrongly in SQL.

# Strategies

Some Go values have more than one sensible storage form. Each Statement
carries its own choice, so two statements on one connection can differ:

  - [ArrayStrategy]: [ArrayPlist] (binary property list, the default) or
    [ArrayJSON]. Arrays of any depth are stored in a single blob.
  - [DateStrategy]: [DateInteger] (Unix seconds, the default), [DateReal]
    (Julian day number) or [DateText] (RFC 3339 in UTC).

# Structs

[Encode] binds struct fields to parameters and [Decode] fills a struct from
the current [Row]:

  - Fields bind by `db:"name"` first; otherwise by field name, exactly and
    then ignoring ASCII case. `db:"-"` skips a field.
  - Nested structs are flattened; their fields map by their own names.
  - time.Time uses the DateStrategy. Types implementing
    encoding.BinaryMarshaler (such as uuid.UUID) are stored as blobs, and
    encoding.TextMarshaler types as text.
  - Slices and arrays other than []byte use the ArrayStrategy.
  - Pointers, slices and any fields are nullable.

[Query], [Get] and [Exec] combine stepping with the bridges for the common
cases.

# Error handling

Conditions caused by data or by the engine are returned as errors:
[*EngineError] for engine failures (matching [ErrBusy] and [ErrMisuse] where
applicable), [*FieldError] for bridge failures with the field path, and
sentinels such as [ErrNoRows].

Misuse of the API itself panics with a value naming the offending column,
name or index:

  - [*UnknownNameError] for a column name the statement does not have
  - [*NullError] for NULL read through a non-nullable accessor
  - [*TypeMismatchError] for a storage class that cannot produce the
    requested type
  - [ErrStaleRow] and [ErrFinalized] for rows or statements used out of
    sequence

# Engines

The sqlitedb subpackage provides the connection: opening databases,
preparing statements, transactions, migrations and pragmas. Any engine that
can implement [Handle] works with this package.
*/
package rowmap
