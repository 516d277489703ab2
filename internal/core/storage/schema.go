package storage

import (
	"regexp"
	"time"

	apperrors "github.com/nwrousell/dashboard/internal/core/errors"
)

// TimestampColumn is the required first column of every canonical table.
const TimestampColumn = "timestamp"

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidIdentifier reports whether s is safe to splice into SQL as an identifier.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// ColumnType is the logical type of a column; backends map it to their own types.
type ColumnType string

const (
	TypeTimestamp ColumnType = "timestamp" // time.Time
	TypeDuration  ColumnType = "duration"  // time.Duration, persisted as seconds
	TypeText      ColumnType = "text"      // string
	TypeFloat     ColumnType = "float"     // float64
	TypeInteger   ColumnType = "integer"   // int64
)

// Numeric reports whether values of this type can be aggregated.
func (t ColumnType) Numeric() bool {
	return t == TypeDuration || t == TypeFloat || t == TypeInteger
}

func (t ColumnType) valid() bool {
	switch t {
	case TypeTimestamp, TypeDuration, TypeText, TypeFloat, TypeInteger:
		return true
	}
	return false
}

// Column is one named, typed column.
type Column struct {
	Name string
	Type ColumnType
}

// Schema is an ordered column list. The first column must be "timestamp".
type Schema []Column

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (s Schema) Column(name string) (Column, bool) {
	for _, c := range s {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Validate checks the leading timestamp column, identifier syntax, known types
// and name uniqueness.
func (s Schema) Validate() error {
	if len(s) == 0 || s[0].Name != TimestampColumn || s[0].Type != TypeTimestamp {
		return apperrors.PreconditionFailuref("schema must start with a %q column of type timestamp", TimestampColumn)
	}
	seen := make(map[string]struct{}, len(s))
	for _, c := range s {
		if !ValidIdentifier(c.Name) {
			return apperrors.InvalidArgumentf("invalid column name %q", c.Name)
		}
		if !c.Type.valid() {
			return apperrors.InvalidArgumentf("column %q: unknown type %q", c.Name, c.Type)
		}
		if _, dup := seen[c.Name]; dup {
			return apperrors.InvalidArgumentf("duplicate column %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// Row is one record, positionally aligned with a Schema.
// A nil value stores NULL; the timestamp column is never nil.
type Row []any

// CheckRow verifies that row matches the schema's arity and Go types.
func (s Schema) CheckRow(row Row) error {
	if len(row) != len(s) {
		return apperrors.InvalidArgumentf("row has %d values, schema has %d columns", len(row), len(s))
	}
	for i, c := range s {
		v := row[i]
		if v == nil {
			if i == 0 {
				return apperrors.InvalidArgumentf("column %q must not be NULL", c.Name)
			}
			continue
		}
		if !c.Type.accepts(v) {
			return apperrors.InvalidArgumentf("column %q: %T is not a %s", c.Name, v, c.Type)
		}
	}
	return nil
}

func (t ColumnType) accepts(v any) bool {
	switch v.(type) {
	case time.Time:
		return t == TypeTimestamp
	case time.Duration:
		return t == TypeDuration
	case string:
		return t == TypeText
	case float64:
		return t == TypeFloat
	case int64:
		return t == TypeInteger
	}
	return false
}

// Timestamp returns the row's leading timestamp.
func (r Row) Timestamp() time.Time {
	if len(r) == 0 {
		return time.Time{}
	}
	ts, _ := r[0].(time.Time)
	return ts
}
