package timex

import (
	"database/sql"
	"fmt"
	"time"
)

// StorageLayout is the fixed-width UTC layout used for timestamps kept in
// SQLite text columns. Fixed width keeps lexical order equal to time order,
// which the updated_at index relies on.
const StorageLayout = "2006-01-02T15:04:05.000000Z"

// Format renders t in StorageLayout (UTC, microsecond precision).
func Format(t time.Time) string {
	return t.UTC().Format(StorageLayout)
}

// Parse reads a timestamp written by Format. RFC 3339 values are accepted
// too so rows written by other tools still load.
func Parse(s string) (time.Time, error) {
	if t, err := time.Parse(StorageLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// NullString converts an optional time into a nullable text column value.
func NullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: Format(*t), Valid: true}
}

// FromNullString is the inverse of NullString.
func FromNullString(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := Parse(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
