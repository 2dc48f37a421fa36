package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HerbHall/grandline/internal/apperr"
	"github.com/HerbHall/grandline/internal/query"
)

// Payload is a decoded JSON request body. Keeping raw values lets the
// repository tell an absent key from an explicit null.
type Payload map[string]json.RawMessage

// ColumnKind selects how a writable column is decoded and validated.
type ColumnKind int

const (
	// ColText is free text. Values are trimmed and blanks are stored as NULL.
	ColText ColumnKind = iota
	// ColInt is an integer, optionally constrained to be non-negative.
	ColInt
	// ColBool is a boolean stored as 0/1.
	ColBool
	// ColEnum is a member of a closed set of strings, matched case-insensitively.
	ColEnum
	// ColRef is a foreign key to Ref.id and must point at an existing row.
	ColRef
)

// Column describes one writable column besides name.
type Column struct {
	Name        string
	Kind        ColumnKind
	Enum        []string
	Ref         string
	NonNegative bool
	// NotNull columns carry a store default; they may be omitted on create
	// but never set to null.
	NotNull bool
}

// Dependent is a table holding references to a resource. Delete refuses to
// remove a row while any dependent row points at it.
type Dependent struct {
	Table  string
	Column string
	Code   apperr.Code
}

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// Resource is the data definition that drives a Repository. Scan receives
// the columns returned by SelectColumns, in that order.
type Resource[T any] struct {
	Name       string
	Table      string
	Columns    []Column
	List       query.Spec
	Dependents []Dependent
	Scan       func(RowScanner) (T, error)
}

// SelectColumns returns id, name, every writable column, then timestamps.
func (r Resource[T]) SelectColumns() string {
	cols := make([]string, 0, len(r.Columns)+4)
	cols = append(cols, "id", "name")
	for _, c := range r.Columns {
		cols = append(cols, c.Name)
	}
	cols = append(cols, "created_at", "updated_at")
	return strings.Join(cols, ", ")
}

var jsonNull = []byte("null")

// decodeName validates the name field. Names are trimmed and must not be blank.
func decodeName(raw json.RawMessage) (string, error) {
	if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return "", apperr.Validation(apperr.CodeMissingName, "name is required")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", apperr.FieldError("name", "name must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperr.Validation(apperr.CodeMissingName, "name is required")
	}
	return s, nil
}

// decodeColumn converts a raw JSON value into the value bound for col.
// A nil return means SQL NULL.
func decodeColumn(col Column, raw json.RawMessage) (any, error) {
	if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		if col.NotNull {
			return nil, apperr.FieldError(col.Name, col.Name+" cannot be null")
		}
		return nil, nil
	}

	switch col.Kind {
	case ColText:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, apperr.FieldError(col.Name, col.Name+" must be a string")
		}
		s = strings.TrimSpace(s)
		if s == "" {
			if col.NotNull {
				return nil, apperr.FieldError(col.Name, col.Name+" cannot be empty")
			}
			return nil, nil
		}
		return s, nil

	case ColEnum:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, apperr.FieldError(col.Name, col.Name+" must be a string")
		}
		s = strings.TrimSpace(s)
		if s == "" && !col.NotNull {
			return nil, nil
		}
		for _, v := range col.Enum {
			if strings.EqualFold(s, v) {
				return v, nil
			}
		}
		return nil, apperr.FieldError(col.Name,
			fmt.Sprintf("%s must be one of: %s", col.Name, strings.Join(col.Enum, ", ")))

	case ColInt:
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, apperr.FieldError(col.Name, col.Name+" must be an integer")
		}
		if col.NonNegative && n < 0 {
			return nil, apperr.FieldError(col.Name, col.Name+" must be a non-negative integer")
		}
		return n, nil

	case ColBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, apperr.FieldError(col.Name, col.Name+" must be a boolean")
		}
		return b, nil

	case ColRef:
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil || n <= 0 {
			return nil, apperr.FieldError(col.Name, col.Name+" must be a positive integer")
		}
		return n, nil
	}
	return nil, fmt.Errorf("column %s: unknown kind %d", col.Name, col.Kind)
}
