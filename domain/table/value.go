package table

import (
	"fmt"
	"time"
)

// Type defines the resolved storage type of a column
type Type string

const (
	TypeNumeric     Type = "numeric"
	TypeCategorical Type = "categorical"
	TypeBoolean     Type = "boolean"
	TypeDatetime    Type = "datetime"
)

// Value represents a single typed cell with an explicit missing marker
type Value struct {
	Type         Type       `json:"type"`
	NumericVal   *float64   `json:"numeric_val,omitempty"`
	StringVal    *string    `json:"string_val,omitempty"`
	BooleanVal   *bool      `json:"boolean_val,omitempty"`
	DatetimeVal  *time.Time `json:"datetime_val,omitempty"`
	IsMissing    bool       `json:"is_missing"`
}

// Numeric creates a numeric cell
func Numeric(n float64) Value {
	return Value{Type: TypeNumeric, NumericVal: &n}
}

// Categorical creates a categorical (string) cell
func Categorical(s string) Value {
	return Value{Type: TypeCategorical, StringVal: &s}
}

// Boolean creates a boolean cell
func Boolean(b bool) Value {
	return Value{Type: TypeBoolean, BooleanVal: &b}
}

// Datetime creates a datetime cell
func Datetime(t time.Time) Value {
	return Value{Type: TypeDatetime, DatetimeVal: &t}
}

// Missing creates a missing cell of the given column type
func Missing(t Type) Value {
	return Value{Type: t, IsMissing: true}
}

// Float returns the numeric content, false when the cell is missing or non-numeric
func (v Value) Float() (float64, bool) {
	if v.IsMissing || v.NumericVal == nil {
		return 0, false
	}
	return *v.NumericVal, true
}

// Equal compares two cells by content. Missing cells never equal anything,
// including other missing cells.
func (v Value) Equal(other Value) bool {
	if v.IsMissing || other.IsMissing {
		return false
	}
	switch {
	case v.NumericVal != nil && other.NumericVal != nil:
		return *v.NumericVal == *other.NumericVal
	case v.StringVal != nil && other.StringVal != nil:
		return *v.StringVal == *other.StringVal
	case v.BooleanVal != nil && other.BooleanVal != nil:
		return *v.BooleanVal == *other.BooleanVal
	case v.DatetimeVal != nil && other.DatetimeVal != nil:
		return v.DatetimeVal.Equal(*other.DatetimeVal)
	}
	return false
}

// Compare orders two cells: -1, 0, +1. The second return is false when the
// cells are missing or not mutually comparable.
func (v Value) Compare(other Value) (int, bool) {
	if v.IsMissing || other.IsMissing {
		return 0, false
	}
	switch {
	case v.NumericVal != nil && other.NumericVal != nil:
		a, b := *v.NumericVal, *other.NumericVal
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		}
		return 0, true
	case v.StringVal != nil && other.StringVal != nil:
		a, b := *v.StringVal, *other.StringVal
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		}
		return 0, true
	case v.DatetimeVal != nil && other.DatetimeVal != nil:
		a, b := *v.DatetimeVal, *other.DatetimeVal
		switch {
		case a.Before(b):
			return -1, true
		case a.After(b):
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// String returns a display representation of the cell
func (v Value) String() string {
	if v.IsMissing {
		return "<missing>"
	}
	switch {
	case v.NumericVal != nil:
		return fmt.Sprintf("%g", *v.NumericVal)
	case v.StringVal != nil:
		return *v.StringVal
	case v.BooleanVal != nil:
		return fmt.Sprintf("%t", *v.BooleanVal)
	case v.DatetimeVal != nil:
		return v.DatetimeVal.Format(time.RFC3339)
	}
	return "<invalid>"
}
