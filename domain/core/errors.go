package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound       = errors.New("resource not found")
	ErrSurveyNotFound = fmt.Errorf("%w: survey", ErrNotFound)
	ErrJobNotFound    = fmt.Errorf("%w: processing job", ErrNotFound)
	ErrColumnNotFound = fmt.Errorf("%w: column", ErrNotFound)

	// Table integrity errors
	ErrEmptyTable      = errors.New("table has no rows")
	ErrNoColumns       = errors.New("table has no columns")
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrRaggedColumn    = errors.New("column row count differs from table")

	// Configuration errors
	ErrUnknownMethod    = errors.New("unknown method")
	ErrUnknownRuleType  = errors.New("unknown rule type")
	ErrUnknownStatistic = errors.New("unknown statistic")
	ErrInvalidConfig    = errors.New("invalid configuration")

	// Expression errors
	ErrExpressionSyntax = errors.New("expression syntax error")
	ErrExpressionEval   = errors.New("expression evaluation error")
)

// NewNotFoundError builds a not-found error with the resource name and id
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewRaggedColumnError reports a column whose length disagrees with the table
func NewRaggedColumnError(column string, got, want int) error {
	return fmt.Errorf("%w: %q has %d rows, table has %d", ErrRaggedColumn, column, got, want)
}

// IsNotFoundError reports whether err is any not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConfigError reports whether err stems from a malformed configuration
func IsConfigError(err error) bool {
	return errors.Is(err, ErrUnknownMethod) ||
		errors.Is(err, ErrUnknownRuleType) ||
		errors.Is(err, ErrUnknownStatistic) ||
		errors.Is(err, ErrInvalidConfig)
}
