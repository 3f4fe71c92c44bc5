package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	SurveyID ID
	JobID    ID
)

func (id SurveyID) String() string { return ID(id).String() }
func (id JobID) String() string    { return ID(id).String() }

// ParseSurveyID parses a string into SurveyID
func ParseSurveyID(s string) (SurveyID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("survey ID cannot be empty")
	}
	return SurveyID(s), nil
}

// ParseJobID parses a string into JobID
func ParseJobID(s string) (JobID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("job ID cannot be empty")
	}
	return JobID(s), nil
}
