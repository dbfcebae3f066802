package ledger

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var objectIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// ValidateResidenceID accepts 24-hex document ids and UUIDs.
func ValidateResidenceID(id ResidenceID) error {
	s := string(id)
	if objectIDPattern.MatchString(s) {
		return nil
	}
	if _, err := uuid.Parse(s); err == nil && len(s) == 36 {
		return nil
	}
	return &InputError{Field: "residence", Value: s, Err: ErrInvalidResidenceID}
}

// ValidateOptionalResidenceID treats the empty id as "all residences".
func ValidateOptionalResidenceID(id ResidenceID) error {
	if id == "" {
		return nil
	}
	return ValidateResidenceID(id)
}

// ValidateUserID requires a non-blank id without whitespace.
func ValidateUserID(id UserID) error {
	s := string(id)
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return &InputError{Field: "user", Value: s, Err: ErrInvalidUserID}
	}
	return nil
}

// NewEntryID returns a time-ordered UUIDv7 entry id.
func NewEntryID() EntryID {
	return EntryID(uuid.Must(uuid.NewV7()).String())
}

// NewResidenceID returns a fresh residence id.
func NewResidenceID() ResidenceID {
	return ResidenceID(uuid.Must(uuid.NewV7()).String())
}
