package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed means the source could not be decoded at all.
	ErrMalformed = errors.New("malformed catalog data")
	// ErrMissingField means an entry lacks an id or a name.
	ErrMissingField = errors.New("missing required field")
	// ErrDuplicateID means two entries share an id.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrUnknownFormat means the file extension maps to no known format.
	ErrUnknownFormat = errors.New("unknown catalog format")
)

// LoadError reports why a catalog could not be built.
// Index is -1 when the failure is not tied to a single entry.
type LoadError struct {
	Source string
	Index  int
	ID     string
	Field  string
	Err    error
}

func (e *LoadError) Error() string {
	msg := "catalog"
	if e.Source != "" {
		msg += " " + e.Source
	}
	if e.Index >= 0 {
		msg += fmt.Sprintf(": entry %d", e.Index)
		if e.ID != "" {
			msg += fmt.Sprintf(" (id %q)", e.ID)
		}
	}
	if e.Field != "" {
		msg += fmt.Sprintf(": %v %q", e.Err, e.Field)
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
