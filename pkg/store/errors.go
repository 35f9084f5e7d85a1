package store

import "fmt"

// MissingColumnError reports a snapshot relation that lacks a column
// the pipeline requires.
type MissingColumnError struct {
	Relation string
	Column   string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("relation %q is missing required column %q", e.Relation, e.Column)
}

// MissingRelationError reports a snapshot database without one of the
// expected relations.
type MissingRelationError struct {
	Relation string
	Err      error
}

func (e *MissingRelationError) Error() string {
	return fmt.Sprintf("relation %q unavailable: %v", e.Relation, e.Err)
}

func (e *MissingRelationError) Unwrap() error {
	return e.Err
}
