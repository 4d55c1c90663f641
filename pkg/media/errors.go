package media

import (
	"errors"
	"fmt"
)

// ErrPathTraversal is returned when a reference points outside of its storage root
var ErrPathTraversal = errors.New("Path escapes its storage root")

// ErrNotConfigured is returned when a reference needs a root directory that has not been set
var ErrNotConfigured = errors.New("Media root not configured")

// ResolveError is returned when a media reference can't be turned into a local file
type ResolveError struct {
	Ref string
	Err error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("Failed to resolve media '%v': %v", e.Ref, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}
