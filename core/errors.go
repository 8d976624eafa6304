package core

import (
	"errors"
	"fmt"

	"github.com/tsawler/pdfstruct/internal/filters"
)

// ErrStructural is matched by every failure that makes the current document
// unusable: malformed syntax, a missing startxref or trailer, truncated
// streams, endobj/endstream mismatches and reference cycles.
var ErrStructural = errors.New("pdf: structural error")

var (
	ErrNoStartXRef    = structural("startxref not found")
	ErrNoTrailer      = structural("trailer not found")
	ErrReferenceCycle = structural("reference cycle")
)

// ErrUnsupportedFilter is returned when a stream uses a filter or predictor
// that is not implemented. It is a content-level condition, not structural.
var ErrUnsupportedFilter = filters.ErrUnsupported

type structuralError struct {
	msg string
}

func (e *structuralError) Error() string        { return "pdf: " + e.msg }
func (e *structuralError) Is(target error) bool { return target == ErrStructural }

func structural(msg string) error {
	return &structuralError{msg: msg}
}

// NewStructuralError returns an error with the given message that matches
// ErrStructural.
func NewStructuralError(msg string) error {
	return structural(msg)
}

// ParseError reports a syntax failure together with the construct that was
// being parsed and the byte offset where it started.
type ParseError struct {
	Construct string // e.g. "string", "array", "dictionary", "stream"
	Offset    int64
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("pdf: parsing %s at offset %d: %v", e.Construct, e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is reports every ParseError as structural.
func (e *ParseError) Is(target error) bool { return target == ErrStructural }
