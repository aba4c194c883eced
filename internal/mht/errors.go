package mht

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by Parse matches exactly one of them
// via errors.Is.
var (
	// ErrIO is returned when the input stream cannot be opened or read.
	ErrIO = errors.New("mht: i/o error")

	// ErrSyntax is returned when a line fails tokenisation or field rules.
	ErrSyntax = errors.New("mht: syntax error")

	// ErrSemantic is returned when a line is well-formed but invalid.
	ErrSemantic = errors.New("mht: semantic error")
)

// Causes of semantic errors. A *ParseError unwraps to one of these (or to
// knx.ErrInvalidGroupAddress for malformed addresses).
var (
	ErrUnknownKind      = errors.New("mht: unknown item kind")
	ErrDuplicateItem    = errors.New("mht: duplicate item name")
	ErrUnknownType      = errors.New("mht: unknown value type")
	ErrUnknownRole      = errors.New("mht: unknown datapoint role")
	ErrTypeMismatch     = errors.New("mht: value type not supported by item kind")
	ErrDuplicateBinding = errors.New("mht: duplicate binding")
	ErrAddressConflict  = errors.New("mht: group address conflict")
	ErrUnknownGroup     = errors.New("mht: unknown group")
)

// ErrInvalidOptions is returned by Options.Validate.
var ErrInvalidOptions = errors.New("mht: invalid parser options")

// ErrorKind classifies a ParseError.
type ErrorKind int

// Parse error kinds.
const (
	KindIO ErrorKind = iota + 1
	KindSyntax
	KindSemantic
)

// String returns the lower-case name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindSyntax:
		return "syntax"
	case KindSemantic:
		return "semantic"
	default:
		return "unknown"
	}
}

// sentinel returns the error class matching k.
func (k ErrorKind) sentinel() error {
	switch k {
	case KindIO:
		return ErrIO
	case KindSyntax:
		return ErrSyntax
	case KindSemantic:
		return ErrSemantic
	default:
		return nil
	}
}

// ParseError describes the first problem found in an item file.
//
// Line is 1-based and zero for I/O errors raised before any line was read.
// FirstLine is set for duplicate definitions and address conflicts and points
// at the line that claimed the name or address first.
type ParseError struct {
	Kind      ErrorKind
	Line      int
	FirstLine int
	Msg       string
	Err       error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	prefix := "mht: " + e.Kind.String() + " error"
	if e.Line > 0 {
		prefix = fmt.Sprintf("%s on line %d", prefix, e.Line)
	}
	return prefix + ": " + e.Msg
}

// Is matches the error class of the ParseError.
func (e *ParseError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}

func syntaxError(line int, format string, args ...any) *ParseError {
	return &ParseError{Kind: KindSyntax, Line: line, Msg: fmt.Sprintf(format, args...), Err: ErrSyntax}
}

func semanticError(line int, cause error, format string, args ...any) *ParseError {
	return &ParseError{Kind: KindSemantic, Line: line, Msg: fmt.Sprintf(format, args...), Err: cause}
}

func ioError(line int, err error) *ParseError {
	return &ParseError{Kind: KindIO, Line: line, Msg: err.Error(), Err: err}
}
