package mht

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Parser defaults.
const (
	// DefaultDelimiter separates the fields of a declaration line.
	DefaultDelimiter = "|"

	// DefaultMaxFields bounds the number of fields on one line.
	DefaultMaxFields = 64

	// DefaultMaxLineLength bounds the length of one line in bytes.
	DefaultMaxLineLength = 4096

	// minFields is the kind and name.
	minFields = 2

	// minLineLength keeps the scanner buffer usable.
	minLineLength = 16
)

// reservedDelimiters are characters used inside tokens.
const reservedDelimiters = ":+@#./"

// Options are the file-format constants of the parser.
type Options struct {
	// Delimiter is the single character separating fields.
	Delimiter string `yaml:"delimiter"`

	// MaxFields is the largest accepted number of fields on a line.
	MaxFields int `yaml:"max_fields"`

	// MaxLineLength is the largest accepted line length in bytes.
	MaxLineLength int `yaml:"max_line_length"`
}

// DefaultOptions returns the options for the standard "|"-delimited format.
func DefaultOptions() Options {
	return Options{
		Delimiter:     DefaultDelimiter,
		MaxFields:     DefaultMaxFields,
		MaxLineLength: DefaultMaxLineLength,
	}
}

// Validate checks the options for values the grammar cannot work with.
func (o Options) Validate() error {
	var errs []string

	if utf8.RuneCountInString(o.Delimiter) != 1 {
		errs = append(errs, fmt.Sprintf("delimiter must be exactly one character, got %q", o.Delimiter))
	} else {
		r, _ := utf8.DecodeRuneInString(o.Delimiter)
		if unicode.IsSpace(r) || r == utf8.RuneError || strings.ContainsRune(reservedDelimiters, r) {
			errs = append(errs, fmt.Sprintf("delimiter %q is reserved (whitespace or one of %q)", o.Delimiter, reservedDelimiters))
		}
	}

	if o.MaxFields < minFields {
		errs = append(errs, fmt.Sprintf("max_fields must be at least %d, got %d", minFields, o.MaxFields))
	}
	if o.MaxLineLength < minLineLength {
		errs = append(errs, fmt.Sprintf("max_line_length must be at least %d, got %d", minLineLength, o.MaxLineLength))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidOptions, strings.Join(errs, "; "))
	}
	return nil
}
