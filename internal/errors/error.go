package errors

import (
	"fmt"
	"strings"
)

// Category represents the broad kind of failure.
type Category string

const (
	CategoryRoute     Category = "route"
	CategoryTransform Category = "transform"
	CategoryHandler   Category = "handler"
	CategoryConfig    Category = "config"
	CategoryWatch     Category = "watch"
)

// Location identifies a position inside a source file in the virtual
// filesystem. Column is optional; a zero value omits it from String.
type Location struct {
	File   string
	Line   int
	Column int
}

// String renders the location the way compiler diagnostics usually do.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// DevError is a structured error carrying a stable code, category, optional
// source location, and enough context to render a readable diagnostic either
// on the terminal (Format) or as part of an HTTP response (FormatJSON).
type DevError struct {
	// Code is a unique, stable identifier (e.g. "E201").
	Code string

	// Category classifies the failure.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation.
	Detail string

	// Location is the source position the error traces back to, if any.
	Location *Location

	// Context holds source lines surrounding Location, supplied by the
	// caller (typically read from the VFS) rather than computed here.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying cause, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *DevError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *DevError) Unwrap() error {
	return e.Wrapped
}

// WithLocation attaches a source location.
func (e *DevError) WithLocation(file string, line, column int) *DevError {
	e.Location = &Location{File: file, Line: line, Column: column}
	return e
}

// WithContext attaches source lines surrounding the location, read by the
// caller from whatever VFS backs the request (the error package has no
// filesystem access of its own).
func (e *DevError) WithContext(lines []string) *DevError {
	e.Context = lines
	return e
}

// WithSuggestion adds a fix suggestion.
func (e *DevError) WithSuggestion(s string) *DevError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation.
func (e *DevError) WithDetail(d string) *DevError {
	e.Detail = d
	return e
}

// Wrap records the underlying cause.
func (e *DevError) Wrap(err error) *DevError {
	e.Wrapped = err
	return e
}

// New creates a DevError from a registered error code.
func New(code string) *DevError {
	template, ok := registry[code]
	if !ok {
		return &DevError{Code: code, Message: "unknown error"}
	}
	return &DevError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates an ad-hoc DevError with a formatted message and no code.
func Newf(category Category, format string, args ...any) *DevError {
	return &DevError{Category: category, Message: fmt.Sprintf(format, args...)}
}

// FromError wraps a plain error in a DevError under the given code, unless
// it already is one.
func FromError(err error, code string) *DevError {
	if err == nil {
		return nil
	}
	if de, ok := err.(*DevError); ok {
		return de
	}
	return New(code).Wrap(err)
}

// wrapText wraps text to the given column width, used by Format.
func wrapText(text string, width int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width {
			if current.Len() > 0 {
				lines = append(lines, current.String())
				current.Reset()
			}
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
