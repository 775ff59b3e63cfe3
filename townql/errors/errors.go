package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

type ErrorKind string

const (
	ErrLex                  ErrorKind = "lex"
	ErrSyntax               ErrorKind = "syntax"
	ErrUnknownField         ErrorKind = "unknown_field"
	ErrOperatorTypeMismatch ErrorKind = "operator_type_mismatch"
	ErrValueTypeMismatch    ErrorKind = "value_type_mismatch"
	ErrFieldFormat          ErrorKind = "field_format"
	ErrLanguageRestriction  ErrorKind = "language_restriction"
	ErrStore                ErrorKind = "store"
	ErrConfig               ErrorKind = "config"
	ErrSeed                 ErrorKind = "seed"
)

// Error is the single error type returned by every townql layer.
// Pos is a byte offset into the query text, or -1 when not applicable.
type Error struct {
	Kind    ErrorKind
	Message string
	Field   string
	Pos     int
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Pos: -1}
}

func Newf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: -1}
}

func Wrap(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause, Pos: -1}
}

// At returns a copy of e positioned at pos.
func (e *Error) At(pos int) *Error {
	c := *e
	c.Pos = pos
	return &c
}

// OnField returns a copy of e attributed to field.
func (e *Error) OnField(field string) *Error {
	c := *e
	c.Field = field
	return &c
}

func LexError(pos int, format string, args ...any) *Error {
	return Newf(ErrLex, format, args...).At(pos)
}

func SyntaxError(pos int, format string, args ...any) *Error {
	return Newf(ErrSyntax, format, args...).At(pos)
}

func UnknownFieldError(field string) *Error {
	return Newf(ErrUnknownField, "unknown field '%s'", field).OnField(field)
}

func RestrictionError(msg string) *Error {
	return New(ErrLanguageRestriction, msg)
}

func StoreError(msg string, cause error) *Error {
	return Wrap(ErrStore, msg, cause)
}

func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind == kind
	}
	var ve ValidationErrors
	if stderrors.As(err, &ve) {
		for _, e := range ve {
			if e.Kind == kind {
				return true
			}
		}
	}
	return false
}

// ValidationErrors collects every problem found while validating one query.
type ValidationErrors []*Error

func (ve ValidationErrors) Error() string {
	msgs := make([]string, 0, len(ve))
	for _, e := range ve {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Err returns nil when ve is empty, so callers can return it directly.
func (ve ValidationErrors) Err() error {
	if len(ve) == 0 {
		return nil
	}
	return ve
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	var ve ValidationErrors
	if stderrors.As(err, &ve) && len(ve) > 0 {
		return ve[0].Kind
	}
	return ""
}
