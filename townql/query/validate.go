package query

import (
	"strings"
	"unicode"

	"github.com/townql/townql/townql/catalog"
	qerrors "github.com/townql/townql/townql/errors"
)

// Validate checks every condition against the field catalog and returns a
// normalized copy of q: canonical field names, coerced numeric values and
// reformatted postal codes and phone numbers. All problems are collected; the
// returned query is only meaningful when the error list is empty.
func Validate(q *Query) (*Query, qerrors.ValidationErrors) {
	var errs qerrors.ValidationErrors

	out := &Query{Limit: q.Limit}
	out.Root = validateNode(q.Root, &errs)

	if err := checkShape(q.Root); err != nil {
		errs = append(errs, err)
	}

	if q.OrderBy != nil {
		f, ok := catalog.Lookup(q.OrderBy.Field)
		if !ok {
			errs = append(errs, qerrors.UnknownFieldError(q.OrderBy.Field))
		} else {
			dir := q.OrderBy.Direction
			if dir == "" {
				dir = Asc
			}
			out.OrderBy = &OrderBy{Field: f.Name, Direction: dir}
		}
	}

	if q.Limit != nil && *q.Limit <= 0 {
		errs = append(errs, qerrors.Newf(qerrors.ErrSyntax, "LIMIT expects a positive integer, got %d", *q.Limit))
	}

	return out, errs
}

func validateNode(n Node, errs *qerrors.ValidationErrors) Node {
	switch n := n.(type) {
	case *Condition:
		c, cerrs := validateCondition(n)
		*errs = append(*errs, cerrs...)
		return c
	case *Binary:
		return &Binary{
			Left:      validateNode(n.Left, errs),
			Connector: n.Connector,
			Right:     validateNode(n.Right, errs),
		}
	default:
		*errs = append(*errs, qerrors.New(qerrors.ErrSyntax, "empty query"))
		return nil
	}
}

// checkShape re-applies the connector rules to trees that did not come from Parse.
func checkShape(root Node) *qerrors.Error {
	b, ok := root.(*Binary)
	if !ok {
		return nil
	}
	_, leftCond := b.Left.(*Condition)
	_, rightCond := b.Right.(*Condition)
	if !leftCond || !rightCond {
		return qerrors.RestrictionError("cannot use more than one AND/OR operator")
	}
	if b.Left.(*Condition).Op == OpOf || b.Right.(*Condition).Op == OpOf {
		return qerrors.RestrictionError("cannot use AND/OR with OF operator: run OF lookups as a single condition")
	}
	return nil
}

func validateCondition(c *Condition) (*Condition, []*qerrors.Error) {
	f, ok := catalog.Lookup(c.Field)
	if !ok {
		return c, []*qerrors.Error{qerrors.UnknownFieldError(c.Field).At(c.Pos)}
	}

	out := *c
	out.Field = f.Name

	if c.Op.Ordering() && !f.Type.Numeric() {
		return &out, []*qerrors.Error{mismatch(qerrors.ErrOperatorTypeMismatch, f.Name, c.Pos,
			"operator '%s' needs a numeric field, but '%s' is %s", c.Op, f.Name, f.Type)}
	}

	if c.Op == OpOf {
		if err := checkOfOperand(c.Value, f.Name); err != nil {
			return &out, []*qerrors.Error{err.At(c.Pos)}
		}
		out.Value = StringValue(strings.TrimSpace(c.Value.Str))
		return &out, nil
	}

	if !f.Allows(string(c.Op)) {
		return &out, []*qerrors.Error{mismatch(qerrors.ErrFieldFormat, f.Name, c.Pos,
			"%s only supports %s", f.Name, strings.Join(f.Ops, " and "))}
	}

	if f.Normalize != nil {
		norm, err := f.Normalize(c.Value.Raw)
		if err != nil {
			if qe, ok := err.(*qerrors.Error); ok {
				return &out, []*qerrors.Error{qe.At(c.Pos)}
			}
			return &out, []*qerrors.Error{qerrors.Wrap(qerrors.ErrFieldFormat, f.Name, err).At(c.Pos)}
		}
		out.Value = Value{Kind: ValueString, Str: norm, Raw: c.Value.Raw, Quoted: c.Value.Quoted}
		return &out, nil
	}

	v, err := coerce(f, c.Value)
	if err != nil {
		return &out, []*qerrors.Error{err.At(c.Pos)}
	}
	out.Value = v
	return &out, nil
}

// checkOfOperand enforces that an OF operand looks like a town name.
func checkOfOperand(v Value, field string) *qerrors.Error {
	text := v.Str
	if v.Kind != ValueString {
		text = v.Raw
	}
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return qerrors.New(qerrors.ErrValueTypeMismatch, "OF needs a town name, got an empty value").OnField(field)
	case strings.IndexFunc(text, unicode.IsLetter) < 0:
		return qerrors.Newf(qerrors.ErrValueTypeMismatch, "OF value '%s' must contain at least one letter", text).OnField(field)
	case strings.IndexFunc(text, unicode.IsDigit) >= 0:
		return qerrors.Newf(qerrors.ErrValueTypeMismatch, "OF value '%s' must not contain digits", text).OnField(field)
	case v.Kind != ValueString:
		return qerrors.Newf(qerrors.ErrValueTypeMismatch, "OF expects a town name, got %s value %s", v.Kind, v.Raw).OnField(field)
	}
	return nil
}

// coerce applies the generic type rule: numeric fields need numbers, text fields
// need words or quoted strings. Int fields accept integral floats.
func coerce(f catalog.Field, v Value) (Value, *qerrors.Error) {
	switch f.Type {
	case catalog.TypeInt:
		switch v.Kind {
		case ValueInt:
			return v, nil
		case ValueFloat:
			if v.Float == float64(int64(v.Float)) {
				out := IntValue(int64(v.Float))
				out.Raw = v.Raw
				return out, nil
			}
			return v, nil
		}
	case catalog.TypeFloat:
		switch v.Kind {
		case ValueFloat:
			return v, nil
		case ValueInt:
			out := FloatValue(float64(v.Int))
			out.Raw = v.Raw
			return out, nil
		}
	case catalog.TypeString:
		if v.Kind == ValueString {
			return v, nil
		}
		return v, qerrors.Newf(qerrors.ErrValueTypeMismatch,
			"field '%s' expects a text value, got number %s (quote it to compare as text)", f.Name, v.Raw).OnField(f.Name)
	}
	return v, qerrors.Newf(qerrors.ErrValueTypeMismatch,
		"field '%s' expects a numeric value, got '%s'", f.Name, v.Raw).OnField(f.Name)
}

func mismatch(kind qerrors.ErrorKind, field string, pos int, format string, args ...any) *qerrors.Error {
	return qerrors.Newf(kind, format, args...).OnField(field).At(pos)
}
