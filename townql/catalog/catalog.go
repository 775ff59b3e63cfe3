// Package catalog holds the static field table for the municipalities collection.
//
// Every query field resolves to exactly one entry here; adding a field means adding
// one entry to the fields table and nothing else.
package catalog

import (
	"strings"
	"unicode"

	qerrors "github.com/townql/townql/townql/errors"
)

// FieldType is the declared value type of a field.
type FieldType string

const (
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeString FieldType = "string"
)

// Numeric reports whether values of this type accept ordering operators.
func (t FieldType) Numeric() bool {
	return t == TypeInt || t == TypeFloat
}

// NormalizeFunc rewrites a comparison value into the form stored in the collection.
type NormalizeFunc func(value string) (string, error)

// Field describes one queryable field.
type Field struct {
	Name string
	Type FieldType
	// Ops restricts the accepted operators; nil accepts everything legal for Type.
	Ops []string
	// Normalize is applied to comparison values (never to OF operands).
	Normalize NormalizeFunc
}

// Allows reports whether op is accepted by the field's operator restriction.
func (f Field) Allows(op string) bool {
	if f.Ops == nil {
		return true
	}
	for _, o := range f.Ops {
		if o == op {
			return true
		}
	}
	return false
}

const (
	TownID      = "town_id"
	Population  = "population"
	County      = "county"
	SquareMi    = "square_mi"
	Altitude    = "altitude"
	PostalCode  = "postal_code"
	OfficePhone = "office_phone"
	ClerkEmail  = "clerk_email"
	URL         = "url"
	TownName    = "town_name"
)

var fields = []Field{
	{Name: TownID, Type: TypeInt},
	{Name: Population, Type: TypeInt},
	{Name: County, Type: TypeString},
	{Name: SquareMi, Type: TypeFloat},
	{Name: Altitude, Type: TypeInt},
	{Name: PostalCode, Type: TypeString, Ops: []string{"==", "OF"}, Normalize: NormalizePostalCode},
	{Name: OfficePhone, Type: TypeString, Normalize: NormalizePhone},
	{Name: ClerkEmail, Type: TypeString},
	{Name: URL, Type: TypeString},
	{Name: TownName, Type: TypeString},
}

var byName = func() map[string]Field {
	m := make(map[string]Field, len(fields))
	for _, f := range fields {
		m[f.Name] = f
	}
	return m
}()

// Lookup finds a field by name, ignoring case.
func Lookup(name string) (Field, bool) {
	f, ok := byName[strings.ToLower(name)]
	return f, ok
}

// Fields returns the catalog in declaration order.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// Names returns the field names in declaration order.
func Names() []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

const postalPrefix = "05"

// NormalizePostalCode zero-pads a digit string to five characters and checks the
// Vermont prefix, so "5478" and "05478" both become "05478".
func NormalizePostalCode(value string) (string, error) {
	if value == "" || strings.IndexFunc(value, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
		return "", formatError(PostalCode, "postal code '%s' must contain only digits", value)
	}
	if len(value) > 5 {
		return "", formatError(PostalCode, "postal code '%s' must have at most 5 digits", value)
	}
	padded := strings.Repeat("0", 5-len(value)) + value
	if !strings.HasPrefix(padded, postalPrefix) {
		return "", formatError(PostalCode, "postal code '%s' is not a Vermont postal code (must start with %s)", padded, postalPrefix)
	}
	return padded, nil
}

// NormalizePhone strips every non-digit and rewrites a 10-digit number as NNN-NNN-NNNN.
func NormalizePhone(value string) (string, error) {
	var digits strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) != 10 {
		return "", formatError(OfficePhone, "office phone '%s' must contain exactly 10 digits, got %d", value, len(d))
	}
	return d[0:3] + "-" + d[3:6] + "-" + d[6:10], nil
}

func formatError(field, format string, args ...any) error {
	return qerrors.Newf(qerrors.ErrFieldFormat, format, args...).OnField(field)
}
