package query

import (
	"strings"
	"testing"

	"github.com/townql/townql/townql/catalog"
	qerrors "github.com/townql/townql/townql/errors"
)

func parseAndValidate(t *testing.T, input string) (*Query, qerrors.ValidationErrors) {
	t.Helper()
	q, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse(%q): unexpected error: %v", input, err)
	}
	return Validate(q)
}

func mustValidate(t *testing.T, input string) *Query {
	t.Helper()
	q, errs := parseAndValidate(t, input)
	if len(errs) > 0 {
		t.Fatalf("Validate(%q): unexpected errors: %v", input, errs)
	}
	return q
}

func singleCondition(t *testing.T, q *Query) *Condition {
	t.Helper()
	c, ok := q.Root.(*Condition)
	if !ok {
		t.Fatalf("expected *Condition, got %T", q.Root)
	}
	return c
}

func TestValidateCanonicalFieldName(t *testing.T) {
	c := singleCondition(t, mustValidate(t, "Population > 5000"))
	if c.Field != "population" {
		t.Errorf("expected canonical population, got %s", c.Field)
	}
}

func TestValidateOrderingOperatorsOnStringFields(t *testing.T) {
	for _, f := range catalog.Fields() {
		if f.Type.Numeric() {
			continue
		}
		for _, op := range []string{"<", ">", "<=", ">="} {
			input := f.Name + " " + op + " 5"
			_, errs := parseAndValidate(t, input)
			if len(errs) != 1 {
				t.Fatalf("%s: expected one error, got %v", input, errs)
			}
			if errs[0].Kind != qerrors.ErrOperatorTypeMismatch {
				t.Errorf("%s: expected operator_type_mismatch, got %v", input, errs[0])
			}
		}
	}
}

func TestValidatePostalCodePadding(t *testing.T) {
	a := singleCondition(t, mustValidate(t, "postal_code == 5478"))
	b := singleCondition(t, mustValidate(t, "postal_code == 05478"))
	if a.Value.Str != "05478" || b.Value.Str != "05478" {
		t.Errorf("expected 05478 for both, got %q and %q", a.Value.Str, b.Value.Str)
	}
	if a.Value.Any() != b.Value.Any() {
		t.Errorf("expected identical values, got %v and %v", a.Value.Any(), b.Value.Any())
	}
}

func TestValidatePostalCodeErrors(t *testing.T) {
	tests := []struct {
		input string
		kind  qerrors.ErrorKind
		msg   string
	}{
		{"postal_code == 12345", qerrors.ErrFieldFormat, "must start with 05"},
		{"postal_code == 054011", qerrors.ErrFieldFormat, "at most 5 digits"},
		{"postal_code == abc", qerrors.ErrFieldFormat, "only digits"},
		{"postal_code != 05401", qerrors.ErrFieldFormat, "only supports == and OF"},
		{"postal_code < 05401", qerrors.ErrOperatorTypeMismatch, "numeric field"},
		{"postal_code OF 05401", qerrors.ErrValueTypeMismatch, "at least one letter"},
	}
	for _, tt := range tests {
		_, errs := parseAndValidate(t, tt.input)
		if len(errs) != 1 {
			t.Fatalf("%s: expected one error, got %v", tt.input, errs)
		}
		if errs[0].Kind != tt.kind || !strings.Contains(errs[0].Message, tt.msg) {
			t.Errorf("%s: expected %s containing %q, got %v", tt.input, tt.kind, tt.msg, errs[0])
		}
	}

	c := singleCondition(t, mustValidate(t, "postal_code OF Burlington"))
	if c.Value.Str != "Burlington" {
		t.Errorf("expected OF operand untouched, got %q", c.Value.Str)
	}
}

func TestValidatePhoneNormalization(t *testing.T) {
	inputs := []string{
		"office_phone == 8025551234",
		"office_phone == 802-555-1234",
		`office_phone == "(802) 555-1234"`,
		"office_phone == 802.555.1234",
		`office_phone == "802 555 1234"`,
	}
	for _, input := range inputs {
		c := singleCondition(t, mustValidate(t, input))
		if c.Value.Str != "802-555-1234" {
			t.Errorf("%s: expected 802-555-1234, got %q", input, c.Value.Str)
		}
	}

	_, errs := parseAndValidate(t, "office_phone == 555-1234")
	if len(errs) != 1 || errs[0].Kind != qerrors.ErrFieldFormat {
		t.Errorf("expected field_format error, got %v", errs)
	}
}

func TestValidateOfOperand(t *testing.T) {
	tests := []struct {
		input string
		msg   string
	}{
		{`altitude OF ""`, "empty value"},
		{`altitude OF "--"`, "at least one letter"},
		{"altitude OF Burlington2", "must not contain digits"},
	}
	for _, tt := range tests {
		_, errs := parseAndValidate(t, tt.input)
		if len(errs) != 1 {
			t.Fatalf("%s: expected one error, got %v", tt.input, errs)
		}
		if errs[0].Kind != qerrors.ErrValueTypeMismatch || !strings.Contains(errs[0].Message, tt.msg) {
			t.Errorf("%s: expected value_type_mismatch containing %q, got %v", tt.input, tt.msg, errs[0])
		}
	}

	c := singleCondition(t, mustValidate(t, `url OF "Avery's Gore"`))
	if c.Value.Str != "Avery's Gore" {
		t.Errorf("unexpected operand %q", c.Value.Str)
	}
}

func TestValidateGenericTypes(t *testing.T) {
	_, errs := parseAndValidate(t, "population == many")
	if len(errs) != 1 || errs[0].Kind != qerrors.ErrValueTypeMismatch {
		t.Fatalf("expected value_type_mismatch, got %v", errs)
	}

	_, errs = parseAndValidate(t, "county == 42")
	if len(errs) != 1 || errs[0].Kind != qerrors.ErrValueTypeMismatch {
		t.Fatalf("expected value_type_mismatch, got %v", errs)
	}

	c := singleCondition(t, mustValidate(t, `county == "42"`))
	if c.Value.Str != "42" {
		t.Errorf("expected quoted 42 accepted as text, got %v", c.Value)
	}

	c = singleCondition(t, mustValidate(t, "population > 5000.0"))
	if c.Value.Kind != ValueInt || c.Value.Int != 5000 {
		t.Errorf("expected integral float coerced to int, got %v", c.Value)
	}

	c = singleCondition(t, mustValidate(t, "square_mi >= 36"))
	if c.Value.Kind != ValueFloat || c.Value.Float != 36 {
		t.Errorf("expected int widened to float, got %v", c.Value)
	}
}

func TestValidateCollectsEveryError(t *testing.T) {
	_, errs := parseAndValidate(t, "county > 5 and popcorn == 3")
	if len(errs) != 2 {
		t.Fatalf("expected two errors, got %v", errs)
	}
	if errs[0].Kind != qerrors.ErrOperatorTypeMismatch || errs[1].Kind != qerrors.ErrUnknownField {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestValidateOrderByField(t *testing.T) {
	q := mustValidate(t, "county == Essex order by ALTITUDE")
	if q.OrderBy.Field != "altitude" || q.OrderBy.Direction != Asc {
		t.Errorf("unexpected order by: %+v", q.OrderBy)
	}

	_, errs := parseAndValidate(t, "county == Essex order by elevation")
	if len(errs) != 1 || errs[0].Kind != qerrors.ErrUnknownField {
		t.Errorf("expected unknown_field for order by, got %v", errs)
	}
}

func TestValidateRejectsHandBuiltShapes(t *testing.T) {
	c := func(f string, op Op, v Value) *Condition { return &Condition{Field: f, Op: op, Value: v} }
	nested := &Query{Root: &Binary{
		Left:      &Binary{Left: c("population", OpLt, IntValue(10)), Connector: ConnAnd, Right: c("altitude", OpGt, IntValue(500))},
		Connector: ConnOr,
		Right:     c("county", OpEq, StringValue("Essex")),
	}}
	_, errs := Validate(nested)
	if !qerrors.IsKind(errs.Err(), qerrors.ErrLanguageRestriction) {
		t.Errorf("expected language_restriction, got %v", errs)
	}

	withOf := &Query{Root: &Binary{
		Left:      c("population", OpOf, StringValue("Cambridge")),
		Connector: ConnAnd,
		Right:     c("county", OpEq, StringValue("Lamoille")),
	}}
	_, errs = Validate(withOf)
	if !qerrors.IsKind(errs.Err(), qerrors.ErrLanguageRestriction) {
		t.Errorf("expected language_restriction, got %v", errs)
	}
}
