package memory

import (
	"strings"

	"github.com/townql/townql/townql/storage"
)

// Matches reports whether a document satisfies every predicate. A document
// missing a filtered field never matches, != included.
func Matches(fields map[string]any, preds []storage.Predicate) bool {
	for _, p := range preds {
		actual, ok := fields[p.Field]
		if !ok || actual == nil {
			return false
		}
		if !compare(actual, p.Op, p.Value) {
			return false
		}
	}
	return true
}

func compare(actual any, op storage.Op, expected any) bool {
	c, comparable := compareSameKind(actual, expected)
	if !comparable {
		return op == storage.OpNe
	}
	switch op {
	case storage.OpEq:
		return c == 0
	case storage.OpNe:
		return c != 0
	case storage.OpLt:
		return c < 0
	case storage.OpLte:
		return c <= 0
	case storage.OpGt:
		return c > 0
	case storage.OpGte:
		return c >= 0
	}
	return false
}

// CompareValues orders any two stored values: numbers before strings, then by
// value. It returns -1, 0 or 1.
func CompareValues(a, b any) int {
	if c, ok := compareSameKind(a, b); ok {
		return c
	}
	_, aNum := toFloat(a)
	if aNum {
		return -1
	}
	return 1
}

func compareSameKind(a, b any) (int, bool) {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.Compare(sa, sb), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch i := v.(type) {
	case float64:
		return i, true
	case float32:
		return float64(i), true
	case int:
		return float64(i), true
	case int32:
		return float64(i), true
	case int64:
		return float64(i), true
	case uint64:
		return float64(i), true
	}
	return 0, false
}
