package seed

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/townql/townql/townql/catalog"
)

var nonDigit = regexp.MustCompile(`\D`)

// Normalize maps a raw record onto the catalog fields. Keys match
// case-insensitively (Town_Name, URL), every catalog field is present (nil when
// absent), postal codes are zero-padded and 10-digit phones are formatted.
// Keys outside the catalog are dropped.
func Normalize(raw map[string]any) map[string]any {
	byLower := make(map[string]any, len(raw))
	for k, v := range raw {
		lk := strings.ToLower(strings.TrimSpace(k))
		if _, dup := byLower[lk]; dup && k != lk {
			// an exact lower-case key wins over an alias
			continue
		}
		byLower[lk] = v
	}

	out := make(map[string]any, len(catalog.Fields()))
	for _, f := range catalog.Fields() {
		v := byLower[f.Name]
		switch f.Name {
		case catalog.PostalCode:
			v = normPostal(v)
		case catalog.OfficePhone:
			v = normPhone(v)
		case catalog.TownName, catalog.County:
			if v == nil {
				v = ""
			}
		}
		if f.Type == catalog.TypeInt {
			v = integral(v)
		}
		out[f.Name] = v
	}
	return out
}

func normPostal(v any) any {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(fmt.Sprint(integral(v)))
	if s == "" || nonDigit.MatchString(s) {
		return s
	}
	if len(s) < 5 {
		s = strings.Repeat("0", 5-len(s)) + s
	}
	return s
}

func normPhone(v any) any {
	if v == nil {
		return nil
	}
	d := nonDigit.ReplaceAllString(fmt.Sprint(integral(v)), "")
	if len(d) != 10 {
		return v
	}
	return d[0:3] + "-" + d[3:6] + "-" + d[6:10]
}

// integral turns whole floats into int64 and leaves everything else alone.
func integral(v any) any {
	if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return v
}
