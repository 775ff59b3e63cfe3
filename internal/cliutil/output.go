package cliutil

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/townql/townql/townql/catalog"
	"github.com/townql/townql/townql/engine"
	"github.com/townql/townql/townql/planner"
)

type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatPlan OutputFormat = "plan"
)

// NoInformation is printed for an empty result.
const NoInformation = `no information available. To learn more type "help"`

func ParseOutputFormat(s string) OutputFormat {
	switch OutputFormat(strings.ToLower(s)) {
	case FormatText, FormatJSON, FormatPlan:
		return OutputFormat(strings.ToLower(s))
	default:
		return FormatText
	}
}

func PrintJSON(w io.Writer, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(b))
}

// FormatResult renders rows as comma-joined town names and lookups as
// comma-joined values.
func FormatResult(res *engine.Result) string {
	if res == nil || res.Empty() {
		return NoInformation
	}
	parts := make([]string, 0, res.Len())
	if res.Kind == engine.KindScalar {
		for _, v := range res.Values {
			parts = append(parts, formatScalar(v))
		}
		return strings.Join(parts, ", ")
	}
	for _, r := range res.Rows {
		name, _ := r[catalog.TownName].(string)
		if name == "" {
			name = "<unknown>"
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, ", ")
}

func formatScalar(v any) string {
	if v == nil {
		return "None"
	}
	return fmt.Sprint(v)
}

// Wrap breaks s into lines of at most width columns on spaces. Words longer
// than width get a line of their own. width <= 0 disables wrapping.
func Wrap(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	var b strings.Builder
	lineLen := 0
	for _, word := range strings.Fields(s) {
		switch {
		case lineLen == 0:
		case lineLen+1+len(word) > width:
			b.WriteByte('\n')
			lineLen = 0
		default:
			b.WriteByte(' ')
			lineLen++
		}
		b.WriteString(word)
		lineLen += len(word)
	}
	return b.String()
}

type jsonResult struct {
	Kind   string       `json:"kind"`
	Rows   []engine.Row `json:"rows,omitempty"`
	Values []any        `json:"values,omitempty"`
	Plan   string       `json:"plan,omitempty"`
}

// WriteResult prints a query outcome in the requested format.
func WriteResult(w io.Writer, res *engine.Result, plan *planner.QueryPlan, format OutputFormat, width int) {
	switch format {
	case FormatJSON:
		out := jsonResult{Kind: res.Kind.String(), Rows: res.Rows, Values: res.Values}
		if plan != nil {
			out.Plan = plan.String()
		}
		PrintJSON(w, out)
	case FormatPlan:
		WritePlan(w, plan)
		fmt.Fprintln(w, Wrap(FormatResult(res), width))
	default:
		fmt.Fprintln(w, Wrap(FormatResult(res), width))
	}
}

// WritePlan prints a plan and how the engine will run it.
func WritePlan(w io.Writer, plan *planner.QueryPlan) {
	if plan == nil {
		return
	}
	fmt.Fprintln(w, plan.String())
	for _, step := range plan.Explain() {
		fmt.Fprintln(w, "  "+step)
	}
}
