package cliutil

import (
	"fmt"
	"io"
	"strings"

	"github.com/townql/townql/townql/catalog"
)

// PrintShellHelp describes the query language.
func PrintShellHelp(w io.Writer) {
	fmt.Fprintf(w, `
Vermont town query language

Fields (case-insensitive):
  %s

Operators:
  ==  !=  <  >  <=  >=  OF

Rules:
  - Fields, operators and keywords are case-insensitive.
  - Multi-word values require quotes (e.g., "South Burlington").
  - Only one AND or OR per query (no mixing), and OF cannot be combined with AND/OR.
  - OF and town_name lookups are case-insensitive on town_name.
  - < > <= >= only work on numeric fields (town_id, population, square_mi, altitude).

Examples:
  county == Lamoille
  county == "Grand Isle"
  altitude < 500 and population > 16000
  postal_code == 05401
  altitude OF Burlington
  population > 1000 ORDER BY population DESC LIMIT 5

Commands:
  help     Show this help
  quit     Exit the shell
`, strings.Join(catalog.Names(), ", "))
}
