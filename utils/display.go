// utils/display.go
package utils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// DisplayNameFromSlug converts a type id like "parallel-reasoning" into its
// display form "Parallel Reasoning".
func DisplayNameFromSlug(s string) string {
	return titleCaser.String(strings.ReplaceAll(s, "-", " "))
}
