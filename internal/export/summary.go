package export

import (
	"fmt"
	"strings"
)

// FormatSummary renders records as a short human-readable report:
//
//	Total labels detected: 2
//	----------------------------------------
//	  1. AV C101
//	  2. FV 12
func FormatSummary(records []Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Total labels detected: %d\n", len(records))
	sb.WriteString(strings.Repeat("-", 40))
	for i, r := range records {
		fmt.Fprintf(&sb, "\n%3d. %s", i+1, r.Text)
	}
	return sb.String()
}
