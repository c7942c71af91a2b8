package textutil

import (
	"fmt"
	"strings"
)

// CollapseSpace trims s and squeezes every run of whitespace inside it to one
// space.  Player names are matched after this, so pasted names with stray
// tabs or double spaces still match.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FormatPlace converts a numeric place (1, 2, 3, ...) to a string ("1st", "2nd", "3rd", ...).
func FormatPlace(place int) string {
	suffix := "th"
	if place%100 < 11 || place%100 > 13 {
		switch place % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", place, suffix)
}
