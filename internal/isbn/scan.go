package isbn

import (
	"regexp"
	"strings"
)

// pattern tolerates optional ISBN prefixes and hyphen/space grouping.
var pattern = regexp.MustCompile(`(?:ISBN(?:-1[03])?[:\s]?)?((?:97[89][-\s]?)?\d{1,5}[-\s]?\d{1,7}[-\s]?\d{1,6}[-\s]?\d{1,6}[-\s]?[\dX])`)

// ScanText finds all checksum-valid identifiers in a block of text,
// normalized and de-duplicated preserving first-seen order.
func ScanText(text string) []string {
	var found []string
	seen := make(map[string]struct{})
	for _, match := range pattern.FindAllStringSubmatch(text, -1) {
		normalized := Normalize(strings.TrimSpace(match[1]))
		if !IsValid(normalized) {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		found = append(found, normalized)
	}
	return found
}
