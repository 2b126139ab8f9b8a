package isbn

import "strings"

// Normalize strips hyphens, spaces, and colons and upper-cases the rest.
// It is total and idempotent.
func Normalize(raw string) string {
	replacer := strings.NewReplacer("-", "", " ", "", ":", "")
	return strings.ToUpper(replacer.Replace(raw))
}

// IsValid reports whether the value, after normalization, is a
// checksum-correct ISBN-10 or ISBN-13.
func IsValid(value string) bool {
	normalized := Normalize(value)
	switch len(normalized) {
	case 10:
		return validISBN10(normalized)
	case 13:
		return validISBN13(normalized)
	default:
		return false
	}
}

func validISBN10(s string) bool {
	for i := 0; i < 9; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	last := s[9]
	if last != 'X' && (last < '0' || last > '9') {
		return false
	}
	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(s[i]-'0') * (10 - i)
	}
	var check byte
	switch digit := 11 - sum%11; digit {
	case 11:
		check = '0'
	case 10:
		check = 'X'
	default:
		check = byte('0' + digit)
	}
	return last == check
}

func validISBN13(s string) bool {
	for i := 0; i < 13; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	sum := 0
	for i := 0; i < 12; i++ {
		weight := 1
		if i%2 == 1 {
			weight = 3
		}
		sum += int(s[i]-'0') * weight
	}
	check := byte('0' + (10-sum%10)%10)
	return s[12] == check
}
