package utils

import "strings"

// NormalizeISBN strips separators from an ISBN and upper-cases a trailing X check digit.
func NormalizeISBN(isbn string) string {
	var cleaned strings.Builder
	for _, r := range strings.TrimSpace(isbn) {
		switch {
		case r >= '0' && r <= '9':
			cleaned.WriteRune(r)
		case r == 'x' || r == 'X':
			cleaned.WriteRune('X')
		}
	}
	return cleaned.String()
}

// ValidISBN reports whether a normalized ISBN-10 or ISBN-13 has a correct check digit.
func ValidISBN(isbn string) bool {
	switch len(isbn) {
	case 10:
		sum := 0
		for i, r := range isbn {
			var d int
			switch {
			case r >= '0' && r <= '9':
				d = int(r - '0')
			case r == 'X' && i == 9:
				d = 10
			default:
				return false
			}
			sum += d * (10 - i)
		}
		return sum%11 == 0
	case 13:
		sum := 0
		for i, r := range isbn {
			if r < '0' || r > '9' {
				return false
			}
			d := int(r - '0')
			if i%2 == 1 {
				d *= 3
			}
			sum += d
		}
		return sum%10 == 0
	}
	return false
}
