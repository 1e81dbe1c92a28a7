package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts a signed integer string into a transaction value.
//
// An optional leading sign is accepted; everything else must be digits.
// Zero is rejected with ErrZeroValue, anything unparsable with ErrInvalidValue.
//
// Examples:
//
//	ParseAmount("10")  -> 10, nil
//	ParseAmount("-5")  -> -5, nil
//	ParseAmount(" +7") -> 7, nil
//	ParseAmount("0")   -> 0, ErrZeroValue
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidValue
	}
	digits := strings.TrimLeft(s, "+-")
	if len(s)-len(digits) > 1 || digits == "" {
		return 0, ErrInvalidValue
	}
	for _, r := range digits {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidValue
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidValue
	}
	if v == 0 {
		return 0, ErrZeroValue
	}
	return v, nil
}

// FormatAmount renders a value the way it is stored remotely.
func FormatAmount(v int64) string {
	return strconv.FormatInt(v, 10)
}
