package utils

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

// UniqueSlice keeps the first occurrence of every element, preserving order.
func UniqueSlice[T comparable](slice []T) []T {
	seen := make(map[T]bool, len(slice))
	result := make([]T, 0, len(slice))
	for _, v := range slice {
		if seen[v] {
			continue
		}
		seen[v] = true
		result = append(result, v)
	}
	return result
}

// ParseFormattedDecimal accepts user-formatted numbers such as
// "1,250.5", "USDT 1,250.5" or "-20,000" and returns the decimal value.
// A string without any digit is rejected.
func ParseFormattedDecimal(value string) (decimal.Decimal, error) {
	s := strings.TrimSpace(value)
	if s != "" {
		s = strings.ReplaceAll(s, ",", "")
		s = strings.ReplaceAll(s, "USDT", "")
		s = strings.ReplaceAll(s, "usdt", "")
		s = strings.TrimSpace(s)
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}

	var b strings.Builder
	b.Grow(len(s) + 1)
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
			b.WriteRune(r)
		case r == '.':
			b.WriteRune(r)
		default:
			return decimal.Zero, errors.New("invalid value")
		}
	}
	if digits == 0 {
		return decimal.Zero, errors.New("invalid value")
	}
	clean := b.String()
	if neg {
		clean = "-" + clean
	}
	return decimal.NewFromString(clean)
}

func SplitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
