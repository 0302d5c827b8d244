package pos

import (
	"strconv"
	"strings"
)

// ParsePrice converts a sheet price cell to a number. Currency symbol and
// thousands dots are stripped and the decimal comma becomes a dot, so
// "$1.234,56" parses to 1234.56. Anything unparseable is 0, which routes
// the row down the complimentary payment path.
func ParsePrice(raw string) float64 {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// SanitizeDocument keeps letters and digits only, so "12.345.678" becomes
// "12345678" and alphanumeric passports survive intact.
func SanitizeDocument(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// matchExact returns the index of the option whose trimmed text equals
// want, or -1.
func matchExact(options []string, want string) int {
	want = strings.TrimSpace(want)
	for i, opt := range options {
		if strings.TrimSpace(opt) == want {
			return i
		}
	}
	return -1
}

// matchPartial returns the index of the first option containing want,
// case-insensitively, or -1.
func matchPartial(options []string, want string) int {
	want = strings.ToLower(strings.TrimSpace(want))
	if want == "" {
		return -1
	}
	for i, opt := range options {
		if strings.Contains(strings.ToLower(opt), want) {
			return i
		}
	}
	return -1
}

// optionLabels renders an option list for an operator-facing message.
// Matching always runs over the raw list; this is display only.
func optionLabels(options []string) string {
	return strings.Join(cleanOptions(options), " | ")
}

// cleanOptions trims whitespace and drops empty entries.
func cleanOptions(options []string) []string {
	out := make([]string, 0, len(options))
	for _, opt := range options {
		if t := strings.TrimSpace(opt); t != "" {
			out = append(out, t)
		}
	}
	return out
}
