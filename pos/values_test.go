package pos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"$1.234,56", 1234.56},
		{"$1.500", 1500},
		{"1500", 1500},
		{"0", 0},
		{"", 0},
		{"gratis", 0},
		{" $ 2.000,00 ", 2000},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParsePrice(tc.in), "ParsePrice(%q)", tc.in)
	}
}

func TestSanitizeDocument(t *testing.T) {
	assert.Equal(t, "12345678", SanitizeDocument("12.345.678"))
	assert.Equal(t, "AB123", SanitizeDocument("AB-123"))
	assert.Equal(t, "12345678", SanitizeDocument(" 12 345 678 "))
	assert.Equal(t, "", SanitizeDocument("--..--"))
}

func TestMatchExact(t *testing.T) {
	options := []string{"Viernes 21hs", "Sábado 21hs ", "Domingo"}
	assert.Equal(t, 1, matchExact(options, "Sábado 21hs"))
	assert.Equal(t, -1, matchExact(options, "Sábado"))
	assert.Equal(t, -1, matchExact(options, "Lunes"))
}

func TestMatchPartial(t *testing.T) {
	options := []string{"CAMPO GENERAL", "Platea VIP"}
	assert.Equal(t, 0, matchPartial(options, "campo"))
	assert.Equal(t, 1, matchPartial(options, "vip"))
	assert.Equal(t, -1, matchPartial(options, "pullman"))
	assert.Equal(t, -1, matchPartial(options, ""))
}

// Matching runs over the raw rendered list so the matched index addresses
// the right element even when blank options are interleaved; only the
// message rendering drops blanks.
func TestMatchIndexStaysAlignedWithRawList(t *testing.T) {
	raw := []string{"", "Viernes 20hs", "  ", "Sábado 21hs"}

	assert.Equal(t, 3, matchExact(raw, "Sábado 21hs"))
	assert.Equal(t, 1, matchPartial(raw, "viernes"))
	assert.Equal(t, "Viernes 20hs | Sábado 21hs", optionLabels(raw))
}

func TestCleanOptions(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, cleanOptions([]string{" a ", "", "b", "  "}))
}
