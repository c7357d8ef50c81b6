package present

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Humanize turns a snake_case identifier into space separated words with an
// upper-cased first letter each: "monthly_profit" becomes "Monthly Profit".
// The rest of every word is left as is.
func Humanize(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		if size == 0 {
			continue
		}
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// FormatFactors humanizes a list of key factors
func FormatFactors(factors []string) []string {
	out := make([]string, len(factors))
	for i, f := range factors {
		out[i] = Humanize(f)
	}
	return out
}

// FractionPercent renders a [0,1] fraction as a percentage with one decimal: 0.857 -> "85.7%"
func FractionPercent(fraction float64) string {
	return decimal.NewFromFloat(fraction).Mul(hundred).StringFixed(1) + "%"
}

// Percent renders a value already in percent with one decimal: 50 -> "50.0%"
func Percent(pct float64) string {
	return decimal.NewFromFloat(pct).StringFixed(1) + "%"
}

// Number renders a score the way the service sent it, without trailing zeros
func Number(v float64) string {
	return decimal.NewFromFloat(v).String()
}

// BarWidth clamps a percentage to what a CSS width can show
func BarWidth(pct float64) float64 {
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

var mebibyte = decimal.NewFromInt(1 << 20)

// Megabytes renders a byte count in MB with at most one decimal: 10485760 -> "10 MB"
func Megabytes(n int64) string {
	return decimal.NewFromInt(n).Div(mebibyte).Round(1).String() + " MB"
}
