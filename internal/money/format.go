// Package money turns integer minor-unit amounts into display strings.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// DefaultThousandSeparator groups integer digits when the payload does not say otherwise.
	DefaultThousandSeparator = " "
	// DefaultDecimalSeparator joins the integer and fractional parts.
	DefaultDecimalSeparator = ","
	// DefaultMinorUnit is the number of fractional digits most currencies use.
	DefaultMinorUnit = 2
)

// Currency describes how amounts of one currency are displayed.
type Currency struct {
	Code              string `json:"code"`
	Symbol            string `json:"symbol"`
	MinorUnit         int    `json:"minorUnit"`
	ThousandSeparator string `json:"thousandSeparator"`
	DecimalSeparator  string `json:"decimalSeparator"`
}

// Format renders amount (minor units, hundredths) as "1 234,50 kr".
func Format(amount int64, symbol string, separators ...string) string {
	thousand, dec := DefaultThousandSeparator, DefaultDecimalSeparator
	if len(separators) > 0 {
		thousand = separators[0]
	}
	if len(separators) > 1 {
		dec = separators[1]
	}
	return format(amount, DefaultMinorUnit, symbol, thousand, dec)
}

// Format renders amount using the currency's symbol, separators and minor unit.
func (c Currency) Format(amount int64) string {
	minor := c.MinorUnit
	if minor < 0 {
		minor = DefaultMinorUnit
	}
	return format(amount, minor, c.Symbol, c.ThousandSeparator, c.DecimalSeparator)
}

// WithDefaults fills blank separators and a negative minor unit.
func (c Currency) WithDefaults() Currency {
	if c.ThousandSeparator == "" {
		c.ThousandSeparator = DefaultThousandSeparator
	}
	if c.DecimalSeparator == "" {
		c.DecimalSeparator = DefaultDecimalSeparator
	}
	if c.MinorUnit < 0 {
		c.MinorUnit = DefaultMinorUnit
	}
	return c
}

func format(amount int64, minor int, symbol, thousand, dec string) string {
	fixed := decimal.New(amount, int32(-minor)).StringFixed(int32(minor))

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	b.WriteString(groupDigits(intPart, thousand))
	if fracPart != "" {
		b.WriteString(dec)
		b.WriteString(fracPart)
	}
	b.WriteString(" ")
	b.WriteString(symbol)
	return b.String()
}

func groupDigits(digits, sep string) string {
	if len(digits) <= 3 || sep == "" {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
