// Package pricing renders minor-unit amounts the way an en-US shopper
// expects to read them.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// NotAvailable is shown for unknown prices.
const NotAvailable = "N/A"

// en-US narrow symbols. Currencies not listed are prefixed with their code.
var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
	"KRW": "₩",
	"ILS": "₪",
	"VND": "₫",
	"PHP": "₱",
	"CNY": "CN¥",
	"CAD": "CA$",
	"AUD": "A$",
	"NZD": "NZ$",
	"HKD": "HK$",
	"MXN": "MX$",
	"BRL": "R$",
	"TWD": "NT$",
}

// Format renders amount (in minor units, so amount/100 major units) in the
// given currency, e.g. "$1,234.50", "€12.00" or "CHF 3.00". Fraction
// digits follow the currency's ISO 4217 rounding. A nil amount renders as
// NotAvailable.
func Format(amount *int64, code string) string {
	if amount == nil {
		return NotAvailable
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	scale := 2
	if unit, err := currency.ParseISO(code); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
	}

	value := decimal.New(*amount, -2).Round(int32(scale))
	sign := ""
	if value.IsNegative() {
		sign = "-"
		value = value.Neg()
	}

	p := message.NewPrinter(language.AmericanEnglish)
	digits := p.Sprint(number.Decimal(value.InexactFloat64(), number.Scale(scale)))

	if sym, ok := symbols[code]; ok {
		return sign + sym + digits
	}
	return sign + code + " " + digits
}

// FormatTotal renders price×quantity, or NotAvailable when price is unknown.
func FormatTotal(price *int64, quantity int, code string) string {
	if price == nil {
		return NotAvailable
	}
	total := *price * int64(quantity)
	return Format(&total, code)
}

// Cents is a convenience for callers holding a known amount.
func Cents(amount int64) *int64 {
	return &amount
}
