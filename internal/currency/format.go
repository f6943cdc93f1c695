// Package currency renders rupiah amounts for display: Indonesian digit
// grouping, the Rp symbol, and no decimal places.
package currency

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.Indonesian)

// FormatIDR formats a whole-rupiah amount, e.g. 10000 -> "Rp 10.000".
// Zero formats as "Rp 0".
func FormatIDR(n int64) string {
	return printer.Sprintf("Rp %v", number.Decimal(n, number.MaxFractionDigits(0)))
}
