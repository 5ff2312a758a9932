package exporter

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencyCode prefixes headline amounts.
const CurrencyCode = "KES"

var printer = message.NewPrinter(language.English)

// Currency formats a headline amount with two decimals: "KES 1,200.50".
func Currency(v float64) string {
	return printer.Sprintf("%s %.2f", CurrencyCode, v)
}

// WholeCurrency formats a summary amount rounded to whole units: "KES 1,200".
func WholeCurrency(v float64) string {
	return printer.Sprintf("%s %d", CurrencyCode, int64(math.Round(v)))
}

// Amount formats a table amount with grouping and two decimals: "1,200.50".
func Amount(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// Count formats an integer with grouping: "1,024".
func Count(n int) string {
	return printer.Sprintf("%d", n)
}

// Percent formats a ratio as a percentage with two decimals: 0.125 is "12.50%".
func Percent(ratio float64) string {
	return printer.Sprintf("%.2f%%", ratio*100)
}
