package notifications

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatAmount renders an amount with thousands separators and two decimals.
func FormatAmount(amount decimal.Decimal, currency string) string {
	return printer.Sprintf("%.2f %s", amount.Round(2).InexactFloat64(), currency)
}
