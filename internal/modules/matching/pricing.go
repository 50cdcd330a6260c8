package matching

import (
	"fmt"
	"strings"
)

// currencySymbols maps ISO codes to display symbols. Unknown codes pass
// through unchanged so prices in exotic currencies still render.
var currencySymbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"CHF": "CHF",
	"CAD": "C$",
	"MAD": "MAD",
	"XAF": "FCFA",
}

// EstimatePrice is the linear booking estimate: weight times the trip's
// per-kilogram rate.
func EstimatePrice(weightKg, pricePerKg float64) float64 {
	return weightKg * pricePerKg
}

// CurrencySymbol returns the display symbol for an ISO currency code, or
// the code itself when unmapped.
func CurrencySymbol(code string) string {
	if sym, ok := currencySymbols[strings.ToUpper(code)]; ok {
		return sym
	}
	return code
}

// FormatPrice renders an amount with two decimals and its currency symbol,
// e.g. "20.00€".
func FormatPrice(amount float64, currency string) string {
	return fmt.Sprintf("%.2f%s", amount, CurrencySymbol(currency))
}
