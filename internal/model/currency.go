package model

import "github.com/shopspring/decimal"

// Decimal places per currency; anything unlisted rounds to 2.
var currencyPrecision = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"BHD": 3,
	"KWD": 3,
}

func CurrencyPrecision(currency string) int32 {
	if p, ok := currencyPrecision[currency]; ok {
		return p
	}
	return 2
}

// RoundMoney rounds half-up to the currency's configured precision.
func RoundMoney(d decimal.Decimal, currency string) decimal.Decimal {
	return d.Round(CurrencyPrecision(currency))
}
