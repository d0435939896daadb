package models

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// MoneyPlaces is the precision every persisted amount is rounded to. Amounts
// are computed in decimal and stored as float64, so comparisons go through
// MinorUnits.
const MoneyPlaces = 2

// RoundMoney rounds a computed amount to MoneyPlaces, half away from zero.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyPlaces)
}

// StoredAmount is the float64 form of amount written to order documents.
func StoredAmount(amount decimal.Decimal) float64 {
	return RoundMoney(amount).InexactFloat64()
}

// MinorUnits converts a major-unit amount to an integer count of minor units,
// rounding half away from zero.
func MinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart()
}

// TotalMinorUnits is the amount the payment gateway is expected to charge.
func (o Order) TotalMinorUnits() int64 {
	return MinorUnits(o.Total)
}
