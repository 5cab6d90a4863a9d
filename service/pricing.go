package service

import "github.com/shopspring/decimal"

var daysPerMonth = decimal.NewFromInt(30)

// RentalAmount prorates a monthly rental price linearly over days, rounded to cents.
func RentalAmount(monthlyPrice float64, days int) float64 {
	return decimal.NewFromFloat(monthlyPrice).
		Mul(decimal.NewFromInt(int64(days))).
		Div(daysPerMonth).
		Round(2).
		InexactFloat64()
}

// roundCents rounds an accumulated float total to two decimal places.
func roundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
