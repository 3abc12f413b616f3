// Package repository holds the gorm-backed persistence layer. Methods that
// take a *gorm.DB tx participate in a caller-owned transaction; methods
// without one read through the repository's own handle.
package repository

import "github.com/shopspring/decimal"

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
