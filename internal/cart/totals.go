package cart

import (
	"github.com/shopspring/decimal"

	"shopwave/internal/models"
)

// Total sums price*quantity over items, rounded to cents.
func Total(items []models.CartItem) float64 {
	total := decimal.Zero
	for _, it := range items {
		line := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		total = total.Add(line)
	}
	return total.Round(2).InexactFloat64()
}

// ItemCount sums the quantities of items.
func ItemCount(items []models.CartItem) int {
	count := 0
	for _, it := range items {
		count += it.Quantity
	}
	return count
}
