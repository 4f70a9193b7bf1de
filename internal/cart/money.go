package cart

import (
	"math"

	"github.com/dustin/go-humanize"
)

// FormatINR renders an amount as rupees with thousands separators. Whole
// amounts drop the paise.
func FormatINR(amount float64) string {
	amount = math.Round(amount*100) / 100
	if amount == math.Trunc(amount) {
		return "₹" + humanize.Comma(int64(amount))
	}
	return "₹" + humanize.CommafWithDigits(amount, 2)
}
