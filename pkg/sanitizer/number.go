package sanitizer

import "math"

func NormalizePrice(price float64) float64 {
	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0
	}
	return math.Round(price*100) / 100
}
