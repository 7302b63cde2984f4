// Package pricing holds the price scaling used by every map layer: min-max
// normalization, palette buckets and tooltip formatting.
package pricing

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PaletteSize is the number of colors a bucket indexes into.
const PaletteSize = 21

const bucketWidth = 5

var printer = message.NewPrinter(language.English)

// Normalize min-max scales values into [0,1]. When every value is equal
// the result is all zeros.
func Normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	span := max - min
	if span == 0 {
		return out
	}
	for i, v := range values {
		out[i] = (v - min) / span
	}
	return out
}

// Bucket maps a normalized price onto a palette index in [0, PaletteSize-1].
// Halves round to even.
func Bucket(normalized float64) int {
	if math.IsNaN(normalized) {
		return 0
	}
	b := int(math.RoundToEven(normalized * 100 / bucketWidth))
	if b < 0 {
		return 0
	}
	if b > PaletteSize-1 {
		return PaletteSize - 1
	}
	return b
}

// FormatPrice truncates value to a whole number and renders it with
// thousands separators and the given number of decimals, e.g. "45,123.00".
func FormatPrice(value float64, decimals int) string {
	return printer.Sprintf(fmt.Sprintf("%%.%df", decimals), math.Trunc(value))
}

// DisplayAddress strips the unit designation, keeping the text before the
// first comma.
func DisplayAddress(address string) string {
	address = strings.TrimSpace(address)
	if i := strings.Index(address, ","); i >= 0 {
		return address[:i]
	}
	return address
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median returns the middle value, averaging the two middle values for an
// even count. The input is not modified.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Extent returns the minimum and maximum of values.
func Extent(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	return min, max
}
