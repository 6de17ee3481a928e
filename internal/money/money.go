// Package money converts between the decimal major units used on the wire and the integer
// minor units used everywhere else.
package money

import "math"

func ToMinor(major float64) int64 {
	return int64(math.Round(major * 100))
}

func ToMajor(minor int64) float64 {
	return float64(minor) / 100
}
