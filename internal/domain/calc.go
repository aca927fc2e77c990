package domain

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// ceilDays converts a duration to whole days, rounding up. Negative
// durations yield 0.
func ceilDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(float64(d) / float64(day)))
}

// ceilDiv divides two non-negative ints rounding up.
func ceilDiv(a, b int) int {
	if a <= 0 || b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// percent returns round(part/whole*100) clamped to [0,100], or 0 when
// whole is not positive.
func percent(part, whole float64) int {
	if whole <= 0 {
		return 0
	}
	p := int(math.Round(part / whole * 100))
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func floatPtr(f float64) *float64 {
	return &f
}
