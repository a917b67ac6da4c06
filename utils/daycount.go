package utils

import (
	"fmt"
	"time"
)

// Supported day count conventions for converting dates to curve time.
const (
	Act360  = "ACT/360"
	Act365F = "ACT/365F"
	Thirty  = "30/360"
	Thirty3 = "30E/360"
)

// YearFraction computes year fraction between two dates using the specified day count convention.
// Supported conventions: ACT/360, ACT/365F, 30E/360, 30/360
func YearFraction(start, end time.Time, convention string) float64 {
	switch convention {
	case Act360:
		return Days(start, end) / 360.0
	case Thirty3, Thirty:
		// 30E/360 ISDA (Eurobond basis)
		d1 := min(start.Day(), 30)
		d2 := min(end.Day(), 30)
		y1, m1 := start.Year(), int(start.Month())
		y2, m2 := end.Year(), int(end.Month())
		return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
	default:
		return Days(start, end) / 365.0
	}
}

// CheckDayCount rejects conventions YearFraction would silently treat as ACT/365F.
func CheckDayCount(convention string) error {
	switch convention {
	case Act360, Act365F, Thirty, Thirty3:
		return nil
	}
	return fmt.Errorf("unsupported day count %q", convention)
}
