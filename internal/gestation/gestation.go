// Package gestation computes gestational age from the last menstrual period.
package gestation

import (
	"math"
	"time"
)

const hoursPerDay = 24

// Week returns the gestational week number for a pregnancy with the given
// last-menstrual-period date, evaluated at the given time. Elapsed days are
// rounded up, then divided by seven and floored. The absolute difference is
// used, so a future LMP date never produces a negative week; callers should
// treat implausible values as a data-quality signal, not an error.
func Week(lmp, at time.Time) int {
	diff := at.Sub(lmp)
	if diff < 0 {
		diff = -diff
	}
	days := int(math.Ceil(diff.Hours() / hoursPerDay))
	return days / 7
}

// WeekNow returns the gestational week as of the current time.
func WeekNow(lmp time.Time) int {
	return Week(lmp, time.Now())
}
