// Package calendar rolls payment dates onto business days.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Convention is a business-day roll rule.
type Convention string

const (
	Unadjusted        Convention = "UNADJUSTED"
	Following         Convention = "FOLLOWING"
	ModifiedFollowing Convention = "MODIFIED_FOLLOWING"
	Preceding         Convention = "PRECEDING"
)

// ParseConvention accepts a convention name in any case. An empty name is
// Unadjusted.
func ParseConvention(s string) (Convention, error) {
	c := Convention(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case "":
		return Unadjusted, nil
	case Unadjusted, Following, ModifiedFollowing, Preceding:
		return c, nil
	default:
		return "", fmt.Errorf("calendar: unknown roll convention %q", s)
	}
}

// Calendar is a weekend calendar plus an explicit holiday set.
type Calendar struct {
	holidays map[string]struct{}
}

// New builds a calendar from holidays. Time of day is ignored.
func New(holidays ...time.Time) *Calendar {
	c := &Calendar{holidays: make(map[string]struct{}, len(holidays))}
	for _, h := range holidays {
		c.holidays[h.Format("2006-01-02")] = struct{}{}
	}
	return c
}

// IsBusinessDay checks weekends and the holiday set.
func (c *Calendar) IsBusinessDay(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	if c == nil {
		return true
	}
	_, ok := c.holidays[t.Format("2006-01-02")]
	return !ok
}

// Adjust rolls t onto a business day.
func (c *Calendar) Adjust(t time.Time, conv Convention) time.Time {
	switch conv {
	case Following:
		return c.step(t, 1)
	case Preceding:
		return c.step(t, -1)
	case ModifiedFollowing:
		adj := c.step(t, 1)
		if adj.Month() != t.Month() {
			return c.step(t, -1)
		}
		return adj
	default:
		return t
	}
}

func (c *Calendar) step(t time.Time, dir int) time.Time {
	for !c.IsBusinessDay(t) {
		t = t.AddDate(0, 0, dir)
	}
	return t
}

// AddBusinessDays advances n business days (n can be negative).
func (c *Calendar) AddBusinessDays(t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
	}
	for n != 0 {
		t = t.AddDate(0, 0, step)
		if c.IsBusinessDay(t) {
			n -= step
		}
	}
	return t
}
