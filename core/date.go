package core

import "time"

// =============================================================================
// DATE - Calendar date, day granularity (time-of-day is always ignored)
// =============================================================================

type Date struct {
	Time time.Time
}

const dateLayout = "2006-01-02"

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses "2006-01-02". An empty string is the zero Date.
func ParseDate(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Comparison
func (d Date) Before(other Date) bool    { return d.normalize().Before(other.normalize()) }
func (d Date) Equal(other Date) bool     { return d.normalize().Equal(other.normalize()) }
func (d Date) After(other Date) bool     { return d.normalize().After(other.normalize()) }
func (d Date) OnOrAfter(other Date) bool { return d.After(other) || d.Equal(other) }
func (d Date) OnOrBefore(other Date) bool { return d.Before(other) || d.Equal(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return DateOf(d.Time.AddDate(0, 0, n)) }

// Properties
func (d Date) IsZero() bool { return d.Time.IsZero() }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.normalize().Format(dateLayout)
}
