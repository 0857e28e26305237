package market

import (
	"fmt"
	"time"
)

// DayLayout is the format of quota day keys.
const DayLayout = "2006-01-02"

// Clock supplies the day key used for every quota read and write in a unit
// of work.
type Clock interface {
	Today() string
}

// SystemClock reads the wall clock in a fixed location, so the quota day
// rolls over at local midnight of the server rather than UTC.
type SystemClock struct {
	location *time.Location
}

func NewSystemClock(timezone string) (*SystemClock, error) {
	if timezone == "" {
		return &SystemClock{location: time.Local}, nil
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid market timezone %q: %w", timezone, err)
	}
	return &SystemClock{location: location}, nil
}

func (c *SystemClock) Today() string {
	return time.Now().In(c.location).Format(DayLayout)
}

// DaysAgo returns the day key n days before today.
func (c *SystemClock) DaysAgo(n int) string {
	return time.Now().In(c.location).AddDate(0, 0, -n).Format(DayLayout)
}

// FixedClock always reports the same day.
type FixedClock string

func (c FixedClock) Today() string { return string(c) }

// ClockFunc adapts a function to Clock.
type ClockFunc func() string

func (f ClockFunc) Today() string { return f() }
