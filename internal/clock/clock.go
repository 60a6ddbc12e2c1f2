package clock

import "time"

type Clock interface {
	Now() time.Time
}

const Date = "2006-01-02"
const DateTime = "2006-01-02 03:04:05 PM"
const Time = "15:04:05.000"

type SystemClock struct{}

func NewSystemClock() Clock {
	return &SystemClock{}
}

func (r *SystemClock) Now() time.Time {
	return time.Now()
}

// Fixed always reports the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time {
	return time.Time(f)
}
