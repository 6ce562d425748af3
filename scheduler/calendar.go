package scheduler

import "time"

// A-share session windows in seconds since midnight, endpoints inclusive.
const (
	morningOpen    = 9*3600 + 30*60
	morningClose   = 11*3600 + 30*60
	afternoonOpen  = 13 * 3600
	afternoonClose = 15 * 3600
)

// IsSessionOpen reports whether the A-share market is in a trading
// session at t: Monday through Friday, 09:30-11:30 and 13:00-15:00
// local exchange time, both endpoints inclusive.
func IsSessionOpen(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	sec := t.Hour()*3600 + t.Minute()*60 + t.Second()
	return (sec >= morningOpen && sec <= morningClose) ||
		(sec >= afternoonOpen && sec <= afternoonClose)
}
