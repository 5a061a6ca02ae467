package svg

import "fmt"

const (
	minute = 60
	hour   = 60 * minute
	day    = 24 * hour
	week   = 7 * day
)

// Elapsed describes how long ago ts was, relative to now (both unix
// seconds). Each unit is used only once at least two of it have passed.
func Elapsed(now, ts int64) string {
	s := now - ts
	switch {
	case s > 2*week:
		return fmt.Sprintf("%d weeks ago", s/week)
	case s > 2*day:
		return fmt.Sprintf("%d days ago", s/day)
	case s > 2*hour:
		return fmt.Sprintf("%d hours ago", s/hour)
	case s > 2*minute:
		return fmt.Sprintf("%d minutes ago", s/minute)
	default:
		return "just now"
	}
}
