// Package schedule converts between the dashboard's structured
// schedule form and the 5-field cron expressions persisted with a
// rule. Only the two shapes the encoder itself produces are decoded;
// anything else is treated as a foreign or legacy expression and
// routed to a fixed default. General cron semantics are a non-goal.
package schedule

import (
	"fmt"
	"regexp"
	"strconv"
)

// Type is the schedule recurrence type.
type Type string

const (
	Daily  Type = "daily"
	Weekly Type = "weekly"
)

// Schedule is the ephemeral editing form of a cron expression. It is
// constructed by decoding a stored cron string and discarded after
// encoding; only the cron string is persisted.
type Schedule struct {
	Type   Type `json:"type"`
	Hour   int  `json:"hour"`   // 0..23
	Minute int  `json:"minute"` // 0..59
	// Weekday is 0..6 (0 = first day of week), meaningful only for
	// weekly schedules. Daily schedules carry the default weekday so
	// decode(encode(s)) round-trips structurally.
	Weekday int `json:"weekday"`
}

// Default is the fallback schedule for expressions the decoder does
// not recognize: daily at 09:00.
var Default = Schedule{Type: Daily, Hour: 9, Minute: 0, Weekday: 1}

// NewDaily returns a daily schedule at the given time.
func NewDaily(hour, minute int) Schedule {
	return Schedule{Type: Daily, Hour: hour, Minute: minute, Weekday: Default.Weekday}
}

// NewWeekly returns a weekly schedule at the given time and weekday.
func NewWeekly(hour, minute, weekday int) Schedule {
	return Schedule{Type: Weekly, Hour: hour, Minute: minute, Weekday: weekday}
}

// Encode renders the schedule as a 5-field cron expression. Fields are
// plain base-10 integers without zero-padding; day-of-month and month
// are always wildcards.
func Encode(s Schedule) string {
	if s.Type == Weekly {
		return fmt.Sprintf("%d %d * * %d", s.Minute, s.Hour, s.Weekday)
	}
	return fmt.Sprintf("%d %d * * *", s.Minute, s.Hour)
}

// The decoder's grammar: exactly the two shapes Encode produces.
// Ranges and the no-zero-padding rule are baked into the patterns, so
// a match is always a valid schedule.
const (
	minutePart = `(0|[1-9]|[1-5][0-9])`
	hourPart   = `(0|[1-9]|1[0-9]|2[0-3])`
)

var (
	dailyPattern  = regexp.MustCompile(`^` + minutePart + ` ` + hourPart + ` \* \* \*$`)
	weeklyPattern = regexp.MustCompile(`^` + minutePart + ` ` + hourPart + ` \* \* ([0-6])$`)
)

// Decode parses a cron expression into a Schedule. It recognizes only
// "M H * * *" (daily) and "M H * * D" (weekly, single digit 0-6).
// Every other shape, including legacy interval expressions such as
// "*/15 * * * *" from the old scheduling scheme, yields Default. The
// fallback is deliberate compatibility behavior, not an error: the
// schedule editor must always open, even for rules created under the
// old scheme, so Decode never fails. Interval semantics of legacy
// expressions are discarded by the fallback.
func Decode(expr string) Schedule {
	if m := weeklyPattern.FindStringSubmatch(expr); m != nil {
		minute, _ := strconv.Atoi(m[1])
		hour, _ := strconv.Atoi(m[2])
		weekday, _ := strconv.Atoi(m[3])
		return NewWeekly(hour, minute, weekday)
	}
	if m := dailyPattern.FindStringSubmatch(expr); m != nil {
		minute, _ := strconv.Atoi(m[1])
		hour, _ := strconv.Atoi(m[2])
		return NewDaily(hour, minute)
	}
	return Default
}

// Recognized reports whether Decode would parse the expression rather
// than fall back to Default. Encode(Decode(expr)) == expr holds
// exactly when Recognized(expr) is true.
func Recognized(expr string) bool {
	return weeklyPattern.MatchString(expr) || dailyPattern.MatchString(expr)
}
