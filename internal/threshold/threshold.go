// Package threshold classifies due dates into urgency tiers and recommends
// priority upgrades as deadlines approach. Everything here is pure; the
// reprioritizer decides what actually gets written.
package threshold

import (
	"math"
	"time"
)

// State is an urgency tier derived from days-until-due.
type State string

const (
	StateNormal   State = "normal"
	StateWatch    State = "watch"
	StateWarning  State = "warning"
	StateCritical State = "critical"
	StateOverdue  State = "overdue"
)

// AutoApply reports whether a tier escalates priority without human
// confirmation. Warning recommendations are surfaced but never auto-applied.
func (s State) AutoApply() bool {
	return s == StateCritical || s == StateOverdue
}

// Classify maps a due date to its urgency tier. The comparison is by
// calendar day only: both instants are truncated to midnight in now's
// location, so time-of-day never changes the tier. A nil due date is
// always normal.
func Classify(due *time.Time, now time.Time) State {
	if due == nil {
		return StateNormal
	}

	days := DaysUntil(*due, now)
	switch {
	case days < 0:
		return StateOverdue
	case days <= 1:
		return StateCritical
	case days <= 3:
		return StateWarning
	case days <= 7:
		return StateWatch
	default:
		return StateNormal
	}
}

// DaysUntil returns the whole calendar days between now and due, negative
// when due is in the past. The midnight-to-midnight gap is rounded to the
// nearest day so a DST transition (23h or 25h day) still counts as one day.
func DaysUntil(due, now time.Time) int {
	loc := now.Location()
	d := due.In(loc)
	dueMid := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	nowMid := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return int(math.Round(dueMid.Sub(nowMid).Hours() / 24))
}
