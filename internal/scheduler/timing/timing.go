// Package timing works out which scheduling day a moment falls on.
//
// Days start at a configurable rollover hour in the collection's local time
// zone, and are counted from the day the collection was created.
package timing

import (
	"time"
)

const DefaultRolloverHour = 4

type Nower interface {
	Now() time.Time
}

type RealNower struct{}

func (RealNower) Now() time.Time {
	return time.Now()
}

// SchedTimingToday describes the current scheduling day.
type SchedTimingToday struct {
	Now time.Time
	// DaysElapsed is the number of rollovers since the collection was
	// created.
	DaysElapsed uint32
	// NextDayAt is the unix time of the next rollover.
	NextDayAt int64
}

// SecsUntilRollover is never negative.
func (t SchedTimingToday) SecsUntilRollover() uint32 {
	return uint32(max(t.NextDayAt-t.Now.Unix(), 0))
}

// Today computes the timing for now. createdAt and now are interpreted in
// now's location.
func Today(now, createdAt time.Time, rolloverHour int) SchedTimingToday {
	rolloverHour = min(max(rolloverHour, 0), 23)
	loc := now.Location()
	today := schedDate(now, rolloverHour)
	created := schedDate(createdAt.In(loc), rolloverHour)

	elapsed := daysBetween(created, today)
	next := time.Date(today.Year(), today.Month(), today.Day()+1, rolloverHour, 0, 0, 0, loc)
	return SchedTimingToday{
		Now:         now,
		DaysElapsed: uint32(max(elapsed, 0)),
		NextDayAt:   next.Unix(),
	}
}

// schedDate is the calendar date t belongs to once the rollover hour is
// taken into account.
func schedDate(t time.Time, rolloverHour int) time.Time {
	if t.Hour() < rolloverHour {
		t = t.AddDate(0, 0, -1)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days, ignoring DST shifts.
func daysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
