package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrNeverFires is returned for expressions that match no real date, such as
// "0 0 30 2 *".
var ErrNeverFires = errors.New("cron expression never fires")

// NextRunAt returns the earliest instant strictly after now matching expr,
// with hour and minute fields read as wall-clock time in timezone. The zone
// offset is resolved on the matching date, so DST transitions between now and
// the next run are honoured. A wall time skipped by a spring-forward
// transition fires at the same wall time read with the offset in force before
// the jump, so 02:30 on a day New York skips 02:00-03:00 runs at 03:30 EDT.
// The result is in UTC.
func NextRunAt(expr, timezone string, now time.Time) (time.Time, error) {
	e, err := parseExpression(expr)
	if err != nil {
		return time.Time{}, err
	}
	loc, err := loadLocation(timezone)
	if err != nil {
		return time.Time{}, err
	}

	sched, err := cron.ParseStandard("CRON_TZ=" + loc.String() + " " + e.canonical())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidCron, err)
	}

	next := sched.Next(now)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %q", ErrNeverFires, expr)
	}
	if shifted, ok := e.gapRun(loc, now, next); ok {
		next = shifted
	}
	return next.UTC(), nil
}

// gapRun returns the earliest run strictly between now and limit whose wall
// time does not exist in loc. The cron evaluator skips such runs.
func (e expression) gapRun(loc *time.Location, now, limit time.Time) (time.Time, bool) {
	from, to := now.In(loc), limit.In(loc)
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)

	for ; !day.After(last); day = day.AddDate(0, 0, 1) {
		if !e.matchesDay(day) || !springsForward(loc, day) {
			continue
		}
		y, mo, d := day.Date()
		for h := 0; h < 24; h++ {
			if e[hourField].bits&(1<<uint(h)) == 0 {
				continue
			}
			for m := 0; m < 60; m++ {
				if e[minuteField].bits&(1<<uint(m)) == 0 {
					continue
				}
				wall := time.Date(y, mo, d, h, m, 0, 0, loc)
				if wall.Hour() == h && wall.Minute() == m {
					continue
				}
				// Read the wall time with the offset of the previous day.
				civil := time.Date(y, mo, d, h, m, 0, 0, time.UTC)
				_, before := civil.Add(-36 * time.Hour).In(loc).Zone()
				run := civil.Add(-time.Duration(before) * time.Second)
				if run.After(now) && run.Before(limit) {
					return run, true
				}
			}
		}
	}
	return time.Time{}, false
}

// matchesDay reports whether the civil date carried by day matches the
// month, day-of-month and day-of-week fields. When both day fields are
// restricted either one may match.
func (e expression) matchesDay(day time.Time) bool {
	if e[monthField].bits&(1<<uint(day.Month())) == 0 {
		return false
	}
	dom := e[domField].bits&(1<<uint(day.Day())) != 0
	dow := e[dowField].bits&(1<<uint(day.Weekday())) != 0
	if e[domField].star || e[dowField].star {
		return dom && dow
	}
	return dom || dow
}

// springsForward reports whether loc moves its clocks forward during the
// civil date carried by day.
func springsForward(loc *time.Location, day time.Time) bool {
	y, mo, d := day.Date()
	_, start := time.Date(y, mo, d, 0, 0, 0, 0, loc).Zone()
	_, end := time.Date(y, mo, d+1, 0, 0, 0, 0, loc).Zone()
	return end > start
}

// CalculateNextRunTime generates the cron expression for the selected
// schedule type and returns its next run after now. Malformed expressions and
// unknown zones fail with ErrInvalidCron or ErrInvalidTimezone.
func CalculateNextRunTime(t Type, v Values, now time.Time) (time.Time, error) {
	expr, err := GenerateCronExpression(t, v)
	if err != nil {
		return time.Time{}, err
	}
	return NextRunAt(expr, v.Location(), now)
}

// Plan is a validated schedule ready to persist.
type Plan struct {
	CronExpression string
	Timezone       string
	NextRunAt      time.Time
}

// Compute runs the whole pipeline for one trigger block configuration.
// ErrIncompleteConfig means there is nothing to schedule; any other error
// describes why the configuration was rejected.
func Compute(v Values, now time.Time) (Plan, error) {
	expr, err := GenerateCronExpression(v.ScheduleType, v)
	if err != nil {
		return Plan{}, err
	}
	tz := v.Location()
	next, err := NextRunAt(expr, tz, now)
	if err != nil {
		return Plan{}, err
	}
	return Plan{CronExpression: expr, Timezone: tz, NextRunAt: next}, nil
}
