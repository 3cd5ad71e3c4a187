package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Recurrence is one of Minutes, Hourly, Daily, Weekly, Monthly or Custom.
type Recurrence interface {
	// Cron renders the recurrence as a 5-field cron expression.
	Cron() string
	isRecurrence()
}

type Minutes struct{ Interval int }

type Hourly struct{ Minute int }

type Daily struct{ Hour, Minute int }

type Weekly struct {
	Day          time.Weekday
	Hour, Minute int
}

// Monthly fires on Day of every month that has one; months shorter than Day
// are skipped when computing the next run.
type Monthly struct{ Day, Hour, Minute int }

type Custom struct{ Expression string }

func (r Minutes) Cron() string { return fmt.Sprintf("*/%d * * * *", r.Interval) }
func (r Hourly) Cron() string  { return fmt.Sprintf("%d * * * *", r.Minute) }
func (r Daily) Cron() string   { return fmt.Sprintf("%d %d * * *", r.Minute, r.Hour) }
func (r Weekly) Cron() string  { return fmt.Sprintf("%d %d * * %d", r.Minute, r.Hour, int(r.Day)) }
func (r Monthly) Cron() string { return fmt.Sprintf("%d %d %d * *", r.Minute, r.Hour, r.Day) }
func (r Custom) Cron() string  { return r.Expression }

func (Minutes) isRecurrence() {}
func (Hourly) isRecurrence()  {}
func (Daily) isRecurrence()   {}
func (Weekly) isRecurrence()  {}
func (Monthly) isRecurrence() {}
func (Custom) isRecurrence()  {}

// NewRecurrence picks the field group selected by t out of v. Fields that
// belong to other schedule types are never read.
func NewRecurrence(t Type, v Values) (Recurrence, error) {
	if !HasValidScheduleConfig(t, v) {
		return nil, ErrIncompleteConfig
	}

	switch t {
	case TypeMinutes:
		return Minutes{Interval: *v.MinutesInterval}, nil
	case TypeHourly:
		return Hourly{Minute: *v.HourlyMinute}, nil
	case TypeDaily:
		h, m := v.DailyTime.Resolve()
		return Daily{Hour: h, Minute: m}, nil
	case TypeWeekly:
		day, err := ParseWeekday(v.WeeklyDay)
		if err != nil {
			return nil, err
		}
		h, m := v.WeeklyTime.Resolve()
		return Weekly{Day: day, Hour: h, Minute: m}, nil
	case TypeMonthly:
		h, m := v.MonthlyTime.Resolve()
		return Monthly{Day: *v.MonthlyDay, Hour: h, Minute: m}, nil
	case TypeCustom:
		return Custom{Expression: strings.TrimSpace(v.CronExpression)}, nil
	}
	return nil, ErrIncompleteConfig
}

// GenerateCronExpression returns the cron expression for the schedule type
// selected by t. Custom expressions are passed through unchanged; callers
// validate them with ValidateCronExpression.
func GenerateCronExpression(t Type, v Values) (string, error) {
	r, err := NewRecurrence(t, v)
	if err != nil {
		return "", err
	}
	return r.Cron(), nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekday accepts English day names or abbreviations in any case, and
// indexes 0-7 where both 0 and 7 mean Sunday.
func ParseWeekday(s string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if d, ok := weekdayNames[key]; ok {
		return d, nil
	}
	if n, err := strconv.Atoi(key); err == nil && n >= 0 && n <= 7 {
		return time.Weekday(n % 7), nil
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidConfig, s)
}
