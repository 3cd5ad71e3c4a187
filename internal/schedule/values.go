package schedule

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrIncompleteConfig = errors.New("schedule configuration is incomplete")
	ErrInvalidConfig    = errors.New("invalid schedule configuration")
)

type Type string

const (
	TypeMinutes Type = "minutes"
	TypeHourly  Type = "hourly"
	TypeDaily   Type = "daily"
	TypeWeekly  Type = "weekly"
	TypeMonthly Type = "monthly"
	TypeCustom  Type = "custom"
)

const DefaultTimezone = "UTC"

// Sub-block ids read from a schedule trigger block.
const (
	FieldScheduleType    = "scheduleType"
	FieldMinutesInterval = "minutesInterval"
	FieldHourlyMinute    = "hourlyMinute"
	FieldDailyTime       = "dailyTime"
	FieldWeeklyDay       = "weeklyDay"
	FieldWeeklyTime      = "weeklyTime"
	FieldMonthlyDay      = "monthlyDay"
	FieldMonthlyTime     = "monthlyTime"
	FieldCronExpression  = "cronExpression"
	FieldTimezone        = "timezone"
)

// TimeOfDay is a local wall-clock time where either half may be missing.
type TimeOfDay struct {
	Hour   *int
	Minute *int
}

func (t TimeOfDay) IsSet() bool {
	return t.Hour != nil || t.Minute != nil
}

// Resolve returns hour and minute, defaulting a missing half to 0.
func (t TimeOfDay) Resolve() (hour, minute int) {
	if t.Hour != nil {
		hour = *t.Hour
	}
	if t.Minute != nil {
		minute = *t.Minute
	}
	return hour, minute
}

// Values is the flat configuration of a schedule trigger block. Only the
// group selected by ScheduleType is consulted.
type Values struct {
	ScheduleType    Type
	MinutesInterval *int
	HourlyMinute    *int
	DailyTime       TimeOfDay
	WeeklyDay       string
	WeeklyTime      TimeOfDay
	MonthlyDay      *int
	MonthlyTime     TimeOfDay
	CronExpression  string
	Timezone        string
}

// Location returns the configured IANA zone name, UTC when unset.
func (v Values) Location() string {
	if tz := strings.TrimSpace(v.Timezone); tz != "" {
		return tz
	}
	return DefaultTimezone
}

// SubBlockSource exposes the raw sub-block values of a trigger block.
// Missing sub-blocks return nil.
type SubBlockSource interface {
	SubBlockValue(id string) any
}

// ValuesFromBlock reads a trigger block's sub-blocks into Values. Only the
// fields of the selected schedule type are read, so stale values left in other
// groups never reject the block.
func ValuesFromBlock(src SubBlockSource) (Values, error) {
	v := Values{
		ScheduleType: Type(strings.TrimSpace(asString(src.SubBlockValue(FieldScheduleType)))),
		Timezone:     strings.TrimSpace(asString(src.SubBlockValue(FieldTimezone))),
	}

	var err error
	switch v.ScheduleType {
	case TypeMinutes:
		v.MinutesInterval, err = intField(src, FieldMinutesInterval)
	case TypeHourly:
		v.HourlyMinute, err = intField(src, FieldHourlyMinute)
	case TypeDaily:
		v.DailyTime, err = timeField(src, FieldDailyTime)
	case TypeWeekly:
		v.WeeklyDay = strings.TrimSpace(asString(src.SubBlockValue(FieldWeeklyDay)))
		v.WeeklyTime, err = timeField(src, FieldWeeklyTime)
	case TypeMonthly:
		if v.MonthlyDay, err = intField(src, FieldMonthlyDay); err == nil {
			v.MonthlyTime, err = timeField(src, FieldMonthlyTime)
		}
	case TypeCustom:
		v.CronExpression = strings.TrimSpace(asString(src.SubBlockValue(FieldCronExpression)))
	}
	if err != nil {
		return Values{}, err
	}
	return v, nil
}

// HasValidScheduleConfig reports whether v holds enough of the selected
// type's fields to produce a schedule. An hourly minute of 0 is valid.
func HasValidScheduleConfig(t Type, v Values) bool {
	switch t {
	case TypeMinutes:
		return v.MinutesInterval != nil && *v.MinutesInterval != 0
	case TypeHourly:
		return v.HourlyMinute != nil
	case TypeDaily:
		return v.DailyTime.IsSet()
	case TypeWeekly:
		return v.WeeklyDay != "" && v.WeeklyTime.IsSet()
	case TypeMonthly:
		return v.MonthlyDay != nil && *v.MonthlyDay != 0 && v.MonthlyTime.IsSet()
	case TypeCustom:
		return strings.TrimSpace(v.CronExpression) != ""
	default:
		return false
	}
}

func intField(src SubBlockSource, id string) (*int, error) {
	n, err := toInt(src.SubBlockValue(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, id, err)
	}
	return n, nil
}

func timeField(src SubBlockSource, id string) (TimeOfDay, error) {
	t, err := toTimeOfDay(src.SubBlockValue(id))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, id, err)
	}
	return t, nil
}

// toInt accepts JSON numbers and numeric strings. nil and blank strings are absent.
func toInt(raw any) (*int, error) {
	switch x := raw.(type) {
	case nil:
		return nil, nil
	case int:
		return &x, nil
	case int64:
		n := int(x)
		return &n, nil
	case float64:
		if x != math.Trunc(x) {
			return nil, fmt.Errorf("%v is not a whole number", x)
		}
		n := int(x)
		return &n, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", x)
		}
		return &n, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", raw)
	}
}

// toTimeOfDay accepts "HH:MM" strings and [hour, minute] pairs.
func toTimeOfDay(raw any) (TimeOfDay, error) {
	switch x := raw.(type) {
	case nil:
		return TimeOfDay{}, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return TimeOfDay{}, nil
		}
		hh, mm, found := strings.Cut(s, ":")
		if !found {
			return TimeOfDay{}, fmt.Errorf("%q is not in HH:MM form", x)
		}
		return pairToTime(hh, mm)
	case []any:
		if len(x) != 2 {
			return TimeOfDay{}, fmt.Errorf("expected [hour, minute], got %d elements", len(x))
		}
		return pairToTime(x[0], x[1])
	case []string:
		if len(x) != 2 {
			return TimeOfDay{}, fmt.Errorf("expected [hour, minute], got %d elements", len(x))
		}
		return pairToTime(x[0], x[1])
	default:
		return TimeOfDay{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

func pairToTime(hour, minute any) (TimeOfDay, error) {
	h, err := toInt(hour)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("hour: %w", err)
	}
	m, err := toInt(minute)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("minute: %w", err)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func asString(raw any) string {
	switch x := raw.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(x)
	}
}
