package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone rules for containers without /usr/share/zoneinfo
)

var (
	ErrInvalidCron     = errors.New("invalid cron expression")
	ErrInvalidTimezone = errors.New("invalid timezone")
)

// ValidationResult is returned instead of an error so callers can surface
// Error to the end user verbatim.
type ValidationResult struct {
	IsValid bool   `json:"isValid"`
	Error   string `json:"error,omitempty"`
}

// ValidateCronExpression checks expr against the 5-field cron grammar and
// timezone against the IANA database.
func ValidateCronExpression(expr, timezone string) ValidationResult {
	if _, err := parseExpression(expr); err != nil {
		return ValidationResult{Error: err.Error()}
	}
	if _, err := loadLocation(timezone); err != nil {
		return ValidationResult{Error: err.Error()}
	}
	return ValidationResult{IsValid: true}
}

type fieldBounds struct {
	name     string
	min, max uint
	names    map[string]uint
}

var cronFields = [5]fieldBounds{
	{name: "minute", min: 0, max: 59},
	{name: "hour", min: 0, max: 23},
	{name: "day-of-month", min: 1, max: 31},
	{name: "month", min: 1, max: 12, names: map[string]uint{
		"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
		"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
	}},
	{name: "day-of-week", min: 0, max: 7, names: map[string]uint{
		"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
	}},
}

const (
	minuteField = iota
	hourField
	domField
	monthField
	dowField
)

type field struct {
	bits uint64
	star bool
}

// expression is a parsed cron expression, one bitset per field.
type expression [5]field

func parseExpression(expr string) (expression, error) {
	var e expression

	parts := strings.Fields(expr)
	if len(parts) != len(cronFields) {
		return e, fmt.Errorf("%w: expected 5 fields (minute hour day-of-month month day-of-week), got %d", ErrInvalidCron, len(parts))
	}

	for i, part := range parts {
		f, err := parseField(part, cronFields[i])
		if err != nil {
			return e, fmt.Errorf("%w: %s field %q: %v", ErrInvalidCron, cronFields[i].name, part, err)
		}
		e[i] = f
	}

	// 7 is an alias for Sunday.
	if e[dowField].bits&(1<<7) != 0 {
		e[dowField].bits = e[dowField].bits&^(1<<7) | 1
	}
	return e, nil
}

// parseField handles comma lists of *, */N, N, A-B, A-B/N and N/N.
func parseField(s string, b fieldBounds) (field, error) {
	var f field
	for _, item := range strings.Split(s, ",") {
		if item == "" {
			return f, errors.New("empty list item")
		}

		base, stepStr, hasStep := strings.Cut(item, "/")
		var lo, hi uint
		star := false
		switch {
		case base == "*":
			lo, hi, star = b.min, b.max, true
		case strings.Contains(base, "-"):
			a, c, _ := strings.Cut(base, "-")
			var err error
			if lo, err = parseValue(a, b); err != nil {
				return f, err
			}
			if hi, err = parseValue(c, b); err != nil {
				return f, err
			}
			if lo > hi {
				return f, fmt.Errorf("range start %d is after end %d", lo, hi)
			}
		default:
			v, err := parseValue(base, b)
			if err != nil {
				return f, err
			}
			lo, hi = v, v
		}

		step := uint(1)
		if hasStep {
			n, err := strconv.ParseUint(stepStr, 10, 32)
			if err != nil || n == 0 || uint(n) > b.max {
				return f, fmt.Errorf("step %q out of range 1-%d", stepStr, b.max)
			}
			step = uint(n)
			// N/step runs from N to the end of the range.
			if !star && lo == hi {
				hi = b.max
			}
			if step > 1 {
				star = false
			}
		}

		for v := lo; v <= hi; v += step {
			f.bits |= 1 << v
		}
		f.star = f.star || star
	}
	return f, nil
}

func parseValue(s string, b fieldBounds) (uint, error) {
	if v, ok := b.names[strings.ToLower(s)]; ok {
		return v, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if uint(n) < b.min || uint(n) > b.max {
		return 0, fmt.Errorf("value %d out of range %d-%d", n, b.min, b.max)
	}
	return uint(n), nil
}

// canonical renders the expression with explicit value lists so that the
// cron evaluator only ever sees plain numbers. Unrestricted fields stay "*"
// to keep day-of-month/day-of-week matching semantics.
func (e expression) canonical() string {
	out := make([]string, len(e))
	for i, f := range e {
		if f.star {
			out[i] = "*"
			continue
		}
		var vals []string
		for v := cronFields[i].min; v <= cronFields[i].max; v++ {
			if f.bits&(1<<v) != 0 {
				vals = append(vals, strconv.FormatUint(uint64(v), 10))
			}
		}
		out[i] = strings.Join(vals, ",")
	}
	return strings.Join(out, " ")
}

func loadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}
	if name == "Local" {
		return nil, fmt.Errorf("%w: %q is not an IANA zone name", ErrInvalidTimezone, name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a known IANA zone", ErrInvalidTimezone, name)
	}
	return loc, nil
}
