package schedule_test

import (
	"testing"

	"github.com/ErlanBelekov/workflow-scheduler/internal/schedule"
	"github.com/stretchr/testify/assert"
)

func TestValidateCronExpression(t *testing.T) {
	tests := []struct {
		expr    string
		tz      string
		valid   bool
		errPart string
	}{
		{"*/15 9-17 * * 1-5", "UTC", true, ""},
		{"0 0 * * 7", "UTC", true, ""},
		{"0 9 * * MON-FRI", "Europe/Berlin", true, ""},
		{"30 2 1,15 JAN,jul *", "", true, ""},
		{"5/10 * * * *", "UTC", true, ""},
		{"0-30/10 */2 1-31 1-12 0-7", "Asia/Tokyo", true, ""},
		{"99 * * * *", "UTC", false, "minute"},
		{"* 24 * * *", "UTC", false, "hour"},
		{"* * 0 * *", "UTC", false, "day-of-month"},
		{"* * 32 * *", "UTC", false, "day-of-month"},
		{"* * * 13 *", "UTC", false, "month"},
		{"* * * * 8", "UTC", false, "day-of-week"},
		{"* * * *", "UTC", false, "expected 5 fields"},
		{"* * * * * *", "UTC", false, "expected 5 fields"},
		{"", "UTC", false, "expected 5 fields"},
		{"*/0 * * * *", "UTC", false, "step"},
		{"*/60 * * * *", "UTC", false, "step"},
		{"30-10 * * * *", "UTC", false, "range start"},
		{"1,,2 * * * *", "UTC", false, "empty list item"},
		{"a * * * *", "UTC", false, "not a number"},
		{"@daily", "UTC", false, "expected 5 fields"},
		{"0 9 * * 1", "Mars/Olympus_Mons", false, "timezone"},
		{"0 9 * * 1", "Local", false, "timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.expr+"|"+tt.tz, func(t *testing.T) {
			res := schedule.ValidateCronExpression(tt.expr, tt.tz)
			assert.Equal(t, tt.valid, res.IsValid)
			if tt.valid {
				assert.Empty(t, res.Error)
				return
			}
			assert.Contains(t, res.Error, tt.errPart)
		})
	}
}

// Every generated expression must pass validation.
func TestGenerateThenValidate_RoundTrip(t *testing.T) {
	inputs := []struct {
		typ  schedule.Type
		vals schedule.Values
	}{
		{schedule.TypeHourly, schedule.Values{HourlyMinute: intp(0)}},
		{schedule.TypeDaily, schedule.Values{DailyTime: schedule.TimeOfDay{Hour: intp(23), Minute: intp(59)}}},
		{schedule.TypeWeekly, schedule.Values{WeeklyDay: "sun", WeeklyTime: schedule.TimeOfDay{Minute: intp(1)}}},
		{schedule.TypeMonthly, schedule.Values{MonthlyDay: intp(31), MonthlyTime: schedule.TimeOfDay{Hour: intp(0)}}},
		{schedule.TypeCustom, schedule.Values{CronExpression: "15 3 * * 1,3,5"}},
	}
	for n := 1; n <= 59; n++ {
		inputs = append(inputs, struct {
			typ  schedule.Type
			vals schedule.Values
		}{schedule.TypeMinutes, schedule.Values{MinutesInterval: intp(n)}})
	}
	for h := 0; h < 24; h++ {
		inputs = append(inputs, struct {
			typ  schedule.Type
			vals schedule.Values
		}{schedule.TypeDaily, schedule.Values{DailyTime: schedule.TimeOfDay{Hour: intp(h), Minute: intp(h * 2)}}})
	}

	for _, in := range inputs {
		expr, err := schedule.GenerateCronExpression(in.typ, in.vals)
		if !assert.NoError(t, err) {
			continue
		}
		res := schedule.ValidateCronExpression(expr, "America/New_York")
		assert.True(t, res.IsValid, "%s: %s", expr, res.Error)
	}
}

func TestGenerateThenValidate_MalformedCustom(t *testing.T) {
	expr, err := schedule.GenerateCronExpression(schedule.TypeCustom, schedule.Values{CronExpression: "every day at nine"})
	assert.NoError(t, err)
	res := schedule.ValidateCronExpression(expr, "UTC")
	assert.False(t, res.IsValid)
	assert.NotEmpty(t, res.Error)
}
