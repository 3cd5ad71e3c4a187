package schedule_test

import (
	"testing"

	"github.com/ErlanBelekov/workflow-scheduler/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type subBlocks map[string]any

func (s subBlocks) SubBlockValue(id string) any { return s[id] }

func intp(n int) *int { return &n }

func TestHasValidScheduleConfig(t *testing.T) {
	tests := []struct {
		name  string
		typ   schedule.Type
		vals  schedule.Values
		valid bool
	}{
		{"minutes with interval", schedule.TypeMinutes, schedule.Values{MinutesInterval: intp(15)}, true},
		{"minutes zero interval", schedule.TypeMinutes, schedule.Values{MinutesInterval: intp(0)}, false},
		{"minutes missing interval", schedule.TypeMinutes, schedule.Values{}, false},
		{"hourly at minute zero", schedule.TypeHourly, schedule.Values{HourlyMinute: intp(0)}, true},
		{"hourly missing minute", schedule.TypeHourly, schedule.Values{}, false},
		{"daily full time", schedule.TypeDaily, schedule.Values{DailyTime: schedule.TimeOfDay{Hour: intp(9), Minute: intp(30)}}, true},
		{"daily hour only", schedule.TypeDaily, schedule.Values{DailyTime: schedule.TimeOfDay{Hour: intp(9)}}, true},
		{"daily minute only", schedule.TypeDaily, schedule.Values{DailyTime: schedule.TimeOfDay{Minute: intp(30)}}, true},
		{"daily nothing", schedule.TypeDaily, schedule.Values{}, false},
		{"weekly complete", schedule.TypeWeekly, schedule.Values{WeeklyDay: "MON", WeeklyTime: schedule.TimeOfDay{Hour: intp(9)}}, true},
		{"weekly missing day", schedule.TypeWeekly, schedule.Values{WeeklyTime: schedule.TimeOfDay{Hour: intp(9)}}, false},
		{"weekly missing time", schedule.TypeWeekly, schedule.Values{WeeklyDay: "MON"}, false},
		{"monthly complete", schedule.TypeMonthly, schedule.Values{MonthlyDay: intp(31), MonthlyTime: schedule.TimeOfDay{Minute: intp(0)}}, true},
		{"monthly missing day", schedule.TypeMonthly, schedule.Values{MonthlyTime: schedule.TimeOfDay{Hour: intp(1)}}, false},
		{"monthly missing time", schedule.TypeMonthly, schedule.Values{MonthlyDay: intp(1)}, false},
		{"custom with cron", schedule.TypeCustom, schedule.Values{CronExpression: "0 9 * * 1-5"}, true},
		{"custom blank cron", schedule.TypeCustom, schedule.Values{CronExpression: "   "}, false},
		{"unknown type", schedule.Type("yearly"), schedule.Values{MinutesInterval: intp(5)}, false},
		{"empty type", schedule.Type(""), schedule.Values{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, schedule.HasValidScheduleConfig(tt.typ, tt.vals))
		})
	}
}

func TestValuesFromBlock_ParsesMixedValueShapes(t *testing.T) {
	v, err := schedule.ValuesFromBlock(subBlocks{
		"scheduleType":    "weekly",
		"minutesInterval": float64(10),
		"hourlyMinute":    "0",
		"dailyTime":       "07:45",
		"weeklyDay":       "Monday",
		"weeklyTime":      []any{"09", "00"},
		"monthlyDay":      "",
		"timezone":        "America/New_York",
	})
	require.NoError(t, err)

	assert.Equal(t, schedule.TypeWeekly, v.ScheduleType)
	assert.Equal(t, "Monday", v.WeeklyDay)
	h, m := v.WeeklyTime.Resolve()
	assert.Equal(t, 9, h)
	assert.Equal(t, 0, m)
	assert.Equal(t, "America/New_York", v.Location())

	// Fields of other schedule types are not read.
	assert.Nil(t, v.MinutesInterval)
	assert.Nil(t, v.HourlyMinute)
	assert.Nil(t, v.MonthlyDay)
	assert.False(t, v.DailyTime.IsSet())
}

func TestValuesFromBlock_IgnoresJunkInOtherTypes(t *testing.T) {
	v, err := schedule.ValuesFromBlock(subBlocks{
		"scheduleType":    "daily",
		"dailyTime":       "09:00",
		"minutesInterval": "every 5",
		"weeklyTime":      "noon",
		"monthlyDay":      []any{"x"},
		"hourlyMinute":    true,
	})
	require.NoError(t, err)
	assert.True(t, schedule.HasValidScheduleConfig(v.ScheduleType, v))

	h, m := v.DailyTime.Resolve()
	assert.Equal(t, 9, h)
	assert.Equal(t, 0, m)

	expr, err := schedule.GenerateCronExpression(v.ScheduleType, v)
	require.NoError(t, err)
	assert.Equal(t, "0 9 * * *", expr)
}

func TestValuesFromBlock_DropsCronUnlessCustom(t *testing.T) {
	v, err := schedule.ValuesFromBlock(subBlocks{
		"scheduleType":   "daily",
		"dailyTime":      "10:00",
		"cronExpression": "*/1 * * * *",
	})
	require.NoError(t, err)
	assert.Empty(t, v.CronExpression)

	expr, err := schedule.GenerateCronExpression(v.ScheduleType, v)
	require.NoError(t, err)
	assert.Equal(t, "0 10 * * *", expr)

	v, err = schedule.ValuesFromBlock(subBlocks{
		"scheduleType":   "custom",
		"cronExpression": " */1 * * * * ",
	})
	require.NoError(t, err)
	assert.Equal(t, "*/1 * * * *", v.CronExpression)
}

func TestValuesFromBlock_RejectsNonNumericInterval(t *testing.T) {
	_, err := schedule.ValuesFromBlock(subBlocks{
		"scheduleType":    "minutes",
		"minutesInterval": "often",
	})
	require.ErrorIs(t, err, schedule.ErrInvalidConfig)
}

func TestValuesFromBlock_RejectsMalformedTime(t *testing.T) {
	_, err := schedule.ValuesFromBlock(subBlocks{
		"scheduleType": "daily",
		"dailyTime":    "0930",
	})
	require.ErrorIs(t, err, schedule.ErrInvalidConfig)
}

func TestValues_LocationDefaultsToUTC(t *testing.T) {
	assert.Equal(t, "UTC", schedule.Values{}.Location())
	assert.Equal(t, "UTC", schedule.Values{Timezone: "  "}.Location())
}
