package schedule_test

import (
	"testing"
	"time"

	"github.com/ErlanBelekov/workflow-scheduler/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustZone(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestCalculateNextRunTime_MinutesAlignedToInterval(t *testing.T) {
	nows := []time.Time{
		time.Date(2026, 10, 18, 10, 7, 30, 0, time.UTC),
		time.Date(2026, 10, 18, 10, 15, 0, 0, time.UTC),
		time.Date(2026, 10, 18, 10, 57, 59, 999, time.UTC),
		time.Date(2026, 12, 31, 23, 59, 1, 0, time.UTC),
	}

	for n := 1; n <= 59; n++ {
		v := schedule.Values{MinutesInterval: intp(n)}
		for _, now := range nows {
			next, err := schedule.CalculateNextRunTime(schedule.TypeMinutes, v, now)
			require.NoError(t, err)

			gap := next.Sub(now)
			assert.Greater(t, gap, time.Duration(0), "n=%d now=%s", n, now)
			assert.LessOrEqual(t, gap, time.Duration(n)*time.Minute, "n=%d now=%s", n, now)
			assert.Zero(t, next.Minute()%n, "n=%d next=%s", n, next)
			assert.Zero(t, next.Second())
		}
	}
}

func TestCalculateNextRunTime_MinutesExample(t *testing.T) {
	now := time.Date(2026, 10, 18, 10, 7, 30, 0, time.UTC)
	next, err := schedule.CalculateNextRunTime(schedule.TypeMinutes, schedule.Values{MinutesInterval: intp(15)}, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 18, 10, 15, 0, 0, time.UTC), next)
}

func TestCalculateNextRunTime_StrictlyAfterNow(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	v := schedule.Values{DailyTime: schedule.TimeOfDay{Hour: intp(9), Minute: intp(0)}}

	next, err := schedule.CalculateNextRunTime(schedule.TypeDaily, v, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), next)
}

func TestCalculateNextRunTime_DailyBeforeAndAfterLocalTime(t *testing.T) {
	tokyo := mustZone(t, "Asia/Tokyo")
	// 09:00 in Tokyo.
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	later := schedule.Values{Timezone: "Asia/Tokyo", DailyTime: schedule.TimeOfDay{Hour: intp(10), Minute: intp(15)}}
	next, err := schedule.CalculateNextRunTime(schedule.TypeDaily, later, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 10, 15, 0, 0, tokyo).UTC(), next)
	assert.Equal(t, time.Date(2026, 3, 10, 1, 15, 0, 0, time.UTC), next)

	earlier := schedule.Values{Timezone: "Asia/Tokyo", DailyTime: schedule.TimeOfDay{Hour: intp(8), Minute: intp(30)}}
	next, err = schedule.CalculateNextRunTime(schedule.TypeDaily, earlier, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC), next)
}

func TestCalculateNextRunTime_DailyPropertyAcrossHours(t *testing.T) {
	berlin := mustZone(t, "Europe/Berlin")
	now := time.Date(2026, 6, 10, 12, 34, 0, 0, time.UTC)
	local := now.In(berlin)

	for h := 0; h < 24; h++ {
		for _, m := range []int{0, 17, 34, 59} {
			v := schedule.Values{Timezone: "Europe/Berlin", DailyTime: schedule.TimeOfDay{Hour: intp(h), Minute: intp(m)}}
			next, err := schedule.CalculateNextRunTime(schedule.TypeDaily, v, now)
			require.NoError(t, err)

			want := time.Date(local.Year(), local.Month(), local.Day(), h, m, 0, 0, berlin)
			if !want.After(now) {
				want = time.Date(local.Year(), local.Month(), local.Day()+1, h, m, 0, 0, berlin)
			}
			assert.Equal(t, want.UTC(), next, "h=%d m=%d", h, m)
		}
	}
}

func TestCalculateNextRunTime_OffsetResolvedOnTargetDate(t *testing.T) {
	// Saturday 15:00 EST; the next 09:00 is Sunday after clocks spring forward.
	now := time.Date(2026, 3, 7, 20, 0, 0, 0, time.UTC)
	v := schedule.Values{Timezone: "America/New_York", DailyTime: schedule.TimeOfDay{Hour: intp(9), Minute: intp(0)}}

	next, err := schedule.CalculateNextRunTime(schedule.TypeDaily, v, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 8, 13, 0, 0, 0, time.UTC), next)
}

func TestNextRunAt_SpringForwardGapRunsAfterTransition(t *testing.T) {
	// New York skips 02:00-03:00 on 2026-03-08; 02:30 fires at 03:30 EDT that day.
	now := time.Date(2026, 3, 7, 17, 0, 0, 0, time.UTC)

	next, err := schedule.NextRunAt("30 2 * * *", "America/New_York", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 8, 7, 30, 0, 0, time.UTC), next)

	after, err := schedule.NextRunAt("30 2 * * *", "America/New_York", next)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 9, 6, 30, 0, 0, time.UTC), after)
}

func TestNextRunAt_SpringForwardGapBerlin(t *testing.T) {
	// Berlin skips 02:00-03:00 on 2026-03-29.
	now := time.Date(2026, 3, 28, 12, 0, 0, 0, time.UTC)

	next, err := schedule.NextRunAt("15 2 * * *", "Europe/Berlin", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 29, 1, 15, 0, 0, time.UTC), next)
}

func TestNextRunAt_SpringForwardGapNoDuplicateRuns(t *testing.T) {
	// 01:50 EST; every run through the transition is distinct and increasing.
	now := time.Date(2026, 3, 8, 6, 50, 0, 0, time.UTC)
	want := []time.Time{
		time.Date(2026, 3, 8, 6, 55, 0, 0, time.UTC),
		time.Date(2026, 3, 8, 7, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 8, 7, 5, 0, 0, time.UTC),
	}
	for _, w := range want {
		next, err := schedule.NextRunAt("*/5 * * * *", "America/New_York", now)
		require.NoError(t, err)
		assert.Equal(t, w, next)
		now = next
	}
}

func TestCalculateNextRunTime_WeeklyNewYorkMonday(t *testing.T) {
	v, err := schedule.ValuesFromBlock(subBlocks{
		"scheduleType": "weekly",
		"weeklyDay":    "Monday",
		"weeklyTime":   []any{"09", "00"},
		"timezone":     "America/New_York",
	})
	require.NoError(t, err)

	expr, err := schedule.GenerateCronExpression(v.ScheduleType, v)
	require.NoError(t, err)
	assert.Equal(t, "0 9 * * 1", expr)

	// Wednesday, EDT in effect on the following Monday.
	wed := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	next, err := schedule.CalculateNextRunTime(v.ScheduleType, v, wed)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC), next)
	assert.Equal(t, time.Monday, next.In(mustZone(t, "America/New_York")).Weekday())

	// Wednesday before the November fall-back; Monday is EST.
	wed = time.Date(2026, 10, 28, 12, 0, 0, 0, time.UTC)
	next, err = schedule.CalculateNextRunTime(v.ScheduleType, v, wed)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 11, 2, 14, 0, 0, 0, time.UTC), next)
}

func TestCalculateNextRunTime_WeeklyWrapsToNextWeek(t *testing.T) {
	// Monday 10:00 UTC, after the 09:00 slot.
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	v := schedule.Values{WeeklyDay: "MON", WeeklyTime: schedule.TimeOfDay{Hour: intp(9)}}

	next, err := schedule.CalculateNextRunTime(schedule.TypeWeekly, v, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 26, 9, 0, 0, 0, time.UTC), next)
}

func TestCalculateNextRunTime_MonthlyDay31SkipsShortMonths(t *testing.T) {
	v := schedule.Values{MonthlyDay: intp(31), MonthlyTime: schedule.TimeOfDay{Hour: intp(9)}}

	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC), time.Date(2026, 5, 31, 9, 0, 0, 0, time.UTC)},
		{time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC), time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC)},
		{time.Date(2026, 7, 31, 8, 59, 0, 0, time.UTC), time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)},
		{time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC), time.Date(2026, 10, 31, 9, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		next, err := schedule.CalculateNextRunTime(schedule.TypeMonthly, v, tt.now)
		require.NoError(t, err)
		assert.Equal(t, tt.want, next, "now=%s", tt.now)
	}

	// Walk a full year: every run lands on the 31st.
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		next, err := schedule.CalculateNextRunTime(schedule.TypeMonthly, v, at)
		require.NoError(t, err)
		assert.Equal(t, 31, next.Day())
		at = next
	}
}

func TestCalculateNextRunTime_Idempotent(t *testing.T) {
	now := time.Date(2026, 10, 18, 7, 3, 11, 0, time.UTC)
	v := schedule.Values{ScheduleType: schedule.TypeCustom, CronExpression: "*/15 9-17 * * 1-5", Timezone: "Europe/London"}

	a, err := schedule.CalculateNextRunTime(schedule.TypeCustom, v, now)
	require.NoError(t, err)
	b, err := schedule.CalculateNextRunTime(schedule.TypeCustom, v, now)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNextRunAt_CustomGrammar(t *testing.T) {
	// Sunday 2026-10-18 12:00 UTC.
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		expr string
		want time.Time
	}{
		{"*/15 9-17 * * 1-5", time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)},
		{"0 9 * * 7", time.Date(2026, 10, 25, 9, 0, 0, 0, time.UTC)},
		{"30 12,18 * * *", time.Date(2026, 10, 18, 12, 30, 0, 0, time.UTC)},
		{"0 0 1 JAN *", time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"10-20/5 13 * * *", time.Date(2026, 10, 18, 13, 10, 0, 0, time.UTC)},
		{"0 8 13 * 5", time.Date(2026, 10, 23, 8, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		next, err := schedule.NextRunAt(tt.expr, "UTC", now)
		require.NoError(t, err, tt.expr)
		assert.Equal(t, tt.want, next, tt.expr)
	}
}

func TestNextRunAt_Errors(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	_, err := schedule.NextRunAt("0 0 30 2 *", "UTC", now)
	assert.ErrorIs(t, err, schedule.ErrNeverFires)

	_, err = schedule.NextRunAt("61 * * * *", "UTC", now)
	assert.ErrorIs(t, err, schedule.ErrInvalidCron)

	_, err = schedule.NextRunAt("0 9 * * *", "Nowhere/City", now)
	assert.ErrorIs(t, err, schedule.ErrInvalidTimezone)
}

func TestCompute(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	plan, err := schedule.Compute(schedule.Values{
		ScheduleType: schedule.TypeHourly,
		HourlyMinute: intp(0),
		Timezone:     "Asia/Kolkata",
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "0 * * * *", plan.CronExpression)
	assert.Equal(t, "Asia/Kolkata", plan.Timezone)
	// Kolkata is UTC+05:30, so local :00 is :30 UTC.
	assert.Equal(t, time.Date(2026, 10, 18, 12, 30, 0, 0, time.UTC), plan.NextRunAt)

	_, err = schedule.Compute(schedule.Values{ScheduleType: schedule.TypeHourly}, now)
	assert.ErrorIs(t, err, schedule.ErrIncompleteConfig)
}
