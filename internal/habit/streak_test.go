package habit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func d(s string) Date {
	date, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return date
}

func dp(s string) *Date {
	date := d(s)
	return &date
}

func TestAdvanceDaily(t *testing.T) {
	// 2024-03-13 is a Wednesday
	today := d("2024-03-13")

	tests := []struct {
		name     string
		last     *Date
		schedule Schedule
		want     StreakDecision
	}{
		{"no previous completion", nil, nil, Reset},
		{"completed yesterday", dp("2024-03-12"), nil, Increment},
		{"completed today", dp("2024-03-13"), nil, Hold},
		{"completed two days ago", dp("2024-03-11"), nil, Reset},
		{"completed after today", dp("2024-03-14"), nil, Hold},
		{"completed a year ago", dp("2023-03-13"), nil, Reset},
		{
			name:     "previous scheduled day skips unscheduled days",
			last:     dp("2024-03-11"),
			schedule: Schedule{"monday": true, "wednesday": true, "friday": true},
			want:     Increment,
		},
		{
			name:     "missed previous scheduled day",
			last:     dp("2024-03-08"),
			schedule: Schedule{"monday": true, "wednesday": true, "friday": true},
			want:     Reset,
		},
		{
			name:     "weekly schedule of one day",
			last:     dp("2024-03-06"),
			schedule: Schedule{"wednesday": true},
			want:     Increment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Advance(tt.last, today, Daily, tt.schedule))
		})
	}
}

func TestAdvanceWeekly(t *testing.T) {
	// Sunday 2024-03-17 closes the ISO week that started Monday 2024-03-11
	tests := []struct {
		name  string
		last  string
		today string
		want  StreakDecision
	}{
		{"same week", "2024-03-11", "2024-03-17", Hold},
		{"previous week", "2024-03-10", "2024-03-11", Increment},
		{"previous week start", "2024-03-04", "2024-03-17", Increment},
		{"two weeks ago", "2024-03-03", "2024-03-11", Reset},
		{"across year boundary", "2023-12-27", "2024-01-02", Increment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Advance(dp(tt.last), d(tt.today), Weekly, nil))
		})
	}
}

func TestAdvanceMonthly(t *testing.T) {
	tests := []struct {
		name  string
		last  string
		today string
		want  StreakDecision
	}{
		{"same month", "2024-03-01", "2024-03-31", Hold},
		{"previous month", "2024-02-29", "2024-03-01", Increment},
		{"january after december", "2023-12-01", "2024-01-31", Increment},
		{"skipped a month", "2024-01-31", "2024-03-01", Reset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Advance(dp(tt.last), d(tt.today), Monthly, nil))
		})
	}
}

func TestStreakDecisionApply(t *testing.T) {
	assert.Equal(t, 1, Reset.Apply(7))
	assert.Equal(t, 7, Hold.Apply(7))
	assert.Equal(t, 8, Increment.Apply(7))
	assert.Equal(t, "increment", Increment.String())
}

func TestPeriodStart(t *testing.T) {
	assert.Equal(t, d("2024-03-11"), Weekly.PeriodStart(d("2024-03-17")))
	assert.Equal(t, d("2024-03-11"), Weekly.PeriodStart(d("2024-03-11")))
	assert.Equal(t, d("2024-03-01"), Monthly.PeriodStart(d("2024-03-17")))
	assert.Equal(t, d("2024-03-17"), Daily.PeriodStart(d("2024-03-17")))
}
