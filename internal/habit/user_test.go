package habit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAwardXP(t *testing.T) {
	tests := []struct {
		name       string
		xp, level  int
		award      int
		wantXP     int
		wantLevel  int
		wantGained int
	}{
		{"below threshold", 0, 1, 10, 10, 1, 0},
		{"exactly at threshold", 990, 1, 10, 1000, 2, 1},
		{"multiple levels at once", 900, 1, 2200, 3100, 4, 3},
		{"level two needs 2000", 1500, 2, 400, 1900, 2, 0},
		{"negative ignored", 500, 1, -100, 500, 1, 0},
		{"zero level repaired", 0, 0, 5, 5, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{XP: tt.xp, Level: tt.level}
			gained := u.AwardXP(tt.award)
			assert.Equal(t, tt.wantXP, u.XP)
			assert.Equal(t, tt.wantLevel, u.Level)
			assert.Equal(t, tt.wantGained, gained)
		})
	}
}

func TestXPForNextLevel(t *testing.T) {
	assert.Equal(t, 1000, XPForNextLevel(1))
	assert.Equal(t, 5000, XPForNextLevel(5))
	assert.Equal(t, 1000, XPForNextLevel(0))
}

func TestRecordActivity(t *testing.T) {
	u := &User{Level: 1}

	assert.Equal(t, Reset, u.RecordActivity(d("2024-03-11")))
	assert.Equal(t, Increment, u.RecordActivity(d("2024-03-12")))
	assert.Equal(t, Hold, u.RecordActivity(d("2024-03-12")))
	assert.Equal(t, 2, u.Streak)

	assert.True(t, u.ActivityStreakBroken(d("2024-03-14")))
	assert.Equal(t, Reset, u.RecordActivity(d("2024-03-14")))
	assert.Equal(t, 1, u.Streak)
	assert.Equal(t, 2, u.LongestStreak)
}

func TestUserToday(t *testing.T) {
	instant := time.Date(2024, 3, 13, 2, 0, 0, 0, time.UTC)

	u := &User{}
	assert.Equal(t, d("2024-03-13"), u.Today(instant))

	u.Timezone = "America/New_York"
	assert.Equal(t, d("2024-03-12"), u.Today(instant))

	u.Timezone = "Not/AZone"
	assert.Equal(t, time.UTC, u.Location())
}

func TestPublicUser(t *testing.T) {
	u := &User{ID: "1", Username: "sam", Email: "sam@example.com", PasswordHash: "secret", XP: 1200, Level: 2}
	pub := u.Public(nil, nil)
	assert.Equal(t, 2000, pub.XPForNextLevel)
	assert.Equal(t, "UTC", pub.Timezone)
	assert.NotNil(t, pub.Habits)
	assert.NotNil(t, pub.Achievements)
}
