package habit

import (
	"time"
	// user time zones must resolve even on hosts without zoneinfo
	_ "time/tzdata"
)

// XPPerLevel is the XP needed per level: reaching level n+1 takes n*XPPerLevel total XP
const XPPerLevel = 1000

// XPForNextLevel returns the total XP at which level becomes level+1
func XPForNextLevel(level int) int {
	if level < 1 {
		level = 1
	}
	return level * XPPerLevel
}

// User is an account together with its progression
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	XP            int       `json:"xp"`
	Level         int       `json:"level"`
	Streak        int       `json:"streak"`
	LongestStreak int       `json:"longestStreak"`
	LastActiveOn  *Date     `json:"lastActive,omitempty"`
	IsAdmin       bool      `json:"isAdmin"`
	Timezone      string    `json:"timezone"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Location returns the user's time zone, falling back to UTC when unset or unknown
func (u *User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Today returns the user's current calendar day
func (u *User) Today(now time.Time) Date {
	return Today(now, u.Location())
}

// AwardXP adds n XP and returns how many levels were gained. Negative
// amounts are ignored.
func (u *User) AwardXP(n int) int {
	if u.Level < 1 {
		u.Level = 1
	}
	if n <= 0 {
		return 0
	}
	u.XP += n
	gained := 0
	for u.XP >= XPForNextLevel(u.Level) {
		u.Level++
		gained++
	}
	return gained
}

// RecordActivity updates the daily activity streak for a completion on today
func (u *User) RecordActivity(today Date) StreakDecision {
	decision := Advance(u.LastActiveOn, today, Daily, nil)
	if decision == Hold {
		return decision
	}
	u.Streak = decision.Apply(u.Streak)
	if u.Streak > u.LongestStreak {
		u.LongestStreak = u.Streak
	}
	day := today
	u.LastActiveOn = &day
	return decision
}

// ActivityStreakBroken reports whether the user's activity streak lapsed before today
func (u *User) ActivityStreakBroken(today Date) bool {
	return u.Streak > 0 && Advance(u.LastActiveOn, today, Daily, nil) == Reset
}

// PublicUser is the user representation returned by the API
type PublicUser struct {
	ID             string        `json:"id"`
	Username       string        `json:"username"`
	Email          string        `json:"email"`
	XP             int           `json:"xp"`
	Level          int           `json:"level"`
	XPForNextLevel int           `json:"xpForNextLevel"`
	Streak         int           `json:"streak"`
	LongestStreak  int           `json:"longestStreak"`
	IsAdmin        bool          `json:"isAdmin"`
	Timezone       string        `json:"timezone"`
	Habits         []*Habit      `json:"habits"`
	Achievements   []Achievement `json:"achievements"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// Public strips private fields from u
func (u *User) Public(habits []*Habit, achievements []Achievement) PublicUser {
	if habits == nil {
		habits = []*Habit{}
	}
	if achievements == nil {
		achievements = []Achievement{}
	}
	tz := u.Timezone
	if tz == "" {
		tz = "UTC"
	}
	return PublicUser{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		XP:             u.XP,
		Level:          u.Level,
		XPForNextLevel: XPForNextLevel(u.Level),
		Streak:         u.Streak,
		LongestStreak:  u.LongestStreak,
		IsAdmin:        u.IsAdmin,
		Timezone:       tz,
		Habits:         habits,
		Achievements:   achievements,
		CreatedAt:      u.CreatedAt,
	}
}
