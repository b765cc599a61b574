package habit

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/habitnation/habitnation/internal/validation"
)

// Frequency is how often a habit is expected to be completed
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// TimeOfDay is when the user intends to do the habit
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
	Anytime   TimeOfDay = "anytime"
)

// Categories offered by the client
var Categories = []string{
	"Health & Fitness",
	"Mindfulness",
	"Learning",
	"Productivity",
	"Relationships",
	"Personal Growth",
	"Other",
}

const (
	DefaultXPValue  = 10
	DefaultCategory = "Other"

	maxNameLength        = 100
	maxDescriptionLength = 500
	maxXPValue           = 1000
)

// Habit is a recurring activity tracked for one user
type Habit struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	Frequency        Frequency `json:"frequency"`
	Schedule         Schedule  `json:"schedule"`
	TimeOfDay        TimeOfDay `json:"timeOfDay"`
	Streak           int       `json:"streak"`
	LongestStreak    int       `json:"longestStreak"`
	TotalCompletions int       `json:"totalCompletions"`
	LastCompletedOn  *Date     `json:"lastCompleted,omitempty"`
	XPValue          int       `json:"xpValue"`
	IsActive         bool      `json:"isActive"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`

	// CompletedToday is derived per request from LastCompletedOn
	CompletedToday bool `json:"completedToday"`
}

// Input carries the user-editable habit fields. Nil fields are left
// untouched by Apply; progress fields (streak, completions) are never
// accepted from clients.
type Input struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Category    *string    `json:"category"`
	Frequency   *Frequency `json:"frequency"`
	Schedule    Schedule   `json:"schedule"`
	TimeOfDay   *TimeOfDay `json:"timeOfDay"`
	XPValue     *int       `json:"xpValue"`
	IsActive    *bool      `json:"isActive"`
}

// New builds a habit for userID from input, filling defaults
func New(userID string, in Input, now time.Time) (*Habit, error) {
	h := &Habit{
		ID:        uuid.New().String(),
		UserID:    userID,
		Category:  DefaultCategory,
		Frequency: Daily,
		Schedule:  DefaultSchedule(),
		TimeOfDay: Anytime,
		XPValue:   DefaultXPValue,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Name == nil {
		return nil, validation.Single("name", "Name is required")
	}
	if err := h.Apply(in, now); err != nil {
		return nil, err
	}
	return h, nil
}

// Apply copies the non-nil fields of in onto h and validates the result.
// h is left unchanged when validation fails.
func (h *Habit) Apply(in Input, now time.Time) error {
	next := *h
	next.Schedule = h.Schedule.clone()

	if in.Name != nil {
		next.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		next.Description = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		next.Category = strings.TrimSpace(*in.Category)
		if next.Category == "" {
			next.Category = DefaultCategory
		}
	}
	if in.Frequency != nil {
		next.Frequency = *in.Frequency
	}
	if in.Schedule != nil {
		next.Schedule = in.Schedule.clone()
	}
	if in.TimeOfDay != nil {
		next.TimeOfDay = *in.TimeOfDay
	}
	if in.XPValue != nil {
		next.XPValue = *in.XPValue
	}
	if in.IsActive != nil {
		next.IsActive = *in.IsActive
	}

	if err := next.Validate(); err != nil {
		return err
	}

	next.UpdatedAt = now
	*h = next
	return nil
}

// Validate checks the user-editable fields
func (h *Habit) Validate() error {
	errs := validation.NewValidationErrors()

	if errs.Required("name", h.Name, "Name is required") {
		errs.MaxLength("name", h.Name, maxNameLength)
	}
	errs.MaxLength("description", h.Description, maxDescriptionLength)
	errs.OneOf("category", h.Category, Categories...)
	errs.OneOf("frequency", string(h.Frequency), string(Daily), string(Weekly), string(Monthly))
	errs.OneOf("timeOfDay", string(h.TimeOfDay), string(Morning), string(Afternoon), string(Evening), string(Anytime))
	errs.Range("xpValue", h.XPValue, 1, maxXPValue)
	if err := h.Schedule.validate(); err != nil {
		errs.Add("schedule", err.Error())
	}

	return errs.OrNil()
}

// IsScheduledOn reports whether the habit is due on d. Weekly and monthly
// habits can be done on any day of their period.
func (h *Habit) IsScheduledOn(d Date) bool {
	if h.Frequency != Daily {
		return true
	}
	return h.Schedule.On(d)
}

// CompletedOn reports whether the habit's current period already has a completion
func (h *Habit) CompletedOn(today Date) bool {
	return Advance(h.LastCompletedOn, today, h.Frequency, h.Schedule) == Hold
}

// StreakBroken reports whether a positive streak can no longer be extended today
func (h *Habit) StreakBroken(today Date) bool {
	return h.Streak > 0 && Advance(h.LastCompletedOn, today, h.Frequency, h.Schedule) == Reset
}

// CompletionResult describes what Complete changed
type CompletionResult struct {
	Decision         StreakDecision
	AlreadyCompleted bool
	PreviousStreak   int
}

// Complete records a completion on today. Completing twice in the same
// period changes nothing and reports AlreadyCompleted.
func (h *Habit) Complete(today Date, now time.Time) CompletionResult {
	decision := Advance(h.LastCompletedOn, today, h.Frequency, h.Schedule)
	result := CompletionResult{Decision: decision, PreviousStreak: h.Streak}
	if decision == Hold {
		result.AlreadyCompleted = true
		h.CompletedToday = true
		return result
	}

	h.Streak = decision.Apply(h.Streak)
	if h.Streak > h.LongestStreak {
		h.LongestStreak = h.Streak
	}
	h.TotalCompletions++
	day := today
	h.LastCompletedOn = &day
	h.CompletedToday = true
	h.UpdatedAt = now
	return result
}

// Completion is one entry in a habit's completion log
type Completion struct {
	ID          string    `json:"id"`
	HabitID     string    `json:"habitId"`
	UserID      string    `json:"userId"`
	On          Date      `json:"date"`
	Note        string    `json:"note,omitempty"`
	CompletedAt time.Time `json:"completedAt"`
}

// NewCompletion creates a log entry for h on day
func NewCompletion(h *Habit, day Date, note string, now time.Time) *Completion {
	return &Completion{
		ID:          uuid.New().String(),
		HabitID:     h.ID,
		UserID:      h.UserID,
		On:          day,
		Note:        strings.TrimSpace(note),
		CompletedAt: now,
	}
}
