package habit

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/google/uuid"

	"github.com/habitnation/habitnation/internal/validation"
)

// AchievementCategory groups achievements by what they measure
type AchievementCategory string

const (
	StreakAchievement  AchievementCategory = "streak"
	LevelAchievement   AchievementCategory = "level"
	HabitAchievement   AchievementCategory = "habit"
	SpecialAchievement AchievementCategory = "special"
)

// DefaultXPReward is granted when an achievement does not set its own reward
const DefaultXPReward = 100

// Achievement is a badge that can be unlocked once per user
type Achievement struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	XPReward     int                 `json:"xpReward"`
	Icon         string              `json:"icon"`
	Category     AchievementCategory `json:"category"`
	Requirements map[string]int      `json:"requirements"`
	Rule         string              `json:"rule,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`

	// EarnedAt is set when the achievement is listed for a user
	EarnedAt *time.Time `json:"earnedAt,omitempty"`
}

// AchievementInput is the payload for creating an achievement
type AchievementInput struct {
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	XPReward     *int                `json:"xpReward"`
	Icon         string              `json:"icon"`
	Category     AchievementCategory `json:"category"`
	Requirements map[string]int      `json:"requirements"`
	Rule         string              `json:"rule"`
}

// NewAchievement validates in and builds an achievement
func NewAchievement(in AchievementInput, now time.Time) (*Achievement, error) {
	a := &Achievement{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(in.Name),
		Description:  strings.TrimSpace(in.Description),
		XPReward:     DefaultXPReward,
		Icon:         strings.TrimSpace(in.Icon),
		Category:     in.Category,
		Requirements: in.Requirements,
		Rule:         strings.TrimSpace(in.Rule),
		CreatedAt:    now,
	}
	if in.XPReward != nil {
		a.XPReward = *in.XPReward
	}
	if a.Requirements == nil {
		a.Requirements = map[string]int{}
	}

	errs := validation.NewValidationErrors()
	errs.Required("name", a.Name, "Name is required")
	errs.Required("description", a.Description, "Description is required")
	errs.Required("icon", a.Icon, "Icon is required")
	errs.Range("xpReward", a.XPReward, 0, 100000)
	if errs.OneOf("category", string(a.Category), string(StreakAchievement), string(LevelAchievement), string(HabitAchievement), string(SpecialAchievement)) {
		if key := a.Category.requirementKey(); key != "" {
			if _, ok := a.Requirements[key]; !ok {
				errs.Add("requirements", fmt.Sprintf("requirements.%s is required for %s achievements", key, a.Category))
			}
		}
		if a.Category == SpecialAchievement {
			if a.Rule == "" {
				errs.Add("rule", "Rule is required for special achievements")
			} else if _, err := compileRule(a.Rule); err != nil {
				errs.Add("rule", err.Error())
			}
		}
	}
	for key, v := range a.Requirements {
		if v < 0 {
			errs.Add("requirements", fmt.Sprintf("requirements.%s must not be negative", key))
		}
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	return a, nil
}

func (c AchievementCategory) requirementKey() string {
	switch c {
	case StreakAchievement:
		return "streak"
	case LevelAchievement:
		return "level"
	case HabitAchievement:
		return "habits"
	default:
		return ""
	}
}

// UserStats is the snapshot achievements are evaluated against
type UserStats struct {
	XP                int `json:"xp" expr:"xp"`
	Level             int `json:"level" expr:"level"`
	Streak            int `json:"streak" expr:"streak"`
	LongestStreak     int `json:"longestStreak" expr:"longestStreak"`
	TotalHabits       int `json:"totalHabits" expr:"totalHabits"`
	ActiveHabits      int `json:"activeHabits" expr:"activeHabits"`
	TotalCompletions  int `json:"totalCompletions" expr:"totalCompletions"`
	TotalAchievements int `json:"totalAchievements" expr:"totalAchievements"`
}

// Earned reports whether stats satisfy the achievement. A requirement key
// that is missing means the achievement cannot be earned.
func (a *Achievement) Earned(stats UserStats) (bool, error) {
	switch a.Category {
	case StreakAchievement:
		return meets(a.Requirements, "streak", stats.Streak), nil
	case LevelAchievement:
		return meets(a.Requirements, "level", stats.Level), nil
	case HabitAchievement:
		return meets(a.Requirements, "habits", stats.TotalHabits), nil
	case SpecialAchievement:
		if a.Rule == "" {
			return false, nil
		}
		return evalRule(a.Rule, stats)
	default:
		return false, nil
	}
}

func meets(req map[string]int, key string, value int) bool {
	want, ok := req[key]
	if !ok {
		return false
	}
	return value >= want
}

var ruleCache sync.Map // rule source -> *vm.Program

func compileRule(rule string) (*vm.Program, error) {
	if cached, ok := ruleCache.Load(rule); ok {
		return cached.(*vm.Program), nil
	}
	program, err := expr.Compile(rule, expr.Env(UserStats{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid rule: %w", err)
	}
	ruleCache.Store(rule, program)
	return program, nil
}

func evalRule(rule string, stats UserStats) (bool, error) {
	program, err := compileRule(rule)
	if err != nil {
		return false, err
	}
	out, err := expr.Run(program, stats)
	if err != nil {
		return false, fmt.Errorf("evaluate rule: %w", err)
	}
	earned, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("rule %q returned %T, expected bool", rule, out)
	}
	return earned, nil
}
