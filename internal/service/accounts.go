package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/habitnation/habitnation/internal/habit"
	"github.com/habitnation/habitnation/internal/store"
	"github.com/habitnation/habitnation/internal/validation"
	"github.com/habitnation/habitnation/internal/web/auth"
	"github.com/habitnation/habitnation/internal/web/cache"
)

const (
	minPasswordLength = 6
	maxUsernameLength = 50
)

// RegisterInput is the body of a sign-up request
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginInput is the body of a sign-in request
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is a signed token plus the user it was issued for
type Session struct {
	Token string           `json:"token"`
	User  habit.PublicUser `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkPassword(errs *validation.ValidationErrors, field, password string) {
	switch {
	case password == "":
		errs.Add(field, "Password is required")
	case utf8.RuneCountInString(password) < minPasswordLength:
		errs.Add(field, fmt.Sprintf("Password must be at least %d characters long", minPasswordLength))
	case len(password) > auth.MaxPasswordBytes:
		errs.Add(field, fmt.Sprintf("Password must be at most %d bytes long", auth.MaxPasswordBytes))
	}
}

func checkTimezone(errs *validation.ValidationErrors, tz string) {
	if tz == "" {
		return
	}
	if _, err := time.LoadLocation(tz); err != nil {
		errs.Add("timezone", "Unknown timezone")
	}
}

// Register creates an account and signs the new user in
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)

	errs := validation.NewValidationErrors()
	if errs.Required("username", username, "Username is required") {
		errs.MaxLength("username", username, maxUsernameLength)
	}
	if errs.Required("email", email, "Email is required") {
		errs.Email("email", email)
	}
	checkPassword(errs, "password", in.Password)
	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	for _, field := range []struct{ column, value string }{{"email", email}, {"username", username}} {
		taken, err := s.store.UserTaken(ctx, field.column, field.value, "")
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, &ConflictError{Field: field.column, Message: "User already exists"}
		}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u := &habit.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Level:        1,
		Timezone:     "UTC",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, asConflict(err, func(string) string { return "User already exists" })
	}

	s.logger.Info("user registered")
	s.cache.InvalidatePrefix(ctx, cache.LeaderboardPrefix)
	return s.session(u, nil, nil)
}

// Login verifies credentials and issues a token
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		errs := validation.NewValidationErrors()
		errs.Required("email", email, "Email is required")
		errs.Required("password", in.Password, "Password is required")
		return nil, errs
	}

	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(in.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	habits, achievements, err := s.userDetails(ctx, u)
	if err != nil {
		return nil, err
	}
	return s.session(u, habits, achievements)
}

// Me returns the user with their habits and earned achievements
func (s *Service) Me(ctx context.Context, userID string) (*habit.PublicUser, error) {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	habits, achievements, err := s.userDetails(ctx, u)
	if err != nil {
		return nil, err
	}
	pub := u.Public(habits, achievements)
	return &pub, nil
}

func (s *Service) session(u *habit.User, habits []*habit.Habit, achievements []habit.Achievement) (*Session, error) {
	token, err := s.tokens.GenerateToken(u.ID, roles(u))
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u.Public(habits, achievements)}, nil
}

func (s *Service) userDetails(ctx context.Context, u *habit.User) ([]*habit.Habit, []habit.Achievement, error) {
	habits, err := s.store.ListHabits(ctx, u.ID, store.HabitFilter{})
	if err != nil {
		return nil, nil, err
	}
	markCompletedToday(habits, u.Today(s.now()))

	achievements, err := s.store.EarnedAchievements(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	return habits, achievements, nil
}

func roles(u *habit.User) []string {
	if u.IsAdmin {
		return []string{auth.RoleAdmin}
	}
	return nil
}
