package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitnation/habitnation/internal/store"
	"github.com/habitnation/habitnation/internal/validation"
	"github.com/habitnation/habitnation/internal/web/auth"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.Register(ctx, RegisterInput{Username: " sam ", Email: "Sam@Example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "sam", sess.User.Username)
	assert.Equal(t, "sam@example.com", sess.User.Email)
	assert.Equal(t, 1, sess.User.Level)
	assert.Equal(t, 1000, sess.User.XPForNextLevel)
	assert.Empty(t, sess.User.Habits)

	claims, err := f.tokens.ValidateToken(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, claims.UserID)
	assert.False(t, claims.HasRole(auth.RoleAdmin))

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.svc.Register(ctx, RegisterInput{Username: "other", Email: "sam@example.com", Password: "secret123"})
		var conflict *ConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, "email", conflict.Field)
		assert.Equal(t, "User already exists", conflict.Message)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := f.svc.Register(ctx, RegisterInput{Username: "sam", Email: "new@example.com", Password: "secret123"})
		var conflict *ConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, "username", conflict.Field)
	})
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"missing username", RegisterInput{Email: "a@b.co", Password: "secret123"}, "username"},
		{"bad email", RegisterInput{Username: "a", Email: "nope", Password: "secret123"}, "email"},
		{"short password", RegisterInput{Username: "a", Email: "a@b.co", Password: "12345"}, "password"},
		{"long password", RegisterInput{Username: "a", Email: "a@b.co", Password: string(make([]byte, 73))}, "password"},
		{"short multibyte password", RegisterInput{Username: "a", Email: "a@b.co", Password: "日本語"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tt.in)
			ve, ok := validation.AsValidationErrors(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Contains(t, ve.Fields, tt.field)
		})
	}
}

func TestRegisterCountsPasswordCharacters(t *testing.T) {
	f := newFixture(t)

	sess, err := f.svc.Register(context.Background(), RegisterInput{Username: "kana", Email: "kana@example.com", Password: "ひらがなカナ"})
	require.NoError(t, err)
	assert.Equal(t, "kana", sess.User.Username)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "sam")
	f.habit(t, u.ID, "Read", habitInput())

	sess, err := f.svc.Login(ctx, LoginInput{Email: "SAM@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, sess.User.ID)
	assert.Len(t, sess.User.Habits, 1)

	_, err = f.svc.Login(ctx, LoginInput{Email: "sam@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, LoginInput{Email: "sam@example.com"})
	_, ok := validation.AsValidationErrors(err)
	assert.True(t, ok)
}

func TestAdminTokenCarriesRole(t *testing.T) {
	f := newFixture(t)
	f.admin(t, "root")

	sess, err := f.svc.Login(context.Background(), LoginInput{Email: "root@example.com", Password: "secret123"})
	require.NoError(t, err)
	claims, err := f.tokens.ValidateToken(sess.Token)
	require.NoError(t, err)
	assert.True(t, claims.HasRole(auth.RoleAdmin))
	assert.True(t, sess.User.IsAdmin)
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "sam")

	me, err := f.svc.Me(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "sam", me.Username)
	assert.Equal(t, "UTC", me.Timezone)

	_, err = f.svc.Me(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
