package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetCurrentUser(ctx))
	assert.False(t, HasRole(ctx, "admin"))
	assert.NotNil(t, Logger(ctx))

	ctx = SetRequestID(ctx, "req-1")
	ctx = SetCurrentUser(ctx, "user-1")
	ctx = SetUserRoles(ctx, []string{"admin"})
	logger := zap.NewExample()
	ctx = SetLogger(ctx, logger)

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "user-1", GetCurrentUser(ctx))
	assert.True(t, HasRole(ctx, "admin"))
	assert.False(t, HasRole(ctx, "editor"))
	assert.Same(t, logger, Logger(ctx))
}
