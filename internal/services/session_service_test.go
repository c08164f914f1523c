package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentdesk/internal/caching"
	"rentdesk/internal/form"
)

func TestSessionCreateReturnsDistinctTokens(t *testing.T) {
	cache := new(MockCacheService)
	cache.On("SetDraft", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := NewFormSessionService(cache, time.Hour)

	ctx := context.Background()
	tokenA, controllerA := svc.Create(ctx)
	tokenB, controllerB := svc.Create(ctx)

	assert.Len(t, tokenA, 32)
	assert.NotEqual(t, tokenA, tokenB)
	assert.NotSame(t, controllerA, controllerB)
	assert.Equal(t, 2, svc.ActiveSessions())

	cache.AssertNumberOfCalls(t, "SetDraft", 2)
}

func TestSessionControllerResolvesLiveToken(t *testing.T) {
	cache := new(MockCacheService)
	cache.On("SetDraft", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := NewFormSessionService(cache, time.Hour)

	ctx := context.Background()
	token, created := svc.Create(ctx)

	got, err := svc.Controller(ctx, token)
	require.NoError(t, err)
	assert.Same(t, created, got)

	cache.AssertNotCalled(t, "GetDraft", mock.Anything, mock.Anything)
}

func TestSessionControllerRevivesFromDraftCache(t *testing.T) {
	cache := new(MockCacheService)
	state := form.NewController().State()
	state.CurrentStep = 3
	cache.On("GetDraft", mock.Anything, "revivable-token").Return(state, nil)
	svc := NewFormSessionService(cache, time.Hour)

	controller, err := svc.Controller(context.Background(), "revivable-token")
	require.NoError(t, err)
	assert.Equal(t, 3, controller.CurrentStep())
	assert.Equal(t, 1, svc.ActiveSessions())
}

func TestSessionControllerUnknownToken(t *testing.T) {
	cache := new(MockCacheService)
	cache.On("GetDraft", mock.Anything, "missing-token").Return(nil, caching.ErrCacheMiss)
	svc := NewFormSessionService(cache, time.Hour)

	_, err := svc.Controller(context.Background(), "missing-token")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionControllerCacheErrorPropagates(t *testing.T) {
	cache := new(MockCacheService)
	cache.On("GetDraft", mock.Anything, "any-token").Return(nil, errors.New("redis down"))
	svc := NewFormSessionService(cache, time.Hour)

	_, err := svc.Controller(context.Background(), "any-token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionPersistWritesDraftWithTTL(t *testing.T) {
	cache := new(MockCacheService)
	cache.On("SetDraft", mock.Anything, mock.Anything, mock.Anything, 2*time.Hour).Return(nil)
	svc := NewFormSessionService(cache, 2*time.Hour)

	ctx := context.Background()
	token, _ := svc.Create(ctx)
	svc.Persist(ctx, token)

	cache.AssertNumberOfCalls(t, "SetDraft", 2)

	// Persisting an unknown token is a no-op.
	svc.Persist(ctx, "unknown-token")
	cache.AssertNumberOfCalls(t, "SetDraft", 2)
}

func TestSessionEndDropsLiveAndCachedDraft(t *testing.T) {
	cache := new(MockCacheService)
	cache.On("SetDraft", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	cache.On("DeleteDraft", mock.Anything, mock.Anything).Return(nil)
	svc := NewFormSessionService(cache, time.Hour)

	ctx := context.Background()
	token, _ := svc.Create(ctx)
	svc.End(ctx, token)

	assert.Equal(t, 0, svc.ActiveSessions())
	cache.AssertCalled(t, "DeleteDraft", mock.Anything, token)

	cache.On("GetDraft", mock.Anything, token).Return(nil, caching.ErrCacheMiss)
	_, err := svc.Controller(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionSweepRemovesOnlyIdleSessions(t *testing.T) {
	cache := new(MockCacheService)
	cache.On("SetDraft", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := NewFormSessionService(cache, time.Hour)

	ctx := context.Background()
	stale, _ := svc.Create(ctx)
	fresh, _ := svc.Create(ctx)

	svc.mu.Lock()
	svc.sessions[stale].lastActive = time.Now().Add(-2 * time.Hour)
	svc.mu.Unlock()

	removed := svc.SweepExpired()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, svc.ActiveSessions())

	_, err := svc.Controller(ctx, fresh)
	assert.NoError(t, err)
}

func TestSessionTTLDefaultsWhenUnset(t *testing.T) {
	cache := new(MockCacheService)
	svc := NewFormSessionService(cache, 0)
	assert.Equal(t, 24*time.Hour, svc.ttl)
}
