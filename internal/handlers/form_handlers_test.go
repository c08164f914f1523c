package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentdesk/internal/form"
	"rentdesk/internal/models"
	"rentdesk/internal/services"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) GetDraft(ctx context.Context, token string) (*form.State, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*form.State), args.Error(1)
}

func (m *mockCache) SetDraft(ctx context.Context, token string, state *form.State, ttl time.Duration) error {
	args := m.Called(ctx, token, state, ttl)
	return args.Error(0)
}

func (m *mockCache) DeleteDraft(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockCache) ListDraftTokens(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockCache) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *mockCache) SetApplication(ctx context.Context, app *models.Application, ttl time.Duration) error {
	args := m.Called(ctx, app, ttl)
	return args.Error(0)
}

func (m *mockCache) DeleteApplication(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockCache) IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, error) {
	args := m.Called(ctx, key, window)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCache) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *mockCache) GetString(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *mockCache) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func newSessionContext(e *echo.Echo) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/v1/applications/sessions", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestCreateSessionCountsRequestAndSucceeds(t *testing.T) {
	cache := new(mockCache)
	cache.On("IncrementRateLimit", mock.Anything, mock.Anything, sessionCreateWindow).
		Return(int64(1), nil)
	cache.On("SetDraft", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	sessions := services.NewFormSessionService(cache, time.Hour)
	h := NewFormHandlers(sessions, nil, cache)

	c, rec := newSessionContext(echo.New())
	require.NoError(t, h.CreateSession(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "token")
	assert.Equal(t, 1, sessions.ActiveSessions())
	cache.AssertCalled(t, "IncrementRateLimit", mock.Anything, mock.Anything, sessionCreateWindow)
}

func TestCreateSessionRejectedOverLimit(t *testing.T) {
	cache := new(mockCache)
	cache.On("IncrementRateLimit", mock.Anything, mock.Anything, sessionCreateWindow).
		Return(int64(sessionCreateLimit+1), nil)

	sessions := services.NewFormSessionService(cache, time.Hour)
	h := NewFormHandlers(sessions, nil, cache)

	c, rec := newSessionContext(echo.New())
	require.NoError(t, h.CreateSession(c))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
	assert.Equal(t, 0, sessions.ActiveSessions())
	cache.AssertNotCalled(t, "SetDraft", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateSessionDegradesOpenWhenRedisDown(t *testing.T) {
	cache := new(mockCache)
	cache.On("IncrementRateLimit", mock.Anything, mock.Anything, sessionCreateWindow).
		Return(int64(0), errors.New("redis down"))
	cache.On("SetDraft", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("redis down"))

	sessions := services.NewFormSessionService(cache, time.Hour)
	h := NewFormHandlers(sessions, nil, cache)

	c, rec := newSessionContext(echo.New())
	require.NoError(t, h.CreateSession(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, sessions.ActiveSessions())
}
