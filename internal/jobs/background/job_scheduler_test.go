package background

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentdesk/internal/caching"
	"rentdesk/internal/models"
	"rentdesk/internal/services"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, msg *services.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type mockAppRepo struct {
	mock.Mock
}

func (m *mockAppRepo) Create(ctx context.Context, app *models.Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *mockAppRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *mockAppRepo) List(ctx context.Context, filter *models.ApplicationSearchFilter) ([]*models.Application, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Application), args.Error(1)
}

func (m *mockAppRepo) Count(ctx context.Context, filter *models.ApplicationSearchFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *mockAppRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Application, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Application), args.Error(1)
}

func (m *mockAppRepo) SetPDFObject(ctx context.Context, id uuid.UUID, objectName string) error {
	args := m.Called(ctx, id, objectName)
	return args.Error(0)
}

func (m *mockAppRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockAppRepo) GenerateReference(ctx context.Context, submittedAt time.Time) (string, error) {
	args := m.Called(ctx, submittedAt)
	return args.String(0), args.Error(1)
}

// stubMarkerCache embeds the interface and overrides only the string ops the
// digest marker uses; any other call panics and fails the test.
type stubMarkerCache struct {
	caching.CacheService
	lastSent string
	stored   map[string]string
}

func newStubMarkerCache() *stubMarkerCache {
	return &stubMarkerCache{stored: make(map[string]string)}
}

func (s *stubMarkerCache) GetString(ctx context.Context, key string) (string, error) {
	if s.lastSent == "" {
		return "", caching.ErrCacheMiss
	}
	return s.lastSent, nil
}

func (s *stubMarkerCache) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	s.stored[key] = value
	return nil
}

func TestSchedulerRegistersMaintenanceJobs(t *testing.T) {
	js := NewJobScheduler(nil, new(mockAppRepo), new(mockMailer), newStubMarkerCache(), "ops@rentdesk.example")
	defer func() { _ = js.Stop() }()

	status := js.GetJobStatus()
	assert.Equal(t, 2, status["total_jobs"])
	assert.ElementsMatch(t, []string{"session-sweep", "daily-digest"}, status["jobs"])
}

func TestDailyDigestSendsAndRecordsMarker(t *testing.T) {
	appRepo := new(mockAppRepo)
	mailer := new(mockMailer)
	cache := newStubMarkerCache()
	js := NewJobScheduler(nil, appRepo, mailer, cache, "ops@rentdesk.example")
	defer func() { _ = js.Stop() }()

	appRepo.On("Count", mock.Anything, mock.MatchedBy(func(f *models.ApplicationSearchFilter) bool {
		return f.From != nil && f.To != nil && f.To.After(*f.From)
	})).Return(3, nil)

	var sent *services.Message
	mailer.On("Send", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*services.Message) }).
		Return(nil)

	err := js.sendDailyDigest(context.Background())
	require.NoError(t, err)

	require.NotNil(t, sent)
	assert.Equal(t, []string{"ops@rentdesk.example"}, sent.To)
	assert.Contains(t, sent.HTML, "<strong>3</strong>")

	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	assert.Equal(t, yesterday, cache.stored[digestMarkerKey])
}

func TestDailyDigestSkipsWhenAlreadySent(t *testing.T) {
	appRepo := new(mockAppRepo)
	mailer := new(mockMailer)
	cache := newStubMarkerCache()
	cache.lastSent = time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	js := NewJobScheduler(nil, appRepo, mailer, cache, "ops@rentdesk.example")
	defer func() { _ = js.Stop() }()

	err := js.sendDailyDigest(context.Background())
	require.NoError(t, err)

	appRepo.AssertNotCalled(t, "Count", mock.Anything, mock.Anything)
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestDailyDigestWithoutOpsEmail(t *testing.T) {
	appRepo := new(mockAppRepo)
	mailer := new(mockMailer)
	js := NewJobScheduler(nil, appRepo, mailer, newStubMarkerCache(), "")
	defer func() { _ = js.Stop() }()

	err := js.sendDailyDigest(context.Background())
	require.NoError(t, err)

	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}
