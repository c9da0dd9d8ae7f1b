package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bloodbank/pkg/circuitbreaker"
	"bloodbank/pkg/metrics"
	"bloodbank/pkg/models"
)

var errBackendDown = errors.New("connection refused")

// flakyStore answers from its own Memory but fails the overridden calls.
type flakyStore struct {
	*Memory
	calls int
}

func (s *flakyStore) Name() string { return "flaky" }

func (s *flakyStore) ListRequests(context.Context, Filter) ([]models.BloodRequest, error) {
	s.calls++
	return nil, errBackendDown
}

func (s *flakyStore) CreateRequest(context.Context, *models.BloodRequest) error {
	s.calls++
	return errBackendDown
}

func (s *flakyStore) Ping(context.Context) error {
	return errBackendDown
}

func TestFallbackWithoutPrimaryUsesMock(t *testing.T) {
	m := metrics.New()
	f := NewFallback(nil, nil, nil, zap.NewNop(), m)
	ctx := context.Background()

	assert.Nil(t, f.Connection())
	assert.Equal(t, "memory", f.Name())
	assert.NoError(t, f.Ping(ctx))

	req := &models.BloodRequest{UserID: "1", BloodType: "A+", Units: 1, Status: models.RequestPending}
	require.NoError(t, f.CreateRequest(ctx, req))

	list, err := f.ListRequests(ctx, Filter{UserID: "1"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	h := f.Health(ctx)
	assert.Equal(t, "memory", h.Backend)
	assert.False(t, h.Connected)
}

func TestFallbackServesMockWhenPrimaryFails(t *testing.T) {
	primary := &flakyStore{Memory: NewMemory()}
	mock := NewMemory()
	f := NewFallback(primary, mock, circuitbreaker.NewCircuitBreaker(5, time.Minute), zap.NewNop(), nil)
	ctx := context.Background()

	assert.Equal(t, primary, f.Connection())

	req := &models.BloodRequest{UserID: "7", BloodType: "O-", Units: 3, Status: models.RequestPending}
	require.NoError(t, f.CreateRequest(ctx, req))
	assert.Equal(t, "1", req.ID)

	list, err := f.ListRequests(ctx, Filter{UserID: "7"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, req.ID, list[0].ID)

	fromMock, err := mock.RequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, fromMock.Units)
	assert.Equal(t, 2, primary.calls)
}

func TestFallbackPassesAnswersThrough(t *testing.T) {
	primary := &flakyStore{Memory: NewMemory()}
	mock := NewMemory()
	f := NewFallback(primary, mock, nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, mock.CreateUser(ctx, &models.User{Name: "Only in mock", Email: strPtr("m@example.com")}))

	_, err := f.UserByEmail(ctx, "m@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, primary.Memory.CreateUser(ctx, &models.User{Name: "Primary", Email: strPtr("p@example.com")}))
	err = f.CreateUser(ctx, &models.User{Name: "Dup", Email: strPtr("p@example.com")})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "closed", f.Health(ctx).Breaker)
}

func TestFallbackBreakerBypassesPrimary(t *testing.T) {
	primary := &flakyStore{Memory: NewMemory()}
	breaker := circuitbreaker.NewCircuitBreaker(1, time.Hour)
	m := metrics.New()
	f := NewFallback(primary, nil, breaker, zap.NewNop(), m)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.ListRequests(ctx, Filter{})
		require.NoError(t, err)
	}
	assert.Equal(t, circuitbreaker.StateOpen, breaker.GetState())
	assert.Equal(t, 2, primary.calls)

	for i := 0; i < 3; i++ {
		_, err := f.ListRequests(ctx, Filter{})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, primary.calls)
	assert.Equal(t, "open", f.Health(ctx).Breaker)
	assert.Nil(t, f.Connection())
}

func TestFallbackCancelledContextDoesNotFallBack(t *testing.T) {
	primary := &flakyStore{Memory: NewMemory()}
	breaker := circuitbreaker.NewCircuitBreaker(0, time.Hour)
	f := NewFallback(primary, nil, breaker, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.ListRequests(ctx, Filter{})
	assert.ErrorIs(t, err, errBackendDown)
	assert.Equal(t, circuitbreaker.StateClosed, breaker.GetState())
}

// recoveringStore fails until healthy is set, then answers from its Memory.
type recoveringStore struct {
	*Memory
	healthy bool
}

func (s *recoveringStore) Name() string { return "recovering" }

func (s *recoveringStore) ListRequests(ctx context.Context, f Filter) ([]models.BloodRequest, error) {
	if !s.healthy {
		return nil, errBackendDown
	}
	return s.Memory.ListRequests(ctx, f)
}

func TestFallbackCancelledProbeDoesNotWedgeBreaker(t *testing.T) {
	primary := &recoveringStore{Memory: NewMemory()}
	breaker := circuitbreaker.NewCircuitBreaker(0, time.Millisecond)
	f := NewFallback(primary, nil, breaker, zap.NewNop(), nil)
	ctx := context.Background()

	_, err := f.ListRequests(ctx, Filter{})
	require.NoError(t, err)
	require.Equal(t, circuitbreaker.StateOpen, breaker.GetState())
	time.Sleep(5 * time.Millisecond)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.ListRequests(cancelled, Filter{})
	assert.ErrorIs(t, err, errBackendDown)
	assert.Equal(t, circuitbreaker.StateHalfOpen, breaker.GetState())

	primary.healthy = true
	require.NoError(t, primary.Memory.CreateRequest(ctx, &models.BloodRequest{UserID: "9", BloodType: "B+", Units: 1, Status: models.RequestPending}))

	list, err := f.ListRequests(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, circuitbreaker.StateClosed, breaker.GetState())
	assert.Equal(t, primary, f.Connection())
}

func setupMockPostgres(t *testing.T) (*SQL, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, PreferSimpleProtocol: true}), &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewSQL(db), mock
}

func TestFallbackOnMissingTable(t *testing.T) {
	primary, mock := setupMockPostgres(t)
	mock.ExpectQuery(`SELECT \* FROM "donations"`).
		WillReturnError(errors.New(`pq: relation "donations" does not exist`))

	memory := NewMemory()
	ctx := context.Background()
	require.NoError(t, memory.CreateDonation(ctx, &models.DonationSchedule{DonorID: "4", Status: models.DonationScheduled}))

	f := NewFallback(primary, memory, nil, zap.NewNop(), nil)
	assert.Equal(t, "postgres", f.Name())

	list, err := f.ListDonations(ctx, Filter{UserID: "4"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFallbackPostgresRecordNotFound(t *testing.T) {
	primary, mock := setupMockPostgres(t)
	mock.ExpectQuery(`SELECT \* FROM "blood_bank_users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}))

	memory := NewMemory()
	ctx := context.Background()
	require.NoError(t, memory.CreateUser(ctx, &models.User{Name: "Mock", Email: strPtr("x@example.com")}))

	f := NewFallback(primary, memory, nil, zap.NewNop(), nil)
	_, err := f.UserByEmail(ctx, "x@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFallbackPostgresUpdateMissingRow(t *testing.T) {
	primary, mock := setupMockPostgres(t)
	mock.ExpectExec(`UPDATE "blood_requests" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	f := NewFallback(primary, nil, nil, zap.NewNop(), nil)
	err := f.UpdateRequestStatus(context.Background(), "b7c1", models.RequestRejected, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
