package store

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"bloodbank/pkg/circuitbreaker"
	"bloodbank/pkg/metrics"
	"bloodbank/pkg/models"
)

// Fallback routes every call to the primary backend and serves it from the
// mock store instead when the primary is absent, failing, or tripped open.
// ErrNotFound and ErrConflict are answers, not failures, and are returned as is.
type Fallback struct {
	primary Store
	mock    *Memory
	breaker *circuitbreaker.CircuitBreaker
	log     *zap.Logger
	metrics *metrics.Metrics
}

// Health describes which backend is serving traffic.
type Health struct {
	Backend   string `json:"backend"`
	Connected bool   `json:"connected"`
	Breaker   string `json:"breaker"`
}

func NewFallback(primary Store, mock *Memory, breaker *circuitbreaker.CircuitBreaker, log *zap.Logger, m *metrics.Metrics) *Fallback {
	if mock == nil {
		mock = NewMemory()
	}
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(5, 30*time.Second)
	}
	if log == nil {
		log = zap.NewNop()
	}
	f := &Fallback{primary: primary, mock: mock, breaker: breaker, log: log, metrics: m}
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		log.Warn("primary store breaker changed state",
			zap.String("from", from.String()),
			zap.String("to", to.String()))
		m.BreakerState(int(to))
	})
	if primary == nil {
		log.Info("no persistent store configured, using mock store")
	}
	return f
}

// Connection returns the persistent backend, or nil when none is configured or
// the breaker currently holds it open.
func (f *Fallback) Connection() Store {
	if f.primary == nil || f.breaker.GetState() == circuitbreaker.StateOpen {
		return nil
	}
	return f.primary
}

func (f *Fallback) Mock() *Memory {
	return f.mock
}

func (f *Fallback) Name() string {
	if f.primary == nil {
		return f.mock.Name()
	}
	return f.primary.Name()
}

func (f *Fallback) Health(ctx context.Context) Health {
	h := Health{Backend: f.Name(), Breaker: f.breaker.GetState().String()}
	if f.primary != nil {
		h.Connected = f.primary.Ping(ctx) == nil
	}
	return h
}

func (f *Fallback) Ping(ctx context.Context) error {
	_, err := do(ctx, f, "Ping", func(s Store) (struct{}, error) {
		return struct{}{}, s.Ping(ctx)
	})
	return err
}

func (f *Fallback) CreateUser(ctx context.Context, user *models.User) error {
	_, err := do(ctx, f, "CreateUser", func(s Store) (struct{}, error) {
		return struct{}{}, s.CreateUser(ctx, user)
	})
	return err
}

func (f *Fallback) UserByID(ctx context.Context, id string) (*models.User, error) {
	return do(ctx, f, "UserByID", func(s Store) (*models.User, error) {
		return s.UserByID(ctx, id)
	})
}

func (f *Fallback) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return do(ctx, f, "UserByEmail", func(s Store) (*models.User, error) {
		return s.UserByEmail(ctx, email)
	})
}

func (f *Fallback) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return do(ctx, f, "UserByUsername", func(s Store) (*models.User, error) {
		return s.UserByUsername(ctx, username)
	})
}

func (f *Fallback) CountUsers(ctx context.Context) (int64, error) {
	return do(ctx, f, "CountUsers", func(s Store) (int64, error) {
		return s.CountUsers(ctx)
	})
}

func (f *Fallback) CreateRequest(ctx context.Context, req *models.BloodRequest) error {
	_, err := do(ctx, f, "CreateRequest", func(s Store) (struct{}, error) {
		return struct{}{}, s.CreateRequest(ctx, req)
	})
	return err
}

func (f *Fallback) RequestByID(ctx context.Context, id string) (*models.BloodRequest, error) {
	return do(ctx, f, "RequestByID", func(s Store) (*models.BloodRequest, error) {
		return s.RequestByID(ctx, id)
	})
}

func (f *Fallback) ListRequests(ctx context.Context, filter Filter) ([]models.BloodRequest, error) {
	return do(ctx, f, "ListRequests", func(s Store) ([]models.BloodRequest, error) {
		return s.ListRequests(ctx, filter)
	})
}

func (f *Fallback) UpdateRequestStatus(ctx context.Context, id, status string, at time.Time) error {
	_, err := do(ctx, f, "UpdateRequestStatus", func(s Store) (struct{}, error) {
		return struct{}{}, s.UpdateRequestStatus(ctx, id, status, at)
	})
	return err
}

func (f *Fallback) CreateDonation(ctx context.Context, d *models.DonationSchedule) error {
	_, err := do(ctx, f, "CreateDonation", func(s Store) (struct{}, error) {
		return struct{}{}, s.CreateDonation(ctx, d)
	})
	return err
}

func (f *Fallback) DonationByID(ctx context.Context, id string) (*models.DonationSchedule, error) {
	return do(ctx, f, "DonationByID", func(s Store) (*models.DonationSchedule, error) {
		return s.DonationByID(ctx, id)
	})
}

func (f *Fallback) ListDonations(ctx context.Context, filter Filter) ([]models.DonationSchedule, error) {
	return do(ctx, f, "ListDonations", func(s Store) ([]models.DonationSchedule, error) {
		return s.ListDonations(ctx, filter)
	})
}

func (f *Fallback) UpdateDonationStatus(ctx context.Context, id, status, notes string, at time.Time) error {
	_, err := do(ctx, f, "UpdateDonationStatus", func(s Store) (struct{}, error) {
		return struct{}{}, s.UpdateDonationStatus(ctx, id, status, notes, at)
	})
	return err
}

func (f *Fallback) InventoryByKey(ctx context.Context, hospital, bloodType string) (*models.InventoryRecord, error) {
	return do(ctx, f, "InventoryByKey", func(s Store) (*models.InventoryRecord, error) {
		return s.InventoryByKey(ctx, hospital, bloodType)
	})
}

func (f *Fallback) ListInventory(ctx context.Context, filter Filter) ([]models.InventoryRecord, error) {
	return do(ctx, f, "ListInventory", func(s Store) ([]models.InventoryRecord, error) {
		return s.ListInventory(ctx, filter)
	})
}

func (f *Fallback) SaveInventory(ctx context.Context, rec *models.InventoryRecord) error {
	_, err := do(ctx, f, "SaveInventory", func(s Store) (struct{}, error) {
		return struct{}{}, s.SaveInventory(ctx, rec)
	})
	return err
}

func do[T any](ctx context.Context, f *Fallback, op string, fn func(Store) (T, error)) (T, error) {
	if f.primary == nil {
		return serveMock(f, op, fn, false)
	}
	if !f.breaker.Allow() {
		return serveMock(f, op, fn, true)
	}

	v, err := fn(f.primary)
	f.metrics.StoreOp(f.primary.Name(), op, errOrNil(err))
	if err == nil || isAnswer(err) {
		f.breaker.Success()
		return v, err
	}

	// The caller is gone; a cancelled call says nothing about backend health.
	if ctx.Err() != nil {
		f.breaker.Release()
		return v, err
	}
	f.breaker.Failure()
	f.log.Warn("primary store failed, serving from mock store",
		zap.String("op", op),
		zap.String("backend", f.primary.Name()),
		zap.Error(err))
	return serveMock(f, op, fn, true)
}

func serveMock[T any](f *Fallback, op string, fn func(Store) (T, error), degraded bool) (T, error) {
	if degraded {
		f.metrics.Fallback(op)
	}
	v, err := fn(f.mock)
	f.metrics.StoreOp(f.mock.Name(), op, errOrNil(err))
	return v, err
}

func isAnswer(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict)
}

func errOrNil(err error) error {
	if isAnswer(err) {
		return nil
	}
	return err
}
