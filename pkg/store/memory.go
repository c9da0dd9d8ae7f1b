package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	"bloodbank/pkg/models"
)

// Memory is the mock store used when no persistent backend is configured or
// the backend is unreachable. Nothing is written to disk; a new Memory starts
// from the seeded inventory skeleton.
type Memory struct {
	mu  sync.RWMutex
	now func() time.Time

	users     *collection[models.User]
	requests  *collection[models.BloodRequest]
	donations *collection[models.DonationSchedule]
	inventory *collection[models.InventoryRecord]
}

func NewMemory() *Memory {
	return NewMemoryWithClock(func() time.Time { return time.Now().UTC() })
}

func NewMemoryWithClock(now func() time.Time) *Memory {
	m := &Memory{
		now:       now,
		users:     newCollection(cloneUser),
		requests:  newCollection(cloneValue[models.BloodRequest]),
		donations: newCollection(cloneValue[models.DonationSchedule]),
		inventory: newCollection(cloneValue[models.InventoryRecord]),
	}
	m.seedInventory()
	return m
}

func (m *Memory) seedInventory() {
	stamp := m.now()
	for _, hospital := range models.Hospitals {
		for _, bg := range models.BloodGroups {
			key := models.InventoryKey(hospital, bg)
			m.inventory.put(key, &models.InventoryRecord{
				ID:        key,
				Hospital:  hospital,
				BloodType: bg,
				CreatedAt: stamp,
				UpdatedAt: stamp,
			})
		}
	}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users.items {
		if user.Email != nil && existing.Email != nil && *existing.Email == *user.Email {
			return ErrConflict
		}
		if user.Username != nil && existing.Username != nil && *existing.Username == *user.Username {
			return ErrConflict
		}
	}

	user.ID = m.users.nextID()
	m.stamp(&user.CreatedAt, &user.UpdatedAt)
	m.users.put(user.ID, cloneUser(user))
	return nil
}

func (m *Memory) UserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.users.get(id)
}

func (m *Memory) UserByEmail(_ context.Context, email string) (*models.User, error) {
	return m.findUser(func(u *models.User) bool { return u.Email != nil && *u.Email == email })
}

func (m *Memory) UserByUsername(_ context.Context, username string) (*models.User, error) {
	return m.findUser(func(u *models.User) bool { return u.Username != nil && *u.Username == username })
}

func (m *Memory) findUser(pred func(*models.User) bool) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.users.order {
		if u := m.users.items[id]; pred(u) {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CountUsers(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users.items)), nil
}

func (m *Memory) CreateRequest(_ context.Context, req *models.BloodRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	req.ID = m.requests.nextID()
	m.stamp(&req.CreatedAt, &req.UpdatedAt)
	m.requests.put(req.ID, cloneValue(req))
	return nil
}

func (m *Memory) RequestByID(_ context.Context, id string) (*models.BloodRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests.get(id)
}

func (m *Memory) ListRequests(_ context.Context, f Filter) ([]models.BloodRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.requests.list(f.matchRequest), requestCreated, f.Limit), nil
}

func (m *Memory) UpdateRequestStatus(_ context.Context, id, status string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests.items[id]
	if !ok {
		return ErrNotFound
	}
	req.Status = status
	req.UpdatedAt = at
	return nil
}

func (m *Memory) CreateDonation(_ context.Context, d *models.DonationSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d.ID = m.donations.nextID()
	m.stamp(&d.CreatedAt, &d.UpdatedAt)
	m.donations.put(d.ID, cloneValue(d))
	return nil
}

func (m *Memory) DonationByID(_ context.Context, id string) (*models.DonationSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.donations.get(id)
}

func (m *Memory) ListDonations(_ context.Context, f Filter) ([]models.DonationSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.donations.list(f.matchDonation), donationCreated, f.Limit), nil
}

func (m *Memory) UpdateDonationStatus(_ context.Context, id, status, notes string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.donations.items[id]
	if !ok {
		return ErrNotFound
	}
	d.Status = status
	if notes != "" {
		d.Notes = notes
	}
	d.UpdatedAt = at
	return nil
}

func (m *Memory) InventoryByKey(_ context.Context, hospital, bloodType string) (*models.InventoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inventory.get(models.InventoryKey(hospital, bloodType))
}

func (m *Memory) ListInventory(_ context.Context, f Filter) ([]models.InventoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.inventory.list(f.matchInventory), inventoryCreated, f.Limit), nil
}

// SaveInventory inserts or replaces the record for its (hospital, blood type) pair.
func (m *Memory) SaveInventory(_ context.Context, rec *models.InventoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.ID = models.InventoryKey(rec.Hospital, rec.BloodType)
	if existing, ok := m.inventory.items[rec.ID]; ok && rec.CreatedAt.IsZero() {
		rec.CreatedAt = existing.CreatedAt
	}
	m.stamp(&rec.CreatedAt, &rec.UpdatedAt)
	m.inventory.put(rec.ID, cloneValue(rec))
	return nil
}

func (m *Memory) stamp(created, updated *time.Time) {
	if created.IsZero() {
		*created = m.now()
	}
	if updated.IsZero() {
		*updated = *created
	}
}

// collection keeps records by id and remembers insertion order so that
// records created within the same clock tick still list newest first.
type collection[T any] struct {
	items map[string]*T
	order []string
	next  int
	clone func(*T) *T
}

func newCollection[T any](clone func(*T) *T) *collection[T] {
	return &collection[T]{items: make(map[string]*T), next: 1, clone: clone}
}

func (c *collection[T]) nextID() string {
	id := strconv.Itoa(c.next)
	c.next++
	return id
}

func (c *collection[T]) put(id string, v *T) {
	if _, ok := c.items[id]; !ok {
		c.order = append(c.order, id)
	}
	c.items[id] = v
}

func (c *collection[T]) get(id string) (*T, error) {
	v, ok := c.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.clone(v), nil
}

func (c *collection[T]) list(pred func(*T) bool) []T {
	out := make([]T, 0, len(c.order))
	for i := len(c.order) - 1; i >= 0; i-- {
		v := c.items[c.order[i]]
		if pred(v) {
			out = append(out, *c.clone(v))
		}
	}
	return out
}

func cloneValue[T any](v *T) *T {
	cp := *v
	return &cp
}

func cloneUser(u *models.User) *models.User {
	cp := *u
	if u.Email != nil {
		email := *u.Email
		cp.Email = &email
	}
	if u.Username != nil {
		username := *u.Username
		cp.Username = &username
	}
	return &cp
}
