// Package store holds the storage contract shared by the persistent backend and
// the in-memory mock store, plus the adapter that falls back from one to the other.
package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"bloodbank/pkg/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// Filter holds equality predicates. Empty fields match everything. Results are
// always newest first and Limit, when positive, truncates after sorting.
type Filter struct {
	UserID    string
	Status    string
	BloodType string
	Hospital  string
	Limit     int
}

// Store is the capability set every backend implements.
type Store interface {
	Name() string
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user *models.User) error
	UserByID(ctx context.Context, id string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)

	CreateRequest(ctx context.Context, req *models.BloodRequest) error
	RequestByID(ctx context.Context, id string) (*models.BloodRequest, error)
	ListRequests(ctx context.Context, f Filter) ([]models.BloodRequest, error)
	UpdateRequestStatus(ctx context.Context, id, status string, at time.Time) error

	CreateDonation(ctx context.Context, d *models.DonationSchedule) error
	DonationByID(ctx context.Context, id string) (*models.DonationSchedule, error)
	ListDonations(ctx context.Context, f Filter) ([]models.DonationSchedule, error)
	UpdateDonationStatus(ctx context.Context, id, status, notes string, at time.Time) error

	InventoryByKey(ctx context.Context, hospital, bloodType string) (*models.InventoryRecord, error)
	ListInventory(ctx context.Context, f Filter) ([]models.InventoryRecord, error)
	SaveInventory(ctx context.Context, rec *models.InventoryRecord) error
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*SQL)(nil)
	_ Store = (*Fallback)(nil)
)

func newestFirst[T any](items []T, createdAt func(*T) time.Time, limit int) []T {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(&items[i]).After(createdAt(&items[j]))
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func requestCreated(r *models.BloodRequest) time.Time { return r.CreatedAt }

func donationCreated(d *models.DonationSchedule) time.Time { return d.CreatedAt }

func inventoryCreated(r *models.InventoryRecord) time.Time { return r.CreatedAt }

func (f Filter) matchRequest(r *models.BloodRequest) bool {
	return match(f.UserID, r.UserID) && match(f.Status, r.Status) &&
		match(f.BloodType, r.BloodType) && match(f.Hospital, r.Hospital)
}

func (f Filter) matchDonation(d *models.DonationSchedule) bool {
	return match(f.UserID, d.DonorID) && match(f.Status, d.Status) &&
		match(f.BloodType, d.BloodType) && match(f.Hospital, d.Hospital)
}

func (f Filter) matchInventory(r *models.InventoryRecord) bool {
	return match(f.BloodType, r.BloodType) && match(f.Hospital, r.Hospital)
}

func match(want, got string) bool {
	return want == "" || want == got
}
