package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodbank/pkg/models"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

// runContract exercises the behaviour every Store implementation shares.
func runContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("requests", func(t *testing.T) { testRequests(t, newStore(t)) })
	t.Run("request status", func(t *testing.T) { testRequestStatus(t, newStore(t)) })
	t.Run("donations", func(t *testing.T) { testDonations(t, newStore(t)) })
	t.Run("inventory upsert", func(t *testing.T) { testInventoryUpsert(t, newStore(t)) })
}

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()

	donor := &models.User{Name: "Asha", Email: strPtr("asha@example.com"), PasswordHash: "h", Role: models.RoleUser, BloodGroup: "O+", Mobile: "9876543210"}
	require.NoError(t, s.CreateUser(ctx, donor))
	assert.NotEmpty(t, donor.ID)

	found, err := s.UserByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, donor.ID, found.ID)
	assert.Equal(t, "O+", found.BloodGroup)

	byID, err := s.UserByID(ctx, donor.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", byID.Name)

	dup := &models.User{Name: "Other", Email: strPtr("asha@example.com"), PasswordHash: "h", Role: models.RoleUser, BloodGroup: "A+", Mobile: "9876543211"}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), ErrConflict)

	admin := &models.User{Name: "Admin", Username: strPtr("ADMIN001"), PasswordHash: "h", Role: models.RoleAdmin, BloodGroup: "A+", Mobile: "9876543212", Hospital: "City General Hospital"}
	require.NoError(t, s.CreateUser(ctx, admin))
	assert.NotEqual(t, donor.ID, admin.ID)

	found, err = s.UserByUsername(ctx, "ADMIN001")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, found.ID)
	assert.Equal(t, models.RoleAdmin, found.Role)

	dupAdmin := &models.User{Name: "Admin 2", Username: strPtr("ADMIN001"), PasswordHash: "h", Role: models.RoleAdmin, BloodGroup: "A+", Mobile: "9876543213"}
	assert.ErrorIs(t, s.CreateUser(ctx, dupAdmin), ErrConflict)

	_, err = s.UserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.UserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func createRequest(t *testing.T, s Store, userID, bloodType, status string, at time.Time) *models.BloodRequest {
	t.Helper()
	req := &models.BloodRequest{
		UserID:    userID,
		Hospital:  "City General Hospital",
		BloodType: bloodType,
		Units:     2,
		Urgency:   models.UrgencyNormal,
		Status:    status,
		CreatedAt: at,
		UpdatedAt: at,
	}
	require.NoError(t, s.CreateRequest(context.Background(), req))
	return req
}

func requestIDs(list []models.BloodRequest) []string {
	ids := make([]string, 0, len(list))
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	return ids
}

func testRequests(t *testing.T, s Store) {
	ctx := context.Background()

	r1 := createRequest(t, s, "u1", "A+", models.RequestPending, base)
	r2 := createRequest(t, s, "u1", "B+", models.RequestPending, base.Add(time.Hour))
	r3 := createRequest(t, s, "u1", "A+", models.RequestRejected, base.Add(2*time.Hour))
	other := createRequest(t, s, "u2", "A+", models.RequestPending, base.Add(3*time.Hour))

	mine, err := s.ListRequests(ctx, Filter{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{r3.ID, r2.ID, r1.ID}, requestIDs(mine))

	limited, err := s.ListRequests(ctx, Filter{UserID: "u1", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{r3.ID, r2.ID}, requestIDs(limited))

	all, err := s.ListRequests(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID, r3.ID, r2.ID, r1.ID}, requestIDs(all))

	pendingA, err := s.ListRequests(ctx, Filter{Status: models.RequestPending, BloodType: "A+"})
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID, r1.ID}, requestIDs(pendingA))

	got, err := s.RequestByID(ctx, r2.ID)
	require.NoError(t, err)
	assert.Equal(t, "B+", got.BloodType)
	assert.Equal(t, 2, got.Units)

	none, err := s.ListRequests(ctx, Filter{UserID: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testRequestStatus(t *testing.T, s Store) {
	ctx := context.Background()
	req := createRequest(t, s, "u1", "O-", models.RequestPending, base)

	require.NoError(t, s.UpdateRequestStatus(ctx, req.ID, models.RequestSuccessful, base.Add(time.Minute)))
	got, err := s.RequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestSuccessful, got.Status)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	assert.ErrorIs(t, s.UpdateRequestStatus(ctx, "missing", models.RequestRejected, base), ErrNotFound)
	all, err := s.ListRequests(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.RequestSuccessful, all[0].Status)

	_, err = s.RequestByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func testDonations(t *testing.T, s Store) {
	ctx := context.Background()

	newDonation := func(donor, hospital string, at time.Time) *models.DonationSchedule {
		d := &models.DonationSchedule{
			DonorID:       donor,
			DonorName:     "Ravi",
			DonationDate:  "2024-03-10",
			DonationTime:  "10:30",
			BloodType:     "B+",
			ContactNumber: "9876543210",
			Hospital:      hospital,
			Status:        models.DonationScheduled,
			Notes:         "first visit",
			CreatedAt:     at,
			UpdatedAt:     at,
		}
		require.NoError(t, s.CreateDonation(ctx, d))
		return d
	}

	d1 := newDonation("u1", "City General Hospital", base)
	d2 := newDonation("u1", "District Hospital", base.Add(time.Hour))
	newDonation("u2", "District Hospital", base.Add(2*time.Hour))

	mine, err := s.ListDonations(ctx, Filter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, d2.ID, mine[0].ID)
	assert.Equal(t, d1.ID, mine[1].ID)

	district, err := s.ListDonations(ctx, Filter{Hospital: "District Hospital", Limit: 1})
	require.NoError(t, err)
	require.Len(t, district, 1)
	assert.Equal(t, "u2", district[0].DonorID)

	require.NoError(t, s.UpdateDonationStatus(ctx, d1.ID, models.DonationCompleted, "", base.Add(time.Hour)))
	got, err := s.DonationByID(ctx, d1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DonationCompleted, got.Status)
	assert.Equal(t, "first visit", got.Notes)

	require.NoError(t, s.UpdateDonationStatus(ctx, d1.ID, models.DonationCancelled, "donor unwell", base.Add(2*time.Hour)))
	got, err = s.DonationByID(ctx, d1.ID)
	require.NoError(t, err)
	assert.Equal(t, "donor unwell", got.Notes)

	assert.ErrorIs(t, s.UpdateDonationStatus(ctx, "missing", models.DonationCompleted, "", base), ErrNotFound)
}

func testInventoryUpsert(t *testing.T, s Store) {
	ctx := context.Background()
	const hospital = "Regional Blood Bank"

	rec := &models.InventoryRecord{Hospital: hospital, BloodType: "AB-", UnitsAvailable: 4, ExpiryDate: "2024-04-01", LastUpdatedBy: "a1", CreatedAt: base, UpdatedAt: base}
	require.NoError(t, s.SaveInventory(ctx, rec))
	assert.Equal(t, "Regional Blood Bank#AB-", rec.ID)

	again := &models.InventoryRecord{Hospital: hospital, BloodType: "AB-", UnitsAvailable: 4, ExpiryDate: "2024-04-01", LastUpdatedBy: "a1", CreatedAt: base, UpdatedAt: base}
	require.NoError(t, s.SaveInventory(ctx, again))

	list, err := s.ListInventory(ctx, Filter{Hospital: hospital, BloodType: "AB-"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 4, list[0].UnitsAvailable)

	update := &models.InventoryRecord{Hospital: hospital, BloodType: "AB-", UnitsAvailable: 9, ExpiryDate: "2024-05-01", LastUpdatedBy: "a2", CreatedAt: base, UpdatedAt: base.Add(time.Hour)}
	require.NoError(t, s.SaveInventory(ctx, update))

	got, err := s.InventoryByKey(ctx, hospital, "AB-")
	require.NoError(t, err)
	assert.Equal(t, 9, got.UnitsAvailable)
	assert.Equal(t, "2024-05-01", got.ExpiryDate)
	assert.Equal(t, "a2", got.LastUpdatedBy)

	_, err = s.InventoryByKey(ctx, "Nowhere", "AB-")
	assert.ErrorIs(t, err, ErrNotFound)
}
