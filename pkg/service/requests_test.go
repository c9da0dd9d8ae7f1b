package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodbank/pkg/models"
	"bloodbank/pkg/store"
)

func createRequest(t *testing.T, s *Service, userID, hospital, bloodType string) *models.BloodRequest {
	t.Helper()
	req, err := s.CreateRequest(context.Background(), RequestInput{
		UserID: userID, Hospital: hospital, BloodType: bloodType, Units: 2,
	})
	require.NoError(t, err)
	return req
}

func TestCreateRequest(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	req := createRequest(t, s, "1", "City General Hospital", "A+")
	assert.Equal(t, models.RequestPending, req.Status)
	assert.Equal(t, models.UrgencyNormal, req.Urgency)
	assert.Equal(t, req.CreatedAt, req.UpdatedAt)

	got, err := s.RequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "City General Hospital", got.Hospital)

	bad := []RequestInput{
		{UserID: "1", Hospital: "X", BloodType: "A+", Units: 0},
		{UserID: "1", Hospital: "X", BloodType: "A+", Units: -3},
		{UserID: "1", Hospital: "X", BloodType: "Z", Units: 1},
		{UserID: "1", Hospital: "", BloodType: "A+", Units: 1},
		{UserID: "", Hospital: "X", BloodType: "A+", Units: 1},
		{UserID: "1", Hospital: "X", BloodType: "A+", Units: 1, Urgency: "whenever"},
	}
	for _, in := range bad {
		_, err := s.CreateRequest(ctx, in)
		assert.ErrorIs(t, err, ErrValidation, "%+v", in)
	}
}

func TestRequestListingsNewestFirst(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	r1 := createRequest(t, s, "1", "City General Hospital", "A+")
	r2 := createRequest(t, s, "1", "District Hospital", "B+")
	r3 := createRequest(t, s, "2", "District Hospital", "A+")

	all, err := s.ListRequests(ctx, store.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{r3.ID, r2.ID, r1.ID}, []string{all[0].ID, all[1].ID, all[2].ID})
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i-1].CreatedAt.After(all[i].CreatedAt))
	}

	mine, err := s.RequestsForUser(ctx, "1", 1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, r2.ID, mine[0].ID)

	limited, err := s.ListRequests(ctx, store.Filter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, limited, 3)
}

func TestListRequestsForAdminDenormalises(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	u := registerDonor(t, s, "Asha Rao", "asha@example.com")
	mine := createRequest(t, s, u.ID, "City General Hospital", "O+")
	orphan := createRequest(t, s, "999", "District Hospital", "O+")

	list, err := s.ListRequestsForAdmin(ctx, store.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 2)

	byID := map[string]models.BloodRequest{}
	for _, r := range list {
		byID[r.ID] = r
	}
	assert.Equal(t, "Asha Rao", byID[mine.ID].UserName)
	assert.Equal(t, "98765 43210", byID[mine.ID].UserMobile)
	assert.Equal(t, models.UnknownUserName, byID[orphan.ID].UserName)
	assert.Empty(t, byID[orphan.ID].UserMobile)
}

func TestUpdateRequestStatus(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	req := createRequest(t, s, "1", "City General Hospital", "A-")

	ok, err := s.UpdateRequestStatus(ctx, req.ID, models.RequestFulfilled)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.RequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestFulfilled, got.Status)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
	assert.Equal(t, req.Units, got.Units)
	assert.Equal(t, req.Hospital, got.Hospital)

	// No transition rules: going back to pending is allowed.
	ok, err = s.UpdateRequestStatus(ctx, req.ID, models.RequestPending)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.UpdateRequestStatus(ctx, "404", models.RequestRejected)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearchRequests(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	asha := registerDonor(t, s, "Asha Rao", "asha@example.com")
	ravi := registerDonor(t, s, "Ravi Kumar", "ravi@example.com")
	a1 := createRequest(t, s, asha.ID, "City General Hospital", "A+")
	r1 := createRequest(t, s, ravi.ID, "St. Mary's Hospital", "B+")
	r2 := createRequest(t, s, ravi.ID, "District Hospital", "A+")
	_, err := s.UpdateRequestStatus(ctx, r2.ID, models.RequestRejected)
	require.NoError(t, err)

	byName, err := s.SearchRequests(ctx, "ASHA", "", "")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, a1.ID, byName[0].ID)

	byHospital, err := s.SearchRequests(ctx, "mary", "", "")
	require.NoError(t, err)
	require.Len(t, byHospital, 1)
	assert.Equal(t, r1.ID, byHospital[0].ID)

	filtered, err := s.SearchRequests(ctx, "ravi", models.RequestRejected, "A+")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, r2.ID, filtered[0].ID)

	everything, err := s.SearchRequests(ctx, "", "", "")
	require.NoError(t, err)
	assert.Len(t, everything, 3)

	none, err := s.SearchRequests(ctx, "nobody", "", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}
