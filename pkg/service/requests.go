package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"bloodbank/pkg/models"
	"bloodbank/pkg/store"
)

type RequestInput struct {
	UserID    string `json:"-"`
	Hospital  string `json:"hospital"`
	BloodType string `json:"blood_type"`
	Units     int    `json:"units"`
	Urgency   string `json:"urgency"`
	Notes     string `json:"notes"`
}

func (s *Service) CreateRequest(ctx context.Context, in RequestInput) (*models.BloodRequest, error) {
	in.Hospital = strings.TrimSpace(in.Hospital)
	if in.Urgency == "" {
		in.Urgency = models.UrgencyNormal
	}

	if err := required("user", in.UserID); err != nil {
		return nil, err
	}
	if err := required("hospital", in.Hospital); err != nil {
		return nil, err
	}
	if err := validateBloodType(in.BloodType); err != nil {
		return nil, err
	}
	if in.Units <= 0 {
		return nil, invalid("units must be a positive number")
	}
	if in.Urgency != models.UrgencyNormal && in.Urgency != models.UrgencyUrgent {
		return nil, invalid("invalid urgency %q", in.Urgency)
	}

	now := s.now()
	req := &models.BloodRequest{
		UserID:    in.UserID,
		Hospital:  in.Hospital,
		BloodType: in.BloodType,
		Units:     in.Units,
		Urgency:   in.Urgency,
		Notes:     strings.TrimSpace(in.Notes),
		Status:    models.RequestPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateRequest(ctx, req); err != nil {
		return nil, err
	}
	s.log.Info("blood request created", zap.String("request_id", req.ID), zap.String("user_id", req.UserID))
	return req, nil
}

func (s *Service) RequestByID(ctx context.Context, id string) (*models.BloodRequest, error) {
	return s.store.RequestByID(ctx, id)
}

func (s *Service) ListRequests(ctx context.Context, f store.Filter) ([]models.BloodRequest, error) {
	return s.store.ListRequests(ctx, f)
}

// ListRequestsForAdmin attaches the requester's name and mobile to each record.
func (s *Service) ListRequestsForAdmin(ctx context.Context, f store.Filter) ([]models.BloodRequest, error) {
	list, err := s.store.ListRequests(ctx, f)
	if err != nil {
		return nil, err
	}
	names := s.newUserNames(ctx)
	for i := range list {
		list[i].UserName = names.name(list[i].UserID)
		list[i].UserMobile = names.mobile(list[i].UserID)
	}
	return list, nil
}

func (s *Service) RequestsForUser(ctx context.Context, userID string, limit int) ([]models.BloodRequest, error) {
	return s.store.ListRequests(ctx, store.Filter{UserID: userID, Limit: limit})
}

// UpdateRequestStatus reports false when the request does not exist. Any status is accepted.
func (s *Service) UpdateRequestStatus(ctx context.Context, id, status string) (bool, error) {
	err := s.store.UpdateRequestStatus(ctx, id, status, s.now())
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.log.Info("blood request status updated", zap.String("request_id", id), zap.String("status", status))
	return true, nil
}

// SearchRequests matches query case-insensitively against requester name or hospital.
func (s *Service) SearchRequests(ctx context.Context, query, status, bloodType string) ([]models.BloodRequest, error) {
	list, err := s.ListRequestsForAdmin(ctx, store.Filter{Status: status, BloodType: bloodType})
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return list, nil
	}

	out := make([]models.BloodRequest, 0, len(list))
	for _, r := range list {
		if strings.Contains(strings.ToLower(r.UserName), q) || strings.Contains(strings.ToLower(r.Hospital), q) {
			out = append(out, r)
		}
	}
	return out, nil
}
