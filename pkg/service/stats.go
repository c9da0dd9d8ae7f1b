package service

import (
	"context"

	"bloodbank/pkg/models"
	"bloodbank/pkg/store"
)

type UserStats struct {
	TotalRequests   int `json:"total_requests"`
	TotalDonations  int `json:"total_donations"`
	PendingRequests int `json:"pending_requests"`
}

type AdminStats struct {
	TotalRequests      int   `json:"total_requests"`
	TotalDonations     int   `json:"total_donations"`
	PendingRequests    int   `json:"pending_requests"`
	FulfilledRequests  int   `json:"fulfilled_requests"`
	ScheduledDonations int   `json:"scheduled_donations"`
	TotalUsers         int64 `json:"total_users"`
}

func (s *Service) UserStatistics(ctx context.Context, userID string) (*UserStats, error) {
	requests, err := s.store.ListRequests(ctx, store.Filter{UserID: userID})
	if err != nil {
		return nil, err
	}
	donations, err := s.store.ListDonations(ctx, store.Filter{UserID: userID})
	if err != nil {
		return nil, err
	}

	stats := &UserStats{TotalRequests: len(requests), TotalDonations: len(donations)}
	for _, r := range requests {
		if r.Status == models.RequestPending {
			stats.PendingRequests++
		}
	}
	return stats, nil
}

// AdminStatistics counts "fulfilled" and "successful" requests together.
func (s *Service) AdminStatistics(ctx context.Context) (*AdminStats, error) {
	requests, err := s.store.ListRequests(ctx, store.Filter{})
	if err != nil {
		return nil, err
	}
	donations, err := s.store.ListDonations(ctx, store.Filter{})
	if err != nil {
		return nil, err
	}
	users, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, err
	}

	stats := &AdminStats{TotalRequests: len(requests), TotalDonations: len(donations), TotalUsers: users}
	for _, r := range requests {
		switch r.Status {
		case models.RequestPending:
			stats.PendingRequests++
		case models.RequestFulfilled, models.RequestSuccessful:
			stats.FulfilledRequests++
		}
	}
	for _, d := range donations {
		if d.Status == models.DonationScheduled {
			stats.ScheduledDonations++
		}
	}
	return stats, nil
}
