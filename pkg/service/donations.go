package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"bloodbank/pkg/models"
	"bloodbank/pkg/store"
)

type DonationInput struct {
	DonorID       string `json:"-"`
	DonorName     string `json:"donor_name"`
	DonationDate  string `json:"donation_date"`
	DonationTime  string `json:"donation_time"`
	BloodType     string `json:"blood_type"`
	ContactNumber string `json:"contact_number"`
	Hospital      string `json:"hospital"`
	Notes         string `json:"notes"`
}

// ScheduleDonation books a donation. DonorID may be empty for donors without an account.
func (s *Service) ScheduleDonation(ctx context.Context, in DonationInput) (*models.DonationSchedule, error) {
	in.DonorName = strings.TrimSpace(in.DonorName)
	in.Hospital = strings.TrimSpace(in.Hospital)
	in.ContactNumber = strings.TrimSpace(in.ContactNumber)

	if err := required("donor name", in.DonorName); err != nil {
		return nil, err
	}
	if err := required("hospital", in.Hospital); err != nil {
		return nil, err
	}
	if err := validateDate("donation date", in.DonationDate); err != nil {
		return nil, err
	}
	if err := validateTime("donation time", in.DonationTime); err != nil {
		return nil, err
	}
	if err := validateBloodType(in.BloodType); err != nil {
		return nil, err
	}
	if err := validateMobile(in.ContactNumber); err != nil {
		return nil, err
	}

	now := s.now()
	d := &models.DonationSchedule{
		DonorID:       in.DonorID,
		DonorName:     in.DonorName,
		DonationDate:  in.DonationDate,
		DonationTime:  in.DonationTime,
		BloodType:     in.BloodType,
		ContactNumber: in.ContactNumber,
		Hospital:      in.Hospital,
		Status:        models.DonationScheduled,
		Notes:         strings.TrimSpace(in.Notes),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateDonation(ctx, d); err != nil {
		return nil, err
	}
	s.log.Info("donation scheduled", zap.String("donation_id", d.ID), zap.String("hospital", d.Hospital))
	return d, nil
}

func (s *Service) DonationByID(ctx context.Context, id string) (*models.DonationSchedule, error) {
	return s.store.DonationByID(ctx, id)
}

func (s *Service) ListDonations(ctx context.Context, f store.Filter) ([]models.DonationSchedule, error) {
	return s.store.ListDonations(ctx, f)
}

func (s *Service) ListDonationsForAdmin(ctx context.Context, f store.Filter) ([]models.DonationSchedule, error) {
	list, err := s.store.ListDonations(ctx, f)
	if err != nil {
		return nil, err
	}
	names := s.newUserNames(ctx)
	for i := range list {
		list[i].UserName = names.name(list[i].DonorID)
	}
	return list, nil
}

func (s *Service) DonationsForUser(ctx context.Context, userID string, limit int) ([]models.DonationSchedule, error) {
	return s.store.ListDonations(ctx, store.Filter{UserID: userID, Limit: limit})
}

// UpdateDonationStatus reports false when the donation does not exist. Empty notes keep the old ones.
func (s *Service) UpdateDonationStatus(ctx context.Context, id, status, notes string) (bool, error) {
	err := s.store.UpdateDonationStatus(ctx, id, status, strings.TrimSpace(notes), s.now())
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.log.Info("donation status updated", zap.String("donation_id", id), zap.String("status", status))
	return true, nil
}
