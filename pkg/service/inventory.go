package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"bloodbank/pkg/models"
	"bloodbank/pkg/store"
)

type InventoryInput struct {
	Hospital       string `json:"hospital"`
	BloodType      string `json:"blood_type"`
	UnitsAvailable int    `json:"units_available"`
	ExpiryDate     string `json:"expiry_date"`
	UpdatedBy      string `json:"-"`
}

// SeedInventory creates the zero-unit record for every hospital and blood
// group pair that is missing. It returns how many records were created.
func (s *Service) SeedInventory(ctx context.Context) (int, error) {
	created := 0
	now := s.now()
	for _, hospital := range models.Hospitals {
		for _, bg := range models.BloodGroups {
			_, err := s.store.InventoryByKey(ctx, hospital, bg)
			if err == nil {
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return created, err
			}
			rec := &models.InventoryRecord{Hospital: hospital, BloodType: bg, CreatedAt: now, UpdatedAt: now}
			if err := s.store.SaveInventory(ctx, rec); err != nil {
				return created, err
			}
			created++
		}
	}
	if created > 0 {
		s.log.Info("inventory seeded", zap.Int("records", created))
	}
	return created, nil
}

// Inventory lists records, optionally narrowed to one hospital and/or blood type.
func (s *Service) Inventory(ctx context.Context, hospital, bloodType string) ([]models.InventoryRecord, error) {
	return s.store.ListInventory(ctx, store.Filter{Hospital: hospital, BloodType: bloodType})
}

func (s *Service) InventoryRecord(ctx context.Context, hospital, bloodType string) (*models.InventoryRecord, error) {
	return s.store.InventoryByKey(ctx, hospital, bloodType)
}

// UpdateInventory creates or replaces the record for the (hospital, blood type) pair.
func (s *Service) UpdateInventory(ctx context.Context, in InventoryInput) (*models.InventoryRecord, error) {
	in.Hospital = strings.TrimSpace(in.Hospital)
	if err := required("hospital", in.Hospital); err != nil {
		return nil, err
	}
	if err := validateBloodType(in.BloodType); err != nil {
		return nil, err
	}
	if in.UnitsAvailable < 0 {
		return nil, invalid("units available cannot be negative")
	}
	if in.ExpiryDate != "" {
		if err := validateDate("expiry date", in.ExpiryDate); err != nil {
			return nil, err
		}
	}

	now := s.now()
	rec := &models.InventoryRecord{
		Hospital:       in.Hospital,
		BloodType:      in.BloodType,
		UnitsAvailable: in.UnitsAvailable,
		ExpiryDate:     in.ExpiryDate,
		LastUpdatedBy:  in.UpdatedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	existing, err := s.store.InventoryByKey(ctx, in.Hospital, in.BloodType)
	switch {
	case err == nil:
		rec.CreatedAt = existing.CreatedAt
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	if err := s.store.SaveInventory(ctx, rec); err != nil {
		return nil, err
	}
	s.log.Info("inventory updated",
		zap.String("inventory_id", rec.ID),
		zap.Int("units", rec.UnitsAvailable),
		zap.String("updated_by", rec.LastUpdatedBy))
	return rec, nil
}
