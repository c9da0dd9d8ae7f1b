package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bloodbank/pkg/models"
	"bloodbank/pkg/store"
)

func TestInventoryScenario(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	created, err := s.SeedInventory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, created, "mock store is seeded at construction")

	all, err := s.Inventory(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 80)

	_, err = s.UpdateInventory(ctx, InventoryInput{Hospital: "City General Hospital", BloodType: "O+", UnitsAvailable: 5, UpdatedBy: "7"})
	require.NoError(t, err)

	city, err := s.Inventory(ctx, "City General Hospital", "")
	require.NoError(t, err)
	assert.Len(t, city, 8)
	withFive := 0
	for _, rec := range city {
		if rec.UnitsAvailable == 5 {
			withFive++
			assert.Equal(t, "O+", rec.BloodType)
			assert.Equal(t, "7", rec.LastUpdatedBy)
		}
	}
	assert.Equal(t, 1, withFive)
}

func TestUpdateInventoryIsIdempotent(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	in := InventoryInput{Hospital: "Field Clinic", BloodType: "AB-", UnitsAvailable: 3, ExpiryDate: "2024-12-31", UpdatedBy: "1"}
	first, err := s.UpdateInventory(ctx, in)
	require.NoError(t, err)
	second, err := s.UpdateInventory(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	list, err := s.Inventory(ctx, "Field Clinic", "AB-")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].UnitsAvailable)

	rec, err := s.InventoryRecord(ctx, "Field Clinic", "AB-")
	require.NoError(t, err)
	assert.Equal(t, "2024-12-31", rec.ExpiryDate)
}

func TestUpdateInventoryValidation(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	bad := []InventoryInput{
		{Hospital: "", BloodType: "A+"},
		{Hospital: "X", BloodType: "Q"},
		{Hospital: "X", BloodType: "A+", UnitsAvailable: -1},
		{Hospital: "X", BloodType: "A+", ExpiryDate: "tomorrow"},
	}
	for _, in := range bad {
		_, err := s.UpdateInventory(ctx, in)
		assert.ErrorIs(t, err, ErrValidation, "%+v", in)
	}

	zero, err := s.UpdateInventory(ctx, InventoryInput{Hospital: "X", BloodType: "A+"})
	require.NoError(t, err)
	assert.Equal(t, 0, zero.UnitsAvailable)
}

func TestSeedInventoryOnSQL(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true, Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(store.Models()...))

	s := New(store.NewFallback(store.NewSQL(db), nil, nil, zap.NewNop(), nil), zap.NewNop())
	ctx := context.Background()

	created, err := s.SeedInventory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 80, created)

	created, err = s.SeedInventory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	var count int64
	require.NoError(t, db.Model(&models.InventoryRecord{}).Count(&count).Error)
	assert.Equal(t, int64(80), count)
}
