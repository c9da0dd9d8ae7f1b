package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bloodbank/pkg/models"
)

// SQL is the persistent backend. It works against any gorm dialect; the
// service runs it on postgres and the tests on sqlite.
type SQL struct {
	db *gorm.DB

	mu       sync.Mutex
	migrated atomic.Bool
}

// NewSQL wraps a database whose schema is already migrated.
func NewSQL(db *gorm.DB) *SQL {
	s := &SQL{db: db}
	s.migrated.Store(true)
	return s
}

// NewPendingSQL wraps a database that may not be reachable yet. The schema is
// migrated by the first call that gets through; until then every call fails
// with the connection error.
func NewPendingSQL(db *gorm.DB) *SQL {
	return &SQL{db: db}
}

// Models lists every table the SQL store needs migrated.
func Models() []interface{} {
	return []interface{}{&models.User{}, &models.BloodRequest{}, &models.DonationSchedule{}, &models.InventoryRecord{}}
}

func (s *SQL) Name() string { return s.db.Dialector.Name() }

func (s *SQL) conn(ctx context.Context) (*gorm.DB, error) {
	db := s.db.WithContext(ctx)
	if s.migrated.Load() {
		return db, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.migrated.Load() {
		if err := db.AutoMigrate(Models()...); err != nil {
			return nil, err
		}
		s.migrated.Store(true)
	}
	return db, nil
}

// newestFirst sorts stably, so ties keep the order this clause returns: later
// inserts first on sqlite, otherwise by id.
func (s *SQL) tieBreak() string {
	if s.Name() == "sqlite" {
		return "rowid DESC"
	}
	return "id DESC"
}

func (s *SQL) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}
	_, err = s.conn(ctx)
	return err
}

func (s *SQL) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = uuid.New().String()
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	return translate(db.Create(user).Error)
}

func (s *SQL) UserByID(ctx context.Context, id string) (*models.User, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *SQL) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *SQL) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *SQL) CountUsers(ctx context.Context) (int64, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	err = db.Model(&models.User{}).Count(&n).Error
	return n, translate(err)
}

func (s *SQL) CreateRequest(ctx context.Context, req *models.BloodRequest) error {
	req.ID = uuid.New().String()
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	return translate(db.Create(req).Error)
}

func (s *SQL) RequestByID(ctx context.Context, id string) (*models.BloodRequest, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var req models.BloodRequest
	if err := db.Where("id = ?", id).First(&req).Error; err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

// ListRequests pushes the equality filters down to the database; ordering and
// the limit go through newestFirst so both backends truncate the same way.
func (s *SQL) ListRequests(ctx context.Context, f Filter) ([]models.BloodRequest, error) {
	var out []models.BloodRequest
	q, err := s.filtered(ctx, &models.BloodRequest{}, f, "user_id")
	if err != nil {
		return nil, err
	}
	if err := q.Order("created_at DESC").Order(s.tieBreak()).Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return newestFirst(out, requestCreated, f.Limit), nil
}

func (s *SQL) UpdateRequestStatus(ctx context.Context, id, status string, at time.Time) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	res := db.Model(&models.BloodRequest{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": at})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQL) CreateDonation(ctx context.Context, d *models.DonationSchedule) error {
	d.ID = uuid.New().String()
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	return translate(db.Create(d).Error)
}

func (s *SQL) DonationByID(ctx context.Context, id string) (*models.DonationSchedule, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var d models.DonationSchedule
	if err := db.Where("id = ?", id).First(&d).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *SQL) ListDonations(ctx context.Context, f Filter) ([]models.DonationSchedule, error) {
	var out []models.DonationSchedule
	q, err := s.filtered(ctx, &models.DonationSchedule{}, f, "donor_id")
	if err != nil {
		return nil, err
	}
	if err := q.Order("created_at DESC").Order(s.tieBreak()).Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return newestFirst(out, donationCreated, f.Limit), nil
}

func (s *SQL) UpdateDonationStatus(ctx context.Context, id, status, notes string, at time.Time) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	changes := map[string]interface{}{"status": status, "updated_at": at}
	if notes != "" {
		changes["notes"] = notes
	}
	res := db.Model(&models.DonationSchedule{}).Where("id = ?", id).Updates(changes)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQL) InventoryByKey(ctx context.Context, hospital, bloodType string) (*models.InventoryRecord, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var rec models.InventoryRecord
	err = db.Where("hospital = ? AND blood_type = ?", hospital, bloodType).First(&rec).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

func (s *SQL) ListInventory(ctx context.Context, f Filter) ([]models.InventoryRecord, error) {
	var out []models.InventoryRecord
	q, err := s.filtered(ctx, &models.InventoryRecord{}, Filter{Hospital: f.Hospital, BloodType: f.BloodType}, "")
	if err != nil {
		return nil, err
	}
	if err := q.Order("created_at DESC").Order(s.tieBreak()).Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return newestFirst(out, inventoryCreated, f.Limit), nil
}

// SaveInventory upserts on the composite key. created_at is only written on insert.
func (s *SQL) SaveInventory(ctx context.Context, rec *models.InventoryRecord) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	rec.ID = models.InventoryKey(rec.Hospital, rec.BloodType)
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"units_available", "expiry_date", "last_updated_by", "updated_at"}),
	}).Create(rec).Error
	return translate(err)
}

func (s *SQL) filtered(ctx context.Context, model interface{}, f Filter, ownerColumn string) (*gorm.DB, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	q := db.Model(model)
	if f.UserID != "" && ownerColumn != "" {
		q = q.Where(ownerColumn+" = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.BloodType != "" {
		q = q.Where("blood_type = ?", f.BloodType)
	}
	if f.Hospital != "" {
		q = q.Where("hospital = ?", f.Hospital)
	}
	return q, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	default:
		return err
	}
}
