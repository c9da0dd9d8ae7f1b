package models

import (
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Request statuses. "fulfilled" comes from the admin console, "successful" from the API.
const (
	RequestPending    = "pending"
	RequestFulfilled  = "fulfilled"
	RequestSuccessful = "successful"
	RequestRejected   = "rejected"
)

const (
	DonationScheduled = "scheduled"
	DonationCompleted = "completed"
	DonationCancelled = "cancelled"
)

const (
	UrgencyNormal = "normal"
	UrgencyUrgent = "urgent"
)

const UnknownUserName = "Unknown User"

var BloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// Hospitals is the fixed set the inventory skeleton is seeded with.
var Hospitals = []string{
	"City General Hospital",
	"Metropolitan Medical Center",
	"St. Mary's Hospital",
	"Regional Blood Bank",
	"University Hospital",
	"Central Blood Center",
	"Community Health Hospital",
	"Emergency Medical Center",
	"District Hospital",
	"Primary Care Blood Bank",
}

var RequestStatuses = []string{RequestPending, RequestFulfilled, RequestSuccessful, RequestRejected}

var DonationStatuses = []string{DonationScheduled, DonationCompleted, DonationCancelled}

type User struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Email        *string   `gorm:"size:120;uniqueIndex" json:"email,omitempty"`
	Username     *string   `gorm:"size:100;uniqueIndex" json:"username,omitempty"`
	PasswordHash string    `gorm:"size:256;not null" json:"-"`
	Role         string    `gorm:"size:10;not null;default:'user'" json:"role"`
	BloodGroup   string    `gorm:"size:5;not null" json:"blood_group"`
	Mobile       string    `gorm:"size:20;not null" json:"mobile"`
	Hospital     string    `gorm:"size:200" json:"hospital,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "blood_bank_users"
}

// Login returns whichever credential the user signs in with.
func (u *User) Login() string {
	if u.Email != nil {
		return *u.Email
	}
	if u.Username != nil {
		return *u.Username
	}
	return ""
}

type BloodRequest struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	UserID    string    `gorm:"size:64;not null;index" json:"user_id"`
	Hospital  string    `gorm:"size:200;not null" json:"hospital"`
	BloodType string    `gorm:"size:5;not null;index" json:"blood_type"`
	Units     int       `gorm:"not null;check:units > 0" json:"units"`
	Urgency   string    `gorm:"size:20;not null;default:'normal'" json:"urgency"`
	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	Status    string    `gorm:"size:20;not null;index" json:"status"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserName   string `gorm:"-" json:"user_name,omitempty"`
	UserMobile string `gorm:"-" json:"user_mobile,omitempty"`
}

func (BloodRequest) TableName() string {
	return "blood_requests"
}

type DonationSchedule struct {
	ID            string    `gorm:"primaryKey;size:64" json:"id"`
	DonorID       string    `gorm:"size:64;index" json:"donor_id"`
	DonorName     string    `gorm:"size:100;not null" json:"donor_name"`
	DonationDate  string    `gorm:"size:10;not null" json:"donation_date"`
	DonationTime  string    `gorm:"size:5;not null" json:"donation_time"`
	BloodType     string    `gorm:"size:5;not null;index" json:"blood_type"`
	ContactNumber string    `gorm:"size:20;not null" json:"contact_number"`
	Hospital      string    `gorm:"size:200;not null;index" json:"hospital"`
	Status        string    `gorm:"size:20;not null;index" json:"status"`
	Notes         string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	UserName string `gorm:"-" json:"user_name,omitempty"`
}

func (DonationSchedule) TableName() string {
	return "donations"
}

type InventoryRecord struct {
	ID             string    `gorm:"primaryKey;size:220" json:"id"`
	Hospital       string    `gorm:"size:200;not null;uniqueIndex:idx_inventory_hospital_type,priority:1" json:"hospital"`
	BloodType      string    `gorm:"size:5;not null;uniqueIndex:idx_inventory_hospital_type,priority:2" json:"blood_type"`
	UnitsAvailable int       `gorm:"not null;default:0" json:"units_available"`
	ExpiryDate     string    `gorm:"size:10" json:"expiry_date,omitempty"`
	LastUpdatedBy  string    `gorm:"size:64" json:"last_updated_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (InventoryRecord) TableName() string {
	return "blood_inventory"
}

// InventoryKey is the composite identifier of an inventory record.
func InventoryKey(hospital, bloodType string) string {
	return hospital + "#" + bloodType
}

func IsBloodGroup(s string) bool {
	return contains(BloodGroups, s)
}

func IsRequestStatus(s string) bool {
	return contains(RequestStatuses, s)
}

func IsDonationStatus(s string) bool {
	return contains(DonationStatuses, s)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
