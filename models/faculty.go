package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RatingDimension holds the running average and sample count of one rating axis.
type RatingDimension struct {
	Average float64 `gorm:"column:average;not null;default:0" json:"average"`
	Count   int     `gorm:"column:count;not null;default:0" json:"count"`
}

// Faculty represents the faculties table
type Faculty struct {
	FacultyID     string `gorm:"primaryKey;column:faculty_id;type:char(36)" json:"id"`
	Name          string `gorm:"column:name;size:255;not null" json:"name"`
	NameKey       string `gorm:"column:name_key;size:255;not null;index" json:"-"`
	Department    string `gorm:"column:department;size:255" json:"department"`
	Bio           string `gorm:"column:bio;type:text" json:"bio"`
	ImageURL      string `gorm:"column:image_url;size:512" json:"image_url"`
	ImagePublicID string `gorm:"column:image_public_id;size:255" json:"image_public_id,omitempty"`

	Teaching   RatingDimension `gorm:"embedded;embeddedPrefix:teaching_" json:"teaching"`
	Correction RatingDimension `gorm:"embedded;embeddedPrefix:correction_" json:"correction"`
	Attendance RatingDimension `gorm:"embedded;embeddedPrefix:attendance_" json:"attendance"`

	Verification bool      `gorm:"column:verification;not null;default:false;index" json:"verification"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Faculty) TableName() string {
	return "faculties"
}

func (f *Faculty) BeforeCreate(tx *gorm.DB) error {
	if f.FacultyID == "" {
		f.FacultyID = uuid.NewString()
	}
	f.NameKey = NameKey(f.Name)
	return nil
}

// Dimensions returns the three rating axes in teaching, correction, attendance order.
func (f *Faculty) Dimensions() [3]*RatingDimension {
	return [3]*RatingDimension{&f.Teaching, &f.Correction, &f.Attendance}
}

// NameKey is the case-folded form used for duplicate detection and log matching.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
