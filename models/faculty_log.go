package models

import "time"

const (
	FacultyActionAdd  = "add"
	FacultyActionRate = "rate"
)

// FacultyLog is the append-only audit trail of add and rate actions.
// Entries reference faculty by name, not by id.
type FacultyLog struct {
	LogID       uint      `gorm:"primaryKey;column:log_id" json:"id"`
	UserID      string    `gorm:"column:user_id;type:char(36);not null;index:idx_faculty_logs_user_action,priority:1" json:"user_id"`
	FacultyName string    `gorm:"column:faculty_name;size:255;not null;index" json:"faculty_name"`
	Action      string    `gorm:"column:action;size:16;not null;index:idx_faculty_logs_user_action,priority:2" json:"action"`
	RateKey     *string   `gorm:"column:rate_key;size:300;uniqueIndex" json:"-"`
	LoggedAt    time.Time `gorm:"column:logged_at;not null;index:idx_faculty_logs_user_action,priority:3" json:"timestamp"`
}

func (FacultyLog) TableName() string {
	return "faculty_logs"
}

// RateKey builds the uniqueness key of a rate entry for (user, faculty name).
func RateKey(userID, facultyName string) string {
	return userID + ":" + NameKey(facultyName)
}
