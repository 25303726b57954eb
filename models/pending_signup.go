package models

import "time"

// PendingSignup keeps an unverified local signup until its OTP is confirmed or it expires.
type PendingSignup struct {
	Email        string    `gorm:"primaryKey;column:email;size:255" json:"email"`
	Username     string    `gorm:"column:username;size:255;not null" json:"username"`
	Phno         string    `gorm:"column:phno;size:32" json:"phno"`
	PasswordHash string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	OTPHash      string    `gorm:"column:otp_hash;size:255;not null" json:"-"`
	Attempts     int       `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastSentAt   time.Time `gorm:"column:last_sent_at;not null" json:"last_sent_at"`
	ExpiresAt    time.Time `gorm:"column:expires_at;not null;index" json:"expires_at"`
}

func (PendingSignup) TableName() string {
	return "pending_signups"
}

// Live reports whether the signup can still be verified at now.
func (p *PendingSignup) Live(now time.Time) bool {
	return now.Before(p.ExpiresAt)
}
