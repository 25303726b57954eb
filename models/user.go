package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

type User struct {
	UserID    string     `gorm:"primaryKey;column:user_id;type:char(36)" json:"id"`
	Username  string     `gorm:"column:username;size:255;not null" json:"username"`
	Email     string     `gorm:"column:email;size:255;not null;unique" json:"email"`
	Phno      string     `gorm:"column:phno;size:32;index" json:"phno"`
	Password  string     `gorm:"column:password;size:255" json:"-"`
	Provider  string     `gorm:"column:provider;size:16;not null" json:"provider"`
	Role      string     `gorm:"column:role;size:16;not null;default:user" json:"role"`
	Verified  bool       `gorm:"column:verified;not null;default:false" json:"verified"`
	Banned    bool       `gorm:"column:banned;not null;default:false" json:"banned"`
	CreateAt  time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt  time.Time  `gorm:"column:update_at" json:"update_at"`
	DeleteAt  *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// TableName overrides
func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == "" {
		u.UserID = uuid.NewString()
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
