package userdir

import "time"

type User struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Username    string     `json:"username" gorm:"size:100;not null;uniqueIndex"`
	Email       string     `json:"email" gorm:"size:100;not null;uniqueIndex"`
	Password    string     `json:"-" gorm:"size:255;not null"`
	Active      bool       `json:"active" gorm:"not null;default:true"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}
