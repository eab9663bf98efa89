package models

import "time"

type User struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string     `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email     string     `gorm:"size:128;uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"not null" json:"-"`
	FullName  string     `gorm:"size:128;not null" json:"full_name"`
	IsActive  bool       `gorm:"default:true" json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Client struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"index;not null" json:"user_id"`
	Name        string    `gorm:"size:128;not null" json:"name"`
	CompanyName string    `gorm:"size:128" json:"company_name"`
	Email       string    `gorm:"size:128" json:"email"`
	Phone       string    `gorm:"size:32" json:"phone"`
	Address     string    `gorm:"type:text" json:"address"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
