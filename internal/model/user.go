package model

import "time"

// User is an account that owns categories and tasks.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"userId"`
	UserName  string    `gorm:"size:50;uniqueIndex;not null" json:"userName"`
	Password  string    `gorm:"type:text;not null" json:"-"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Categories []Category `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
