package model

import "time"

// DefaultCategoryNames are created for every new user, in this order.
var DefaultCategoryNames = []string{"Personal", "Work", "Grocery List"}

// Category groups a user's tasks. Names are unique per user.
type Category struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_user_category_name"`
	Name      string `gorm:"size:50;not null;uniqueIndex:idx_user_category_name"`
	CreatedAt time.Time

	Tasks []Task `gorm:"constraint:OnDelete:CASCADE"`
}
