package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the workflow state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusDone}

// ParseStatus accepts the canonical labels case-insensitively.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Statuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

// Priority is the importance tier of a task.
type Priority string

const (
	PriorityLow       Priority = "low"
	PriorityNormal    Priority = "normal"
	PriorityMedium    Priority = "medium"
	PriorityHigh      Priority = "high"
	PriorityImportant Priority = "important"
)

var Priorities = []Priority{PriorityLow, PriorityNormal, PriorityMedium, PriorityHigh, PriorityImportant}

func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Priorities {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q", raw)
}

// Task is a single unit of work inside a category.
type Task struct {
	ID          uint     `gorm:"primaryKey"`
	UserID      uint     `gorm:"not null;index"`
	CategoryID  uint     `gorm:"not null;index"`
	Category    Category `gorm:"foreignKey:CategoryID"`
	Title       string   `gorm:"size:50;not null"`
	Description string   `gorm:"type:text"`
	Priority    Priority `gorm:"size:20"`
	Status      Status   `gorm:"size:20;index"`
	StartTime   *time.Time
	CreatedAt   time.Time
}

// CategoryName returns the resolved category name or an empty string.
func (t Task) CategoryName() string {
	return t.Category.Name
}
