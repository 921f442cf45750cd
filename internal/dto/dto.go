package dto

import (
	"fmt"
	"strings"
	"time"

	"schedule-manager/internal/model"
	"schedule-manager/internal/service"
)

type RegisterRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type LoginRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

type UserResponse struct {
	UserID    uint      `json:"userId"`
	UserName  string    `json:"userName"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewUserResponse(u *model.User) UserResponse {
	return UserResponse{UserID: u.ID, UserName: u.UserName, Email: u.Email, CreatedAt: u.CreatedAt}
}

type CategoryRequest struct {
	UserID uint   `json:"userId"`
	Name   string `json:"name"`
}

type CategoryResponse struct {
	CategoryID      uint      `json:"categoryId"`
	Name            string    `json:"name"`
	UserID          uint      `json:"userId"`
	CreatedAt       time.Time `json:"createdAt"`
	PendingCount    int       `json:"pendingCount"`
	DoneCount       int       `json:"doneCount"`
	InProgressCount int       `json:"inprogressCount"`
}

func NewCategoryResponse(c model.Category, counts model.StatusCounts) CategoryResponse {
	return CategoryResponse{
		CategoryID:      c.ID,
		Name:            c.Name,
		UserID:          c.UserID,
		CreatedAt:       c.CreatedAt,
		PendingCount:    counts[string(model.StatusPending)],
		DoneCount:       counts[string(model.StatusDone)],
		InProgressCount: counts[string(model.StatusInProgress)],
	}
}

func NewCategoryOverview(summaries []service.CategorySummary) []CategoryResponse {
	out := make([]CategoryResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, NewCategoryResponse(s.Category, s.Counts))
	}
	return out
}

// DateTime accepts RFC 3339 and the zone-less "2006-01-02T15:04:05" form (read as UTC).
type DateTime struct {
	time.Time
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

func ParseDateTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time %q", raw)
}

func (d *DateTime) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "" || raw == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := ParseDateTime(raw)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

type TaskRequest struct {
	CategoryID  uint      `json:"categoryId"`
	UserID      uint      `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	StartTime   *DateTime `json:"startTime"`
}

func (r TaskRequest) ToInput() service.TaskInput {
	in := service.TaskInput{
		CategoryID:  r.CategoryID,
		UserID:      r.UserID,
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
		Status:      r.Status,
	}
	if r.StartTime != nil && !r.StartTime.IsZero() {
		t := r.StartTime.Time
		in.StartTime = &t
	}
	return in
}

type TaskResponse struct {
	TaskID       uint       `json:"taskId"`
	CategoryID   uint       `json:"categoryId"`
	CategoryName string     `json:"categoryName"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Priority     string     `json:"priority"`
	Status       string     `json:"status"`
	StartTime    *time.Time `json:"startTime"`
	CreatedTime  time.Time  `json:"createdTime"`
	UserID       uint       `json:"userId"`
}

func NewTaskResponse(t model.Task) TaskResponse {
	return TaskResponse{
		TaskID:       t.ID,
		CategoryID:   t.CategoryID,
		CategoryName: t.CategoryName(),
		Title:        t.Title,
		Description:  t.Description,
		Priority:     string(t.Priority),
		Status:       string(t.Status),
		StartTime:    t.StartTime,
		CreatedTime:  t.CreatedAt,
		UserID:       t.UserID,
	}
}

func NewTaskResponses(tasks []model.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, NewTaskResponse(t))
	}
	return out
}
