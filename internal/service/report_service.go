package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"schedule-manager/internal/model"
)

// DayLister lists the tasks that start on a calendar day.
type DayLister interface {
	ListTasksByUserAndDate(ctx context.Context, userID uint, date string) ([]model.Task, error)
}

// CountSource provides per-category status counts.
type CountSource interface {
	CountByCategoryAndStatus(ctx context.Context, userID uint) (model.CategoryCounts, error)
}

// ReportService builds human-readable summaries for daily notifications.
type ReportService struct {
	days   DayLister
	counts CountSource
}

func NewReportService(days DayLister, counts CountSource) *ReportService {
	return &ReportService{days: days, counts: counts}
}

// DailySummary renders today's tasks and the overall progress as Telegram HTML.
func (s *ReportService) DailySummary(ctx context.Context, userID uint, now time.Time) (string, error) {
	today, err := s.days.ListTasksByUserAndDate(ctx, userID, now.Format(DateLayout))
	if err != nil {
		return "", err
	}
	counts, err := s.counts.CountByCategoryAndStatus(ctx, userID)
	if err != nil {
		return "", err
	}

	sort.SliceStable(today, func(i, j int) bool {
		return today[i].StartTime.Before(*today[j].StartTime)
	})

	var builder strings.Builder
	builder.WriteString("📋 <b>Ежедневный отчёт</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("02.01.2006")))

	builder.WriteString("🔥 <b>Задачи на сегодня</b>\n")
	if len(today) == 0 {
		builder.WriteString("— на сегодня ничего не запланировано\n")
	} else {
		for _, task := range today {
			builder.WriteString(FormatTaskLine(task))
		}
	}

	builder.WriteString("\n📊 <b>Прогресс по категориям</b>\n")
	if len(counts) == 0 {
		builder.WriteString("— задач пока нет\n")
	} else {
		builder.WriteString(FormatCounts(counts))
	}

	return strings.TrimSpace(builder.String()), nil
}

// FormatTaskLine renders one task as an HTML line.
func FormatTaskLine(task model.Task) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s <b>#%d</b> %s", StatusIcon(task.Status), task.ID, html.EscapeString(task.Title)))
	if name := strings.TrimSpace(task.CategoryName()); name != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(name)))
	}
	if task.StartTime != nil {
		sb.WriteString(fmt.Sprintf("\n   ⏰ %s", task.StartTime.Format("2006-01-02 15:04")))
	}
	if task.Priority == model.PriorityHigh || task.Priority == model.PriorityImportant {
		sb.WriteString(" · ❗ важно")
	}
	if task.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(task.Description)))
	}
	sb.WriteByte('\n')
	return sb.String()
}

// FormatCounts renders category counts sorted by category name.
func FormatCounts(counts model.CategoryCounts) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		c := counts[name]
		sb.WriteString(fmt.Sprintf("• %s: %s %d · %s %d · %s %d\n",
			html.EscapeString(name),
			StatusIcon(model.StatusPending), c[string(model.StatusPending)],
			StatusIcon(model.StatusInProgress), c[string(model.StatusInProgress)],
			StatusIcon(model.StatusDone), c[string(model.StatusDone)],
		))
	}
	return sb.String()
}

func StatusIcon(status model.Status) string {
	switch status {
	case model.StatusDone:
		return "✅"
	case model.StatusInProgress:
		return "🔄"
	default:
		return "⏳"
	}
}
