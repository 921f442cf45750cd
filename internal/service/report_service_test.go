package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedule-manager/internal/service"
)

func (s *ServiceSuite) TestDailySummary() {
	u := s.register("alice")
	work := s.categoryID(u.ID, "Work")

	for _, in := range []service.TaskInput{
		{CategoryID: work, UserID: u.ID, Title: "Standup <daily>", Status: "in_progress", Priority: "important", StartTime: at(1, 10)},
		{CategoryID: work, UserID: u.ID, Title: "Coffee", Status: "done", StartTime: at(1, 8)},
		{CategoryID: work, UserID: u.ID, Title: "Later", StartTime: at(4, 8)},
	} {
		_, err := s.tasks.CreateTask(s.ctx, in)
		s.Require().NoError(err)
	}

	report := service.NewReportService(s.tasks, s.stats)
	text, err := report.DailySummary(s.ctx, u.ID, fixedNow)
	s.Require().NoError(err)

	s.Contains(text, "01.03.2024")
	s.Contains(text, "Standup &lt;daily&gt;")
	s.Contains(text, "❗")
	s.NotContains(text, "Later")
	s.Less(strings.Index(text, "Coffee"), strings.Index(text, "Standup"))
	s.Contains(text, "• Work: ⏳ 1 · 🔄 1 · ✅ 1")
}

func TestDailySummaryWithoutTasks(t *testing.T) {
	days := new(MockTaskStore)
	ctx := context.Background()
	days.On("ListByUser", ctx, uint(9)).Return(nil, nil)

	tasks := service.NewTaskService(days, new(MockCategoryStore), new(MockUserStore))
	report := service.NewReportService(tasks, service.NewStatsService(tasks, new(MockCategoryLister)))

	text, err := report.DailySummary(ctx, 9, fixedNow)
	require.NoError(t, err)
	assert.Contains(t, text, "ничего не запланировано")
	assert.Contains(t, text, "задач пока нет")
}
