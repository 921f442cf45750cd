package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"schedule-manager/internal/model"
)

const cbStatusPrefix = "status:"

const (
	btnSkip             = "⏭️ Пропустить"
	btnCancelDialog     = "⏪ Отменить ввод"
	menuLabelNewTask    = "➕ Новая задача"
	menuLabelTasks      = "📋 Задачи"
	menuLabelToday      = "📅 Сегодня"
	menuLabelCategories = "📂 Категории"
	menuLabelStats      = "📊 Статистика"
	menuLabelHelp       = "ℹ️ Помощь"
)

type choice[T any] struct {
	label string
	value T
}

var priorityChoices = []choice[model.Priority]{
	{"🔵 Низкий", model.PriorityLow},
	{"⚪ Обычный", model.PriorityNormal},
	{"🟡 Средний", model.PriorityMedium},
	{"🟠 Высокий", model.PriorityHigh},
	{"🔴 Важный", model.PriorityImportant},
}

var statusChoices = []choice[model.Status]{
	{"⏳ Ожидает", model.StatusPending},
	{"🔄 В работе", model.StatusInProgress},
	{"✅ Готово", model.StatusDone},
}

func statusLabel(status model.Status) string {
	switch status {
	case model.StatusDone:
		return "готово"
	case model.StatusInProgress:
		return "в работе"
	default:
		return "ожидает"
	}
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
			tgbotapi.NewKeyboardButton(menuLabelToday),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelCategories),
			tgbotapi.NewKeyboardButton(menuLabelStats),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnSkip)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

// categoryKeyboard lays out the user's categories two per row.
func categoryKeyboard(categories []model.Category) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	var row []tgbotapi.KeyboardButton
	for _, c := range categories {
		row = append(row, tgbotapi.NewKeyboardButton(c.Name))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)))

	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func priorityKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(priorityChoices[0].label),
			tgbotapi.NewKeyboardButton(priorityChoices[1].label),
			tgbotapi.NewKeyboardButton(priorityChoices[2].label),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(priorityChoices[3].label),
			tgbotapi.NewKeyboardButton(priorityChoices[4].label),
		),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func statusKeyboard() tgbotapi.ReplyKeyboardMarkup {
	var row []tgbotapi.KeyboardButton
	for _, c := range statusChoices {
		row = append(row, tgbotapi.NewKeyboardButton(c.label))
	}
	kb := tgbotapi.NewReplyKeyboard(
		row,
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

// statusButtons offers the transitions still open for a task.
func statusButtons(task model.Task) []tgbotapi.InlineKeyboardButton {
	title := shortTitle(task.Title, 18)
	var row []tgbotapi.InlineKeyboardButton
	if task.Status == model.StatusPending {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("🔄 #%d · %s", task.ID, title), statusCallback(task.ID, model.StatusInProgress)))
	}
	if task.Status != model.StatusDone {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("✅ #%d", task.ID), statusCallback(task.ID, model.StatusDone)))
	}
	return row
}

func statusCallback(taskID uint, status model.Status) string {
	return fmt.Sprintf("%s%d:%s", cbStatusPrefix, taskID, status)
}

func parseStatusCallback(data string) (uint, model.Status, bool) {
	rest, ok := strings.CutPrefix(data, cbStatusPrefix)
	if !ok {
		return 0, "", false
	}
	rawID, rawStatus, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, "", false
	}
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return 0, "", false
	}
	status, err := model.ParseStatus(rawStatus)
	if err != nil {
		return 0, "", false
	}
	return uint(id), status, true
}

func parsePriorityInput(text string) (model.Priority, bool) {
	for _, c := range priorityChoices {
		if strings.EqualFold(strings.TrimSpace(text), c.label) {
			return c.value, true
		}
	}
	p, err := model.ParsePriority(text)
	return p, err == nil
}

func parseStatusInput(text string) (model.Status, bool) {
	for _, c := range statusChoices {
		if strings.EqualFold(strings.TrimSpace(text), c.label) {
			return c.value, true
		}
	}
	s, err := model.ParseStatus(text)
	return s, err == nil
}

func isSkipInput(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return t == "" || t == strings.ToLower(btnSkip) || t == "пропустить" || t == "-"
}

func isCancelDialogInput(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return t == strings.ToLower(btnCancelDialog) || t == "отмена"
}

func shortTitle(title string, maxLen int) string {
	clean := strings.Join(strings.Fields(title), " ")
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}
