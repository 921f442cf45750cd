package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"schedule-manager/internal/model"
	"schedule-manager/internal/service"
)

type conversationStage int

const (
	stageRegisterUserName conversationStage = iota + 1
	stageRegisterEmail
	stageRegisterPassword
	stageLoginUserName
	stageLoginPassword
	stageCategoryName
	stageTaskTitle
	stageTaskDescription
	stageTaskCategory
	stageTaskStartTime
	stageTaskPriority
	stageTaskStatus
)

// Accepted formats for a start time typed by the user.
var startTimeLayouts = []string{
	"2006-01-02 15:04",
	"02.01.2006 15:04",
	"2006-01-02",
}

type conversationState struct {
	stage      conversationStage
	register   service.RegisterInput
	task       service.TaskInput
	categories map[string]uint
}

func (b *Bot) setConversation(chatID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[chatID] = state
}

func (b *Bot) getConversation(chatID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[chatID]
}

func (b *Bot) hasConversation(chatID int64) bool {
	return b.getConversation(chatID) != nil
}

func (b *Bot) clearConversation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
}

func (b *Bot) startNewTask(chatID int64) error {
	b.setConversation(chatID, &conversationState{stage: stageTaskTitle})
	return b.sendWithReplyMarkup(chatID, "➕ Новая задача.\n<b>Шаг 1:</b> напиши название.", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	state := b.getConversation(chatID)
	if state == nil {
		return nil
	}
	text := strings.TrimSpace(msg.Text)

	switch state.stage {
	case stageRegisterUserName:
		if text == "" {
			return b.sendText(chatID, "Имя пользователя не может быть пустым.")
		}
		state.register.UserName = text
		state.stage = stageRegisterEmail
		return b.sendWithReplyMarkup(chatID, "<b>Шаг 2:</b> укажи e-mail.", cancelKeyboard())

	case stageRegisterEmail:
		state.register.Email = text
		state.stage = stageRegisterPassword
		return b.sendWithReplyMarkup(chatID, "<b>Шаг 3:</b> придумай пароль. Сообщение с ним я удалю.", cancelKeyboard())

	case stageRegisterPassword:
		b.deleteMessage(chatID, msg.MessageID)
		state.register.Password = text
		b.clearConversation(chatID)
		return b.finishRegister(ctx, chatID, state.register)

	case stageLoginUserName:
		state.register.UserName = text
		state.stage = stageLoginPassword
		return b.sendWithReplyMarkup(chatID, "Пароль?", cancelKeyboard())

	case stageLoginPassword:
		b.deleteMessage(chatID, msg.MessageID)
		b.clearConversation(chatID)
		return b.finishLogin(ctx, chatID, state.register.UserName, text)

	case stageCategoryName:
		b.clearConversation(chatID)
		return b.withUser(chatID, func(userID uint) error { return b.createCategory(ctx, chatID, userID, text) })

	case stageTaskTitle:
		if text == "" {
			return b.sendText(chatID, "Название не может быть пустым. Попробуй ещё раз.")
		}
		state.task.Title = text
		state.stage = stageTaskDescription
		return b.sendWithReplyMarkup(chatID, "<b>Шаг 2:</b> добавь описание или нажми «Пропустить».", skipKeyboard())

	case stageTaskDescription:
		if !isSkipInput(text) {
			state.task.Description = text
		}
		state.stage = stageTaskCategory
		return b.withUser(chatID, func(userID uint) error { return b.askCategory(ctx, chatID, userID, state) })

	case stageTaskCategory:
		categoryID, ok := state.categories[strings.ToLower(text)]
		if !ok {
			return b.sendText(chatID, "Такой категории нет. Выбери из списка кнопок.")
		}
		state.task.CategoryID = categoryID
		state.stage = stageTaskStartTime
		return b.sendWithReplyMarkup(chatID,
			"<b>Шаг 4:</b> когда начать? Формат <code>2024-03-01 09:00</code>.\n«Пропустить» — прямо сейчас.",
			skipKeyboard())

	case stageTaskStartTime:
		start, err := b.parseStartTime(text)
		if err != nil {
			return b.sendText(chatID, "Не могу распознать время. Пример: <code>2024-03-01 09:00</code>.")
		}
		state.task.StartTime = &start
		state.stage = stageTaskPriority
		return b.sendWithReplyMarkup(chatID, "<b>Шаг 5:</b> выбери приоритет.", priorityKeyboard())

	case stageTaskPriority:
		priority, ok := parsePriorityInput(text)
		if !ok {
			return b.sendText(chatID, "Выбери приоритет кнопкой.")
		}
		state.task.Priority = string(priority)
		state.stage = stageTaskStatus
		return b.sendWithReplyMarkup(chatID, "<b>Шаг 6:</b> какой статус у задачи?", statusKeyboard())

	case stageTaskStatus:
		status, ok := parseStatusInput(text)
		if !ok {
			return b.sendText(chatID, "Выбери статус кнопкой.")
		}
		state.task.Status = string(status)
		b.clearConversation(chatID)
		return b.withUser(chatID, func(userID uint) error {
			state.task.UserID = userID
			return b.finishTask(ctx, chatID, state.task)
		})
	}

	b.clearConversation(chatID)
	return nil
}

func (b *Bot) askCategory(ctx context.Context, chatID int64, userID uint, state *conversationState) error {
	categories, err := b.svc.Categories.ListCategories(ctx, userID)
	if err != nil {
		b.clearConversation(chatID)
		return b.replyError(chatID, "Не удалось получить категории", err)
	}
	if len(categories) == 0 {
		b.clearConversation(chatID)
		return b.sendText(chatID, "Сначала создай категорию: /newcategory.")
	}
	state.categories = make(map[string]uint, len(categories))
	for _, c := range categories {
		state.categories[strings.ToLower(c.Name)] = c.ID
	}
	return b.sendWithReplyMarkup(chatID, "<b>Шаг 3:</b> выбери категорию.", categoryKeyboard(categories))
}

func (b *Bot) finishRegister(ctx context.Context, chatID int64, in service.RegisterInput) error {
	user, err := b.svc.Users.Register(ctx, in)
	if err != nil {
		return b.replyError(chatID, "Регистрация не удалась", err)
	}
	b.setSession(chatID, user.ID)
	b.log.Info("user registered via bot", zap.Uint("user_id", user.ID), zap.Int64("chat_id", chatID))
	return b.sendText(chatID, fmt.Sprintf(
		"🎉 Готово, %s! Я создал категории %s.\nДобавь первую задачу: /newtask",
		escape(user.UserName), escape(strings.Join(model.DefaultCategoryNames, ", "))))
}

func (b *Bot) finishLogin(ctx context.Context, chatID int64, userName, password string) error {
	user, err := b.svc.Users.Login(ctx, userName, password)
	if err != nil {
		return b.replyError(chatID, "Вход не выполнен", err)
	}
	b.setSession(chatID, user.ID)
	return b.sendText(chatID, fmt.Sprintf("✅ С возвращением, %s!", escape(user.UserName)))
}

func (b *Bot) finishTask(ctx context.Context, chatID int64, in service.TaskInput) error {
	task, err := b.svc.Tasks.CreateTask(ctx, in)
	if err != nil {
		return b.replyError(chatID, "Не удалось создать задачу", err)
	}
	b.log.Info("task created via bot", zap.Uint("task_id", task.ID), zap.Uint("user_id", task.UserID))
	return b.sendText(chatID, fmt.Sprintf("✅ Задача #%d «%s» добавлена.", task.ID, escape(task.Title)))
}

func (b *Bot) parseStartTime(text string) (time.Time, error) {
	if isSkipInput(text) {
		return b.now().In(b.loc), nil
	}
	var lastErr error
	for _, layout := range startTimeLayouts {
		t, err := time.ParseInLocation(layout, text, b.loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.log.Debug("delete message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
