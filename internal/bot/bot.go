package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"schedule-manager/internal/model"
	"schedule-manager/internal/service"
)

// botAPI is the subset of *tgbotapi.BotAPI the bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type UserService interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
	Login(ctx context.Context, userName, password string) (*model.User, error)
}

type CategoryService interface {
	CreateCategory(ctx context.Context, userID uint, name string) (*model.Category, error)
	ListCategories(ctx context.Context, userID uint) ([]model.Category, error)
}

type TaskService interface {
	CreateTask(ctx context.Context, input service.TaskInput) (*model.Task, error)
	UpdateTask(ctx context.Context, taskID uint, input service.TaskInput) (*model.Task, error)
	GetTask(ctx context.Context, userID, taskID uint) (*model.Task, error)
	ListTasksByUser(ctx context.Context, userID uint) ([]model.Task, error)
	ListTasksByUserAndDate(ctx context.Context, userID uint, date string) ([]model.Task, error)
}

type StatsService interface {
	CountByCategoryAndStatus(ctx context.Context, userID uint) (model.CategoryCounts, error)
}

type ReportService interface {
	DailySummary(ctx context.Context, userID uint, now time.Time) (string, error)
}

// UserDirectory resolves the accounts behind active chat sessions.
type UserDirectory interface {
	ListByIDs(ctx context.Context, ids []uint) ([]model.User, error)
}

// Services groups the dependencies of the bot.
type Services struct {
	Users      UserService
	Categories CategoryService
	Tasks      TaskService
	Stats      StatsService
	Reports    ReportService
	Directory  UserDirectory
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           botAPI
	svc           Services
	loc           *time.Location
	log           *zap.Logger
	now           func() time.Time
	conversations map[int64]*conversationState
	sessions      map[int64]uint
	mu            sync.Mutex
}

func New(token string, svc Services, loc *time.Location, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Info("bot authorized", zap.String("account", api.Self.UserName))
	return newBot(api, svc, loc, log), nil
}

func newBot(api botAPI, svc Services, loc *time.Location, log *zap.Logger) *Bot {
	if loc == nil {
		loc = time.Local
	}
	return &Bot{
		api:           api,
		svc:           svc,
		loc:           loc,
		log:           log,
		now:           time.Now,
		conversations: make(map[int64]*conversationState),
		sessions:      make(map[int64]uint),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}
	return ctx.Err()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.log.Error("handle callback", zap.Error(err))
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.log.Error("handle message", zap.Int64("chat_id", update.Message.Chat.ID), zap.Error(err))
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	chatID := msg.Chat.ID

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(chatID)
		return b.sendText(chatID, "⏪ Ввод отменён.")
	}

	if msg.IsCommand() {
		b.log.Debug("command", zap.Int64("chat_id", chatID), zap.String("command", msg.Command()))
		return b.handleCommand(ctx, msg)
	}

	if b.hasConversation(chatID) {
		return b.handleConversation(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	return b.sendText(chatID, "Я пока не понял сообщение. Набери /help для списка команд.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(chatID)
	case "register":
		b.setConversation(chatID, &conversationState{stage: stageRegisterUserName})
		return b.sendWithReplyMarkup(chatID, "📝 Регистрация.\n<b>Шаг 1:</b> придумай имя пользователя.", cancelKeyboard())
	case "login":
		b.setConversation(chatID, &conversationState{stage: stageLoginUserName})
		return b.sendWithReplyMarkup(chatID, "🔑 Вход.\nКак тебя зовут в системе?", cancelKeyboard())
	case "logout":
		b.clearSession(chatID)
		b.clearConversation(chatID)
		return b.sendText(chatID, "👋 Ты вышел из аккаунта.")
	case "cancel":
		b.clearConversation(chatID)
		return b.sendText(chatID, "⏪ Ввод отменён.")
	case "categories":
		return b.withUser(chatID, func(userID uint) error { return b.handleCategories(ctx, chatID, userID) })
	case "newcategory":
		return b.withUser(chatID, func(userID uint) error {
			if args != "" {
				return b.createCategory(ctx, chatID, userID, args)
			}
			b.setConversation(chatID, &conversationState{stage: stageCategoryName})
			return b.sendWithReplyMarkup(chatID, "📂 Как назвать новую категорию?", cancelKeyboard())
		})
	case "newtask":
		return b.withUser(chatID, func(userID uint) error { return b.startNewTask(chatID) })
	case "tasks":
		return b.withUser(chatID, func(userID uint) error { return b.sendTaskList(ctx, chatID, userID) })
	case "day":
		return b.withUser(chatID, func(userID uint) error { return b.handleDay(ctx, chatID, userID, args) })
	case "status":
		return b.withUser(chatID, func(userID uint) error { return b.handleStatusCommand(ctx, chatID, userID, args) })
	case "stats":
		return b.withUser(chatID, func(userID uint) error { return b.handleStats(ctx, chatID, userID) })
	case "report":
		return b.withUser(chatID, func(userID uint) error { return b.handleReport(ctx, chatID, userID) })
	default:
		return b.sendText(chatID, "Команда не поддерживается. Загляни в /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "друг"
	}
	text := fmt.Sprintf(
		"👋 Привет, %s!\n<b>Я помогу вести задачи по категориям и следить за прогрессом.</b>\n\n"+
			"Для начала: /register — новый аккаунт или /login — войти.\n"+
			"Все команды: /help",
		escape(name),
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(chatID int64) error {
	text := "ℹ️ <b>Подсказки</b>\n" +
		"• /register — создать аккаунт (категории Personal, Work, Grocery List появятся сами)\n" +
		"• /login, /logout — войти или выйти\n" +
		"• /newtask — добавить задачу пошагово\n" +
		"• /tasks — все задачи, статус меняется кнопками\n" +
		"• /day [2024-03-01] — задачи на день (по умолчанию сегодня)\n" +
		"• /status &lt;id&gt; &lt;pending|in_progress|done&gt; — сменить статус\n" +
		"• /categories, /newcategory [название] — категории\n" +
		"• /stats — сколько задач в каждом статусе\n" +
		"• /report — ежедневный отчёт прямо сейчас\n" +
		"• /cancel — отменить текущий ввод"
	return b.sendText(chatID, text)
}

func (b *Bot) handleCategories(ctx context.Context, chatID int64, userID uint) error {
	categories, err := b.svc.Categories.ListCategories(ctx, userID)
	if err != nil {
		return b.replyError(chatID, "Не удалось получить категории", err)
	}
	if len(categories) == 0 {
		return b.sendText(chatID, "Категорий пока нет. Добавь через /newcategory.")
	}
	var builder strings.Builder
	builder.WriteString("📂 <b>Категории</b>\n")
	for _, c := range categories {
		builder.WriteString(fmt.Sprintf("• %s\n", escape(c.Name)))
	}
	return b.sendText(chatID, strings.TrimSpace(builder.String()))
}

func (b *Bot) createCategory(ctx context.Context, chatID int64, userID uint, name string) error {
	category, err := b.svc.Categories.CreateCategory(ctx, userID, name)
	if err != nil {
		return b.replyError(chatID, "Не удалось создать категорию", err)
	}
	b.log.Info("category created", zap.Uint("user_id", userID), zap.Uint("category_id", category.ID))
	return b.sendText(chatID, fmt.Sprintf("✅ Категория «%s» создана.", escape(category.Name)))
}

func (b *Bot) handleDay(ctx context.Context, chatID int64, userID uint, arg string) error {
	date := arg
	if date == "" {
		date = b.now().In(b.loc).Format(service.DateLayout)
	}
	tasks, err := b.svc.Tasks.ListTasksByUserAndDate(ctx, userID, date)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDate) {
			return b.sendText(chatID, "Не могу распознать дату. Используй формат <code>2024-03-01</code>.")
		}
		return b.replyError(chatID, "Не удалось получить задачи", err)
	}
	if len(tasks) == 0 {
		return b.sendText(chatID, fmt.Sprintf("🗓 На %s задач нет.", escape(date)))
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].StartTime.Before(*tasks[j].StartTime) })

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🗓 <b>Задачи на %s</b>\n\n", escape(date)))
	for _, task := range tasks {
		builder.WriteString(service.FormatTaskLine(task))
	}
	return b.sendText(chatID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleStatusCommand(ctx context.Context, chatID int64, userID uint, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return b.sendText(chatID, "Укажи ID задачи и статус: /status 12 done")
	}
	taskID, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return b.sendText(chatID, "ID задачи должен быть числом.")
	}
	status, err := model.ParseStatus(fields[1])
	if err != nil {
		return b.sendText(chatID, "Статус должен быть одним из: pending, in_progress, done.")
	}
	return b.changeStatus(ctx, chatID, userID, uint(taskID), status)
}

func (b *Bot) changeStatus(ctx context.Context, chatID int64, userID, taskID uint, status model.Status) error {
	task, err := b.svc.Tasks.GetTask(ctx, userID, taskID)
	if err != nil {
		return b.replyError(chatID, "Задача недоступна", err)
	}
	input := inputFromTask(*task)
	input.Status = string(status)

	updated, err := b.svc.Tasks.UpdateTask(ctx, taskID, input)
	if err != nil {
		return b.replyError(chatID, "Не удалось обновить задачу", err)
	}
	b.log.Info("task status changed", zap.Uint("task_id", taskID), zap.String("status", string(status)))
	return b.sendText(chatID, fmt.Sprintf("%s Задача «%s» теперь: %s.",
		service.StatusIcon(updated.Status), escape(updated.Title), statusLabel(updated.Status)))
}

func (b *Bot) handleStats(ctx context.Context, chatID int64, userID uint) error {
	counts, err := b.svc.Stats.CountByCategoryAndStatus(ctx, userID)
	if err != nil {
		return b.replyError(chatID, "Не удалось посчитать статистику", err)
	}
	if len(counts) == 0 {
		return b.sendText(chatID, "📊 Задач пока нет.")
	}
	return b.sendText(chatID, "📊 <b>Статистика</b>\n"+strings.TrimSpace(service.FormatCounts(counts)))
}

func (b *Bot) handleReport(ctx context.Context, chatID int64, userID uint) error {
	text, err := b.svc.Reports.DailySummary(ctx, userID, b.now().In(b.loc))
	if err != nil {
		return b.replyError(chatID, "Не удалось сформировать отчёт", err)
	}
	return b.sendText(chatID, text)
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, userID uint) error {
	tasks, err := b.svc.Tasks.ListTasksByUser(ctx, userID)
	if err != nil {
		return b.replyError(chatID, "Не удалось получить задачи", err)
	}
	if len(tasks) == 0 {
		return b.sendText(chatID, "У тебя нет задач. Добавь новую через /newtask.")
	}

	groups := make(map[string][]model.Task)
	order := make([]string, 0)
	for _, task := range tasks {
		name := task.CategoryName()
		if _, ok := groups[name]; !ok {
			order = append(order, name)
		}
		groups[name] = append(groups[name], task)
	}
	sort.Strings(order)

	var builder strings.Builder
	builder.WriteString("📋 <b>Задачи</b>\n")
	builder.WriteString("Кнопки под списком меняют статус задачи.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, name := range order {
		builder.WriteString(fmt.Sprintf("<b>%s</b>\n", escape(name)))
		for _, task := range groups[name] {
			builder.WriteString(service.FormatTaskLine(task))
			if row := statusButtons(task); len(row) > 0 {
				buttons = append(buttons, row)
			}
		}
		builder.WriteByte('\n')
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	if len(buttons) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	}
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn("callback ack", zap.Error(err))
	}

	taskID, status, ok := parseStatusCallback(cb.Data)
	if !ok {
		return nil
	}
	chatID := cb.Message.Chat.ID
	return b.withUser(chatID, func(userID uint) error {
		return b.changeStatus(ctx, chatID, userID, taskID, status)
	})
}

// SendDailyReports sends a summary to every chat with an active session.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	sessions := b.sessionSnapshot()
	if len(sessions) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(sessions))
	seen := make(map[uint]bool)
	for _, userID := range sessions {
		if !seen[userID] {
			seen[userID] = true
			ids = append(ids, userID)
		}
	}
	users, err := b.svc.Directory.ListByIDs(ctx, ids)
	if err != nil {
		return err
	}
	known := make(map[uint]bool, len(users))
	for _, u := range users {
		known[u.ID] = true
	}

	chats := make([]int64, 0, len(sessions))
	for chatID := range sessions {
		chats = append(chats, chatID)
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i] < chats[j] })

	now := b.now().In(b.loc)
	for _, chatID := range chats {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		userID := sessions[chatID]
		if !known[userID] {
			b.clearSession(chatID)
			continue
		}
		text, err := b.svc.Reports.DailySummary(ctx, userID, now)
		if err != nil {
			b.log.Error("build summary", zap.Uint("user_id", userID), zap.Error(err))
			continue
		}
		if err := b.sendText(chatID, text); err != nil {
			b.log.Error("send summary", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
	return nil
}

func (b *Bot) withUser(chatID int64, fn func(userID uint) error) error {
	userID, ok := b.session(chatID)
	if !ok {
		return b.sendText(chatID, "🔒 Сначала войди: /login или /register.")
	}
	return fn(userID)
}

// replyError shows domain errors to the user and hides everything else.
func (b *Bot) replyError(chatID int64, prefix string, err error) error {
	var domainErr *service.Error
	if errors.As(err, &domainErr) {
		return b.sendText(chatID, fmt.Sprintf("%s: %s", prefix, escape(domainErr.Error())))
	}
	b.log.Error(prefix, zap.Int64("chat_id", chatID), zap.Error(err))
	return b.sendText(chatID, prefix+": внутренняя ошибка, попробуй позже.")
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewTask):
		return true, b.withUser(chatID, func(uint) error { return b.startNewTask(chatID) })
	case strings.ToLower(menuLabelTasks):
		return true, b.withUser(chatID, func(userID uint) error { return b.sendTaskList(ctx, chatID, userID) })
	case strings.ToLower(menuLabelToday):
		return true, b.withUser(chatID, func(userID uint) error { return b.handleDay(ctx, chatID, userID, "") })
	case strings.ToLower(menuLabelCategories):
		return true, b.withUser(chatID, func(userID uint) error { return b.handleCategories(ctx, chatID, userID) })
	case strings.ToLower(menuLabelStats):
		return true, b.withUser(chatID, func(userID uint) error { return b.handleStats(ctx, chatID, userID) })
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(chatID)
	default:
		return false, nil
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) session(chatID int64) (uint, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	userID, ok := b.sessions[chatID]
	return userID, ok
}

func (b *Bot) setSession(chatID int64, userID uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[chatID] = userID
}

func (b *Bot) clearSession(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, chatID)
}

func (b *Bot) sessionSnapshot() map[int64]uint {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[int64]uint, len(b.sessions))
	for k, v := range b.sessions {
		out[k] = v
	}
	return out
}

func inputFromTask(task model.Task) service.TaskInput {
	return service.TaskInput{
		CategoryID:  task.CategoryID,
		UserID:      task.UserID,
		Title:       task.Title,
		Description: task.Description,
		Priority:    string(task.Priority),
		Status:      string(task.Status),
		StartTime:   task.StartTime,
	}
}

func escape(s string) string {
	return html.EscapeString(s)
}
