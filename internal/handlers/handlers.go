package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"schedule-manager/internal/dto"
	"schedule-manager/internal/model"
	"schedule-manager/internal/service"
)

type UserManager interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
	Login(ctx context.Context, userName, password string) (*model.User, error)
}

type CategoryManager interface {
	CreateCategory(ctx context.Context, userID uint, name string) (*model.Category, error)
}

type TaskManager interface {
	CreateTask(ctx context.Context, input service.TaskInput) (*model.Task, error)
	UpdateTask(ctx context.Context, taskID uint, input service.TaskInput) (*model.Task, error)
	ListTasksByUser(ctx context.Context, userID uint) ([]model.Task, error)
	ListTasksByUserAndDate(ctx context.Context, userID uint, date string) ([]model.Task, error)
}

type Aggregator interface {
	CountByCategoryAndStatus(ctx context.Context, userID uint) (model.CategoryCounts, error)
	StatisticsForCharts(ctx context.Context, userID uint) (model.CategoryCounts, error)
	CategoryOverview(ctx context.Context, userID uint) ([]service.CategorySummary, error)
}

// Handler serves the JSON API.
type Handler struct {
	users      UserManager
	categories CategoryManager
	tasks      TaskManager
	stats      Aggregator
	health     func(ctx context.Context) error
	log        *zap.Logger
}

func New(users UserManager, categories CategoryManager, tasks TaskManager, stats Aggregator, health func(ctx context.Context) error, log *zap.Logger) *Handler {
	return &Handler{users: users, categories: categories, tasks: tasks, stats: stats, health: health, log: log}
}

// Router mounts every endpoint under /schedule-manager.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logging(h.log))
	r.Use(chimw.Recoverer)

	r.Get("/health", h.Health)

	r.Route("/schedule-manager", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		r.Post("/category/create", h.CreateCategory)
		r.Get("/category", h.ListCategories)

		r.Post("/task/create", h.CreateTask)
		r.Get("/task", h.ListTasks)
		r.Get("/task/by-date", h.ListTasksByDate)
		r.Get("/task/count", h.CountTasks)
		r.Get("/task/statistics", h.TaskStatistics)
		r.Put("/task/{taskId}", h.UpdateTask)
	})
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			h.log.Warn("health check failed", zap.Error(err))
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.users.Register(r.Context(), service.RegisterInput{
		UserName: req.UserName,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.log.Info("user registered", zap.Uint("user_id", user.ID))
	respondJSON(w, http.StatusCreated, dto.NewUserResponse(user))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.users.Login(r.Context(), req.UserName, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewUserResponse(user))
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req dto.CategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	category, err := h.categories.CreateCategory(r.Context(), req.UserID, req.Name)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewCategoryResponse(*category, model.NewStatusCounts()))
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(w, r, "userId", r.URL.Query().Get("userId"))
	if !ok {
		return
	}
	summaries, err := h.stats.CategoryOverview(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewCategoryOverview(summaries))
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req dto.TaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := h.tasks.CreateTask(r.Context(), req.ToInput())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewTaskResponse(*task))
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := parseID(w, r, "taskId", chi.URLParam(r, "taskId"))
	if !ok {
		return
	}
	var req dto.TaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := h.tasks.UpdateTask(r.Context(), taskID, req.ToInput())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewTaskResponse(*task))
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(w, r, "userId", r.URL.Query().Get("userId"))
	if !ok {
		return
	}
	tasks, err := h.tasks.ListTasksByUser(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewTaskResponses(tasks))
}

func (h *Handler) ListTasksByDate(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(w, r, "userId", r.URL.Query().Get("userId"))
	if !ok {
		return
	}
	tasks, err := h.tasks.ListTasksByUserAndDate(r.Context(), userID, r.URL.Query().Get("date"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewTaskResponses(tasks))
}

func (h *Handler) CountTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(w, r, "userId", r.URL.Query().Get("userId"))
	if !ok {
		return
	}
	counts, err := h.stats.CountByCategoryAndStatus(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

func (h *Handler) TaskStatistics(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(w, r, "userId", r.URL.Query().Get("userId"))
	if !ok {
		return
	}
	counts, err := h.stats.StatisticsForCharts(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}
