package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	httpmiddleware "github.com/cidadeativa/zeladoria/internal/http/middleware"
	"github.com/cidadeativa/zeladoria/internal/repo"
	"github.com/cidadeativa/zeladoria/internal/service"
)

// Handler orquestra rotas administrativas de usuários.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Use(httpmiddleware.RequireAdmin)
		r.Get("/", h.handleList)
		r.Get("/skills/list", h.handleSkills)
		r.Post("/create_worker", h.handleCreateWorker)
		r.Get("/{id}", h.handleShow)
		r.Put("/{id}", h.handleUpdate)
		r.Patch("/{id}", h.handleUpdate)
	})
}

type userInput struct {
	Name     string        `json:"name"`
	CPF      string        `json:"cpf"`
	Email    string        `json:"email"`
	Phone    string        `json:"phone"`
	Birthday string        `json:"birthday"`
	Address  *repo.Address `json:"address"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	summaries, err := h.service.List(ctx)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "GET /users", start)
	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handleShow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "usuário não encontrado", nil)
		return
	}

	detail, err := h.service.Get(ctx, id)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "GET /users/{id}", start)
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "usuário não encontrado", nil)
		return
	}

	var body struct {
		User     userInput    `json:"user"`
		SkillIDs *[]uuid.UUID `json:"skill_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	detail, err := h.service.UpdateWorker(ctx, id, UpdateWorkerParams{
		Name:     body.User.Name,
		Email:    body.User.Email,
		Phone:    body.User.Phone,
		Birthday: body.User.Birthday,
		Address:  body.User.Address,
		SkillIDs: body.SkillIDs,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "PUT /users/{id}", start)
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleCreateWorker(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var body struct {
		User     userInput   `json:"user"`
		Password string      `json:"password"`
		SkillIDs []uuid.UUID `json:"skill_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	var address repo.Address
	if body.User.Address != nil {
		address = *body.User.Address
	}

	detail, err := h.service.CreateWorker(ctx, CreateWorkerParams{
		Name:     body.User.Name,
		CPF:      body.User.CPF,
		Email:    body.User.Email,
		Phone:    body.User.Phone,
		Birthday: body.User.Birthday,
		Password: body.Password,
		Address:  address,
		SkillIDs: body.SkillIDs,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "POST /users/create_worker", start)
	writeJSON(w, http.StatusCreated, detail)
}

func (h *Handler) handleSkills(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	skills, err := h.service.Skills(ctx)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "GET /users/skills/list", start)
	writeJSON(w, http.StatusOK, skills)
}

func handleDomainError(w http.ResponseWriter, err error) {
	var validation *service.ValidationError
	switch {
	case errors.As(err, &validation):
		writeValidationErrors(w, validation.Messages)
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "usuário não encontrado", nil)
	case errors.Is(err, ErrOnlyWorkers):
		writeError(w, http.StatusUnprocessableEntity, "CONFLICT", err.Error(), nil)
	default:
		log.Error().Err(err).Msg("users: erro interno")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
	}
}

type errorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": &errorBody{Code: code, Message: message, Details: details},
	})
}

func writeValidationErrors(w http.ResponseWriter, messages []string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	_ = json.NewEncoder(w).Encode(map[string]any{"errors": messages})
}

func logRequest(ctx context.Context, label string, start time.Time) {
	logger := log.Ctx(ctx)
	if logger == nil {
		logger = &log.Logger
	}
	reqID := chimiddleware.GetReqID(ctx)
	logger.Info().Str("request_id", reqID).Str("label", label).Dur("duration", time.Since(start)).Msg("users_request")
}
