package tasks

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

// Handler orquestra rotas de solicitações e tarefas.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/dashboard", h.handleDashboard)
		r.Get("/map_data", h.handleMapData)
		r.With(httpmiddleware.RequireCitizen).Post("/task_requests", h.handleCreateRequest)
		r.With(httpmiddleware.RequireWorker).Put("/{id}/status", h.handleUpdateStatus)
		r.With(httpmiddleware.RequireAdmin).Post("/{id}/admin_action", h.handleAdminAction)
		r.Get("/{type}/{id}", h.handleShow)
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	userID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	payload, err := h.service.Dashboard(ctx, userID, httpmiddleware.GetRole(ctx))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "GET /tasks/dashboard", userID, start)
	writeRaw(w, payload)
}

func (h *Handler) handleMapData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	userID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	// filter[] ausente liga as categorias padrão; presente, mesmo vazio,
	// liga apenas o que nomeia.
	filter, filterPresent := r.URL.Query()["filter[]"]

	payload, err := h.service.MapPins(ctx, userID, httpmiddleware.GetRole(ctx), filter, filterPresent)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "GET /tasks/map_data", userID, start)
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	citizenID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var body struct {
		TaskRequest struct {
			Name      string       `json:"name"`
			Latitude  float64      `json:"latitude"`
			Longitude float64      `json:"longitude"`
			Address   repo.Address `json:"address"`
		} `json:"task_request"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	created, err := h.service.CreateRequest(ctx, citizenID, CreateRequestParams{
		Name:      body.TaskRequest.Name,
		Address:   body.TaskRequest.Address,
		Latitude:  body.TaskRequest.Latitude,
		Longitude: body.TaskRequest.Longitude,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "POST /tasks/task_requests", citizenID, start)
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	workerID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "tarefa não encontrada", nil)
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	updated, err := h.service.AdvanceTask(ctx, workerID, taskID, body.Status)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "PUT /tasks/{id}/status", workerID, start)
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleAdminAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	adminID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "registro não encontrado", nil)
		return
	}

	var body struct {
		ActionType   string  `json:"action_type"`
		WorkerID     *string `json:"worker_id"`
		LimitEndDate *string `json:"limit_end_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	params := AdminActionParams{Action: body.ActionType, ID: itemID}
	if body.WorkerID != nil && *body.WorkerID != "" {
		workerID, err := uuid.Parse(*body.WorkerID)
		if err != nil {
			writeValidationErrors(w, []string{"worker_id inválido"})
			return
		}
		params.WorkerID = &workerID
	}
	if body.LimitEndDate != nil && *body.LimitEndDate != "" {
		limit, err := time.Parse("2006-01-02", *body.LimitEndDate)
		if err != nil {
			writeValidationErrors(w, []string{"limit_end_date inválido"})
			return
		}
		params.LimitEndDate = &limit
	}

	result, err := h.service.AdminAction(ctx, adminID, params)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "POST /tasks/{id}/admin_action", adminID, start)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleShow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	userID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "registro não encontrado", nil)
		return
	}

	detail, err := h.service.Get(ctx, chi.URLParam(r, "type"), itemID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "GET /tasks/{type}/{id}", userID, start)
	writeJSON(w, http.StatusOK, detail)
}

func subjectAsUUID(ctx context.Context) (uuid.UUID, error) {
	return uuid.Parse(httpmiddleware.GetSubject(ctx))
}

func handleDomainError(w http.ResponseWriter, err error) {
	var validation *service.ValidationError
	switch {
	case errors.As(err, &validation):
		writeValidationErrors(w, validation.Messages)
	case errors.Is(err, errNotFound), errors.Is(err, ErrInvalidType):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "registro não encontrado", nil)
	case errors.Is(err, ErrNotAssigned):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "sem acesso à tarefa", nil)
	case errors.Is(err, ErrRequestProcessed),
		errors.Is(err, ErrTaskNotAwaiting),
		errors.Is(err, ErrTaskFinished),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidAction):
		writeError(w, http.StatusUnprocessableEntity, "CONFLICT", err.Error(), nil)
	default:
		log.Error().Err(err).Msg("tasks: erro interno")
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

func writeRaw(w http.ResponseWriter, payload json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func logRequest(ctx context.Context, label string, userID uuid.UUID, start time.Time) {
	logger := log.Ctx(ctx)
	if logger == nil {
		logger = &log.Logger
	}
	reqID := chimiddleware.GetReqID(ctx)
	logger.Info().Str("request_id", reqID).Str("user_id", userID.String()).Str("label", label).Dur("duration", time.Since(start)).Msg("tasks_request")
}
