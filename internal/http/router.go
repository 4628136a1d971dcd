package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cidadeativa/zeladoria/internal/config"
	httpmiddleware "github.com/cidadeativa/zeladoria/internal/http/middleware"
	"github.com/cidadeativa/zeladoria/internal/repo"
	"github.com/cidadeativa/zeladoria/internal/service"
	"github.com/cidadeativa/zeladoria/internal/tasks"
	"github.com/cidadeativa/zeladoria/internal/users"
)

type Handler struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	redis         *redis.Client
	authService   *service.AuthService
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
	devCookies    bool
}

const refreshCookieName = "refresh_token"

// NewRouter devolve roteador configurado.
func NewRouter(cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client, authService *service.AuthService) (http.Handler, error) {
	devCookies := false
	for _, origin := range cfg.AllowOrigins {
		if strings.Contains(origin, "localhost") {
			devCookies = true
			break
		}
	}

	h := &Handler{
		cfg:           cfg,
		pool:          pool,
		redis:         redisClient,
		authService:   authService,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
		devCookies:    devCookies,
	}

	tasksRepo := tasks.NewRepository(pool)
	tasksService := tasks.NewService(tasksRepo, redisClient, cfg.DashboardTTL)
	tasksHandler := tasks.NewHandler(tasksService)

	usersService := users.NewService(repo.New(pool))
	usersHandler := users.NewHandler(usersService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)

		public.Route("/auth", func(auth chi.Router) {
			auth.Post("/check_cpf", h.CheckCPF)
			auth.Post("/login", h.Login)
			auth.Post("/register", h.Register)
			auth.Post("/refresh", h.Refresh)
			auth.Post("/logout", h.Logout)
		})
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(authService.JWT()))
		private.Use(httpmiddleware.UserRateLimit(h.authLimiter))

		private.Route("/auth/profile", func(r chi.Router) {
			r.Get("/", h.Profile)
			r.Put("/", h.UpdateProfile)
			r.Patch("/", h.UpdateProfile)
		})

		tasks.Mount(private, tasksHandler)
		users.Mount(private, usersHandler)
	})

	return r, nil
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida conexões com Postgres e Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbErr := h.pool.Ping(ctx)
	redisErr := h.redis.Ping(ctx).Err()

	if dbErr != nil || redisErr != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", map[string]any{
			"db":    errorString(dbErr),
			"redis": errorString(redisErr),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// CheckCPF informa se um CPF já tem cadastro.
func (h *Handler) CheckCPF(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CPF string `json:"cpf"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}
	if strings.TrimSpace(payload.CPF) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "cpf é obrigatório", nil)
		return
	}

	exists, err := h.authService.CheckCPF(r.Context(), payload.CPF)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao consultar cpf", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

// Login autentica por CPF e senha.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CPF      string `json:"cpf"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}
	if strings.TrimSpace(payload.CPF) == "" || strings.TrimSpace(payload.Password) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "cpf e senha são obrigatórios", nil)
		return
	}

	result, err := h.authService.Login(r.Context(), payload.CPF, payload.Password)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	h.writeLoginSuccess(w, http.StatusOK, result)
}

type registerUserPayload struct {
	Name     string       `json:"name"`
	CPF      string       `json:"cpf"`
	Email    string       `json:"email"`
	Phone    string       `json:"phone"`
	Birthday string       `json:"birthday"`
	Address  repo.Address `json:"address"`
}

// Register cria cidadão e abre sessão.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		User     registerUserPayload `json:"user"`
		Password string              `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	result, err := h.authService.Register(r.Context(), service.RegisterParams{
		Name:     payload.User.Name,
		CPF:      payload.User.CPF,
		Email:    payload.User.Email,
		Phone:    payload.User.Phone,
		Birthday: payload.User.Birthday,
		Password: payload.Password,
		Address:  payload.User.Address,
	})
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	h.writeLoginSuccess(w, http.StatusCreated, result)
}

// Refresh rotaciona tokens da sessão.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, err := getRefreshFromRequest(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "refresh ausente", nil)
		return
	}

	result, err := h.authService.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrRefreshInvalid) {
			WriteError(w, http.StatusUnauthorized, "AUTH", "refresh inválido", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao renovar sessão", nil)
		return
	}

	h.writeLoginSuccess(w, http.StatusOK, result)
}

// Logout revoga refresh token atual.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, err := getRefreshFromRequest(r); err == nil {
		_ = h.authService.Logout(r.Context(), token)
	}

	h.clearRefreshCookie(w)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Profile devolve o perfil do usuário autenticado.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	profile, err := h.authService.GetProfile(r.Context(), subject)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, profile)
}

// UpdateProfile atualiza dados do próprio usuário.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var payload struct {
		User struct {
			Name     string        `json:"name"`
			Email    string        `json:"email"`
			Phone    string        `json:"phone"`
			Birthday string        `json:"birthday"`
			Address  *repo.Address `json:"address"`
		} `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	arg := repo.UpdateUserParams{
		Name:    payload.User.Name,
		Email:   payload.User.Email,
		Phone:   payload.User.Phone,
		Address: payload.User.Address,
	}
	if strings.TrimSpace(payload.User.Birthday) != "" {
		birthday, err := time.Parse("2006-01-02", payload.User.Birthday)
		if err != nil {
			WriteValidationErrors(w, []string{"birthday inválido"})
			return
		}
		arg.Birthday = birthday
	}

	profile, err := h.authService.UpdateProfile(r.Context(), subject, arg)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleAuthError(w http.ResponseWriter, err error) {
	var validation *service.ValidationError
	switch {
	case errors.As(err, &validation):
		WriteValidationErrors(w, validation.Messages)
	case errors.Is(err, service.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "AUTH", err.Error(), nil)
	case errors.Is(err, service.ErrWorkerProfileLocked):
		WriteError(w, http.StatusUnprocessableEntity, "CONFLICT", err.Error(), nil)
	case errors.Is(err, repo.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "usuário não encontrado", nil)
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao autenticar", nil)
	}
}

func (h *Handler) writeLoginSuccess(w http.ResponseWriter, status int, result *service.LoginResult) {
	h.setRefreshCookie(w, result.RefreshToken, result.RefreshExpiry)

	WriteJSON(w, status, map[string]any{
		"access_token": result.AccessToken,
		"user":         result.User,
	})
}

func (h *Handler) subjectUUID(r *http.Request) (uuid.UUID, error) {
	subjectStr := httpmiddleware.GetSubject(r.Context())
	if strings.TrimSpace(subjectStr) == "" {
		return uuid.Nil, errors.New("subject ausente")
	}
	return uuid.Parse(subjectStr)
}

func getRefreshFromRequest(r *http.Request) (string, error) {
	if c, err := r.Cookie(refreshCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", errors.New("refresh ausente")
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string, expires time.Time) {
	secure := !h.devCookies
	sameSite := http.SameSiteNoneMode
	if h.devCookies {
		sameSite = http.SameSiteLaxMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	secure := !h.devCookies
	sameSite := http.SameSiteNoneMode
	if h.devCookies {
		sameSite = http.SameSiteLaxMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})
}
