package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cidadeativa/zeladoria/internal/auth"
	"github.com/cidadeativa/zeladoria/internal/repo"
)

type contextKey string

const (
	ContextKeySubject contextKey = "subject"
	ContextKeyRole    contextKey = "role"
)

// Auth valida JWT de acesso e injeta claims no contexto.
func Auth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "AUTH", "token ausente")
				return
			}

			claims, err := jwtManager.ParseAndValidate(parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "token inválido")
				return
			}

			role, err := repo.ParseRole(claims.Role)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "papel inválido")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySubject, claims.Subject)
			ctx = context.WithValue(ctx, ContextKeyRole, role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubject recupera subject do contexto.
func GetSubject(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeySubject).(string)
	return val
}

// GetRole recupera papel do contexto.
func GetRole(ctx context.Context) repo.Role {
	val, _ := ctx.Value(ContextKeyRole).(repo.Role)
	return val
}

// RequireAdmin garante papel de administrador.
func RequireAdmin(next http.Handler) http.Handler {
	return requireRole(repo.RoleAdmin, "acesso restrito a administradores")(next)
}

// RequireCitizen garante papel de cidadão.
func RequireCitizen(next http.Handler) http.Handler {
	return requireRole(repo.RoleCitizen, "acesso restrito a cidadãos")(next)
}

// RequireWorker garante papel de operário.
func RequireWorker(next http.Handler) http.Handler {
	return requireRole(repo.RoleWorker, "acesso restrito a operários")(next)
}

func requireRole(role repo.Role, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetRole(r.Context()) != role {
				writeError(w, http.StatusForbidden, "FORBIDDEN", message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
