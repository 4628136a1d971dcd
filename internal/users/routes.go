package users

import (
	"github.com/go-chi/chi/v5"
)

// Mount adiciona rotas administrativas de usuários no router.
func Mount(r chi.Router, handler *Handler) {
	handler.RegisterRoutes(r)
}
