package tasks

import (
	"github.com/go-chi/chi/v5"
)

// Mount adiciona rotas de solicitações e tarefas no router.
func Mount(r chi.Router, handler *Handler) {
	handler.RegisterRoutes(r)
}
