package api

import "github.com/go-chi/chi/v5"

// Routes builds the /api subtree. Unknown paths and wrong methods answer
// with JSON errors instead of chi's plain-text defaults.
func Routes(chatHandler *ChatHandler, healthHandler *HealthHandler) func(chi.Router) {
	return func(r chi.Router) {
		r.NotFound(NotFound)
		r.MethodNotAllowed(MethodNotAllowed)
		chatHandler.RegisterRoutes(r)
		healthHandler.RegisterHealth(r)
	}
}
