// internal/app/features/integrations/routes.go
package integrations

import "github.com/go-chi/chi/v5"

// AdminRoutes mounts the FinCEN token endpoints under the admin API. The
// caller applies RequireAdmin.
func AdminRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/token-status", h.ServeTokenStatus)
	r.Post("/token/refresh", h.HandleTokenRefresh)
	return r
}

// WebhookRoutes mounts the public webhook, typically at /api/webhook.
func WebhookRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleWebhook)
	return r
}
