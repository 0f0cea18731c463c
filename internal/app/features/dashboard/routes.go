// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/dalemusser/membersverify/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes wires the admin dashboard under whatever mount point the top-level
// router chooses (e.g., "/admin/dashboard").
func Routes(h *Handler, tokens *auth.Manager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(tokens.RequireAdmin)
		pr.Get("/", h.ServeDashboard)
	})
	return r
}
