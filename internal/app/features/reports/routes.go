// internal/app/features/reports/routes.go
package reports

import "github.com/go-chi/chi/v5"

// Routes mounts stats and exports under the admin API. The caller applies
// RequireAdmin.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	Register(r, h)
	return r
}

// Register adds the routes to an existing router so they can share a
// prefix with other features.
func Register(r chi.Router, h *Handler) {
	r.Get("/stats", h.ServeStats)
	r.Get("/getStats", h.ServeStats)
	r.Get("/download-excel", h.ServeExcel)
	r.Get("/download-csv", h.ServeCSV)
}
