// internal/app/features/members/routes.go
package members

import "github.com/go-chi/chi/v5"

// Routes mounts the roster routes under the admin API. The caller applies
// RequireAdmin. Both the REST-style paths and the legacy paths the admin
// UI already calls are served.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	Register(r, h)
	return r
}

// Register adds the routes to an existing router so they can share a
// prefix with other features.
func Register(r chi.Router, h *Handler) {
	r.Get("/members", h.ServeList)
	r.Get("/members/{id}", h.ServeMember)
	r.Put("/members/{id}", h.HandleUpdate)
	r.Delete("/members/{id}", h.HandleDelete)
	r.Get("/associations", h.ServeAssociations)

	r.Get("/getAllUsers", h.ServeList)
	r.Get("/getAllUsers/{page}", h.ServeList)
	r.Get("/getAllUsers/{page}/{filterName}", h.ServeList)
	r.Get("/getAllUsers/{page}/{filterName}/{assocCode}", h.ServeList)
	r.Get("/getAllUsers/{page}/{filterName}/{assocCode}/{expiringFilter}", h.ServeList)
	r.Get("/getById/{id}", h.ServeMember)
	r.Put("/update/{id}", h.HandleUpdate)
	r.Delete("/deleteUser/{id}", h.HandleDelete)
	r.Get("/getAssoc", h.ServeAssociations)

	r.Post("/list-upload", h.HandleUpload)
}
