// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes wires admin sign-in under the /admin/login mount. There is no
// logout route: bearer tokens simply expire.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleLogin)
	return r
}
