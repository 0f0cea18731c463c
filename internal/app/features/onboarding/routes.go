// internal/app/features/onboarding/routes.go
package onboarding

import (
	"github.com/dalemusser/membersverify/internal/app/system/auditlog"
	"github.com/dalemusser/membersverify/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the public form endpoints, typically at /api/user. When
// limiter is non-nil every route is rate limited per client IP.
func Routes(h *Handler, limiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()
	if limiter != nil {
		r.Use(ratelimit.Middleware(limiter, auditlog.ClientIP))
	}
	r.Post("/upload-id", h.HandleUpload)
	r.Post("/submit-form", h.HandleSubmit)
	r.Get("/form/{token}", h.ServeForm)
	return r
}
