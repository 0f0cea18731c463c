// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/membersverify/internal/app/system/jsonutil"
)

// Handler is the errors feature handler. It answers unmatched routes with
// JSON bodies so API clients never see an HTML error page.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound answers routes that do not exist.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	jsonutil.Write(w, http.StatusNotFound, body{Status: false, Code: "route_not_found", Message: "Route not found"})
}

// MethodNotAllowed answers known routes called with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	jsonutil.Write(w, http.StatusMethodNotAllowed, body{Status: false, Code: "method_not_allowed", Message: "Method not allowed"})
}
