// internal/app/features/onboarding/form.go
package onboarding

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/membersverify/internal/app/system/apierr"
	"github.com/dalemusser/membersverify/internal/app/system/jsonutil"
	"github.com/dalemusser/membersverify/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

type formResponse struct {
	Status      bool   `json:"status"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Association string `json:"association"`
	AssocCode   string `json:"assocCode"`
	Verified    bool   `json:"verified"`
}

// ServeForm handles GET /form/{token}: the non-sensitive fields the form
// shows before the member fills it in.
func (h *Handler) ServeForm(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(chi.URLParam(r, "token"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.Members.FindByFormToken(ctx, token)
	if err != nil {
		if errors.Is(err, apierr.ErrRecordNotFound) {
			err = apierr.ErrInvalidToken
		} else {
			err = apierr.Upstream("find member by token", err)
		}
		h.ErrLog.Respond(w, r, "onboarding: form prefill", err)
		return
	}

	jsonutil.Write(w, http.StatusOK, formResponse{
		Status:      true,
		FirstName:   m.FirstName,
		LastName:    m.LastName,
		Association: m.Association,
		AssocCode:   m.AssocCode,
		Verified:    m.Verified,
	})
}
