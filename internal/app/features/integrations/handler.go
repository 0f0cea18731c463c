// internal/app/features/integrations/handler.go
package integrations

import (
	"encoding/json"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/membersverify/internal/app/features/errors"
	"github.com/dalemusser/membersverify/internal/app/system/apierr"
	"github.com/dalemusser/membersverify/internal/app/system/fincen"
	"github.com/dalemusser/membersverify/internal/app/system/jsonutil"
	"go.uber.org/zap"
)

// Handler exposes the FinCEN token cache to admins and the inbound webhook.
type Handler struct {
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
	Fincen *fincen.TokenSource
}

func NewHandler(tokens *fincen.TokenSource, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Log: logger, ErrLog: errLog, Fincen: tokens}
}

type statusResponse struct {
	Status bool          `json:"status"`
	Token  fincen.Status `json:"token"`
}

// ServeTokenStatus handles GET /fincen/token-status. The token itself is
// never returned.
func (h *Handler) ServeTokenStatus(w http.ResponseWriter, r *http.Request) {
	jsonutil.Write(w, http.StatusOK, statusResponse{Status: true, Token: h.Fincen.Status()})
}

// HandleTokenRefresh handles POST /fincen/token/refresh: it makes sure a
// valid token is cached, fetching one if needed, and reports the cache.
func (h *Handler) HandleTokenRefresh(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Fincen.Token(r.Context()); err != nil {
		if errors.Is(err, fincen.ErrNotConfigured) {
			err = apierr.Upstream("fincen token", err)
		}
		h.ErrLog.Respond(w, r, "integrations: fincen token", err)
		return
	}
	jsonutil.Write(w, http.StatusOK, statusResponse{Status: true, Token: h.Fincen.Status()})
}

type webhookRequest struct {
	Result json.RawMessage `json:"result"`
}

type webhookResponse struct {
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// HandleWebhook handles POST /api/webhook. It acknowledges the call and
// echoes the "result" field back.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := jsonutil.Decode(w, r, &req, jsonutil.DefaultMaxBody); err != nil {
		h.ErrLog.Respond(w, r, "integrations: webhook body", err)
		return
	}
	h.Log.Info("webhook received", zap.Int("result_bytes", len(req.Result)))
	jsonutil.Write(w, http.StatusOK, webhookResponse{
		Message: "Third-party API integration will go here!",
		Result:  req.Result,
	})
}
