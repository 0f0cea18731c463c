package health

import (
	"context"
	"net/http"

	"github.com/dalemusser/membersverify/internal/app/system/fincen"
	"github.com/dalemusser/membersverify/internal/app/system/jsonutil"
	"github.com/dalemusser/membersverify/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger is satisfied by *mongo.Client.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client Pinger
	Fincen *fincen.TokenSource
	Log    *zap.Logger
}

// NewHandler constructs a health Handler. tokens may be nil.
func NewHandler(client Pinger, tokens *fincen.TokenSource, logger *zap.Logger) *Handler {
	return &Handler{
		Client: client,
		Fincen: tokens,
		Log:    logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string         `json:"status"`
	Database string         `json:"database"`
	Message  string         `json:"message,omitempty"`
	Fincen   *fincen.Status `json:"fincen,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "fincen":{"configured":true,"cached":false} }
//
// On DB failure: 503 and
//
//	{ "status":"error", "database":"disconnected", "message":"Database unavailable" }
//
// The FinCEN block is informational; a cold or unconfigured token cache does
// not fail the check.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
	}
	if h.Fincen != nil {
		st := h.Fincen.Status()
		resp.Fincen = &st
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		jsonutil.Write(w, http.StatusServiceUnavailable, resp)
		return
	}

	jsonutil.Write(w, http.StatusOK, resp)
}
