// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/membersverify/internal/app/features/errors"
	memberstore "github.com/dalemusser/membersverify/internal/app/store/members"
	"github.com/dalemusser/membersverify/internal/app/system/apierr"
	"github.com/dalemusser/membersverify/internal/app/system/auth"
	"github.com/dalemusser/membersverify/internal/app/system/jsonutil"
	"github.com/dalemusser/membersverify/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB      *mongo.Database
	Log     *zap.Logger
	ErrLog  *uierrors.ErrorLogger
	Members *memberstore.Store
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:      db,
		Log:     logger,
		ErrLog:  errLog,
		Members: memberstore.New(db),
	}
}

type dashboardResponse struct {
	Status  bool              `json:"status"`
	Message string            `json:"message"`
	User    *auth.Claims      `json:"user"`
	Stats   memberstore.Stats `json:"stats"`
}

// ServeDashboard greets the signed-in admin with the roster summary.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.CurrentAdmin(r)
	if !ok {
		h.ErrLog.Respond(w, r, "dashboard: no admin in context", apierr.ErrForbidden)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	stats, err := h.Members.Stats(ctx)
	if err != nil {
		h.ErrLog.Respond(w, r, "dashboard: stats", apierr.Upstream("count members", err))
		return
	}

	jsonutil.Write(w, http.StatusOK, dashboardResponse{
		Status:  true,
		Message: "Welcome to the Admin Dashboard",
		User:    claims,
		Stats:   stats,
	})
}
