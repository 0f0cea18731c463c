// internal/app/features/reports/stats.go
package reports

import (
	"context"
	"net/http"

	memberstore "github.com/dalemusser/membersverify/internal/app/store/members"
	"github.com/dalemusser/membersverify/internal/app/system/apierr"
	"github.com/dalemusser/membersverify/internal/app/system/jsonutil"
	"github.com/dalemusser/membersverify/internal/app/system/timeouts"
)

type statsResponse struct {
	Success bool              `json:"success"`
	Stats   memberstore.Stats `json:"stats"`
}

// ServeStats handles GET /stats and GET /getStats.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	stats, err := h.Members.Stats(ctx)
	if err != nil {
		h.ErrLog.Respond(w, r, "reports: stats", apierr.Upstream("count members", err))
		return
	}
	jsonutil.Write(w, http.StatusOK, statsResponse{Success: true, Stats: stats})
}
