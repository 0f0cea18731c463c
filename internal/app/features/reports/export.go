// internal/app/features/reports/export.go
package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dalemusser/membersverify/internal/app/system/apierr"
	"github.com/dalemusser/membersverify/internal/app/system/auditlog"
	"github.com/dalemusser/membersverify/internal/app/system/timeouts"
	"github.com/dalemusser/membersverify/internal/app/system/workbook"
	"github.com/dalemusser/membersverify/internal/domain/models"
	"go.uber.org/zap"
)

const (
	excelFilename = "users.xlsx"
	csvFilename   = "users.csv"
)

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(filename)))
}

// ServeExcel handles GET /download-excel. With ?images=1 each row's ID
// image is fetched and placed in an extra column.
func (h *Handler) ServeExcel(w http.ResponseWriter, r *http.Request) {
	withImages, _ := strconv.ParseBool(r.URL.Query().Get("images"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	opts := workbook.Options{Logger: h.Log}
	if withImages {
		opts.Images = h.Images
	}
	wb, err := workbook.NewWriter(opts)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "reports: new workbook", err, "Error generating Excel file")
		return
	}
	defer wb.Close()

	if err := h.Members.Each(ctx, func(m models.Member) error {
		return wb.Add(ctx, m)
	}); err != nil {
		h.ErrLog.Respond(w, r, "reports: export rows", apierr.Upstream("read members", err))
		return
	}

	var buf bytes.Buffer
	if _, err := wb.WriteTo(&buf); err != nil {
		h.ErrLog.LogServerError(w, r, "reports: write workbook", err, "Error generating Excel file")
		return
	}

	h.AuditLog.RosterExported(ctx, r, auditlog.ActorFrom(r), wb.Rows(), withImages)
	h.Log.Info("roster exported",
		zap.Int("rows", wb.Rows()),
		zap.Int("images", wb.Embedded()))

	attachment(w, workbook.ContentType, excelFilename)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// ServeCSV handles GET /download-csv with the same columns as the workbook.
func (h *Handler) ServeCSV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	var buf bytes.Buffer
	// UTF-8 BOM so Excel treats it as Unicode
	buf.Write([]byte{0xEF, 0xBB, 0xBF})
	cw := csv.NewWriter(&buf)
	_ = cw.Write(workbook.Headers())

	rows := 0
	if err := h.Members.Each(ctx, func(m models.Member) error {
		rows++
		return cw.Write(workbook.Record(m))
	}); err != nil {
		h.ErrLog.Respond(w, r, "reports: csv rows", apierr.Upstream("read members", err))
		return
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.ErrLog.LogServerError(w, r, "reports: csv flush", err, "Error generating CSV file")
		return
	}

	h.AuditLog.RosterExported(ctx, r, auditlog.ActorFrom(r), rows, false)

	attachment(w, "text/csv; charset=utf-8", csvFilename)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
