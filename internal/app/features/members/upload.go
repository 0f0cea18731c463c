// internal/app/features/members/upload.go
package members

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dalemusser/membersverify/internal/app/system/apierr"
	"github.com/dalemusser/membersverify/internal/app/system/auditlog"
	"github.com/dalemusser/membersverify/internal/app/system/jsonutil"
	"github.com/dalemusser/membersverify/internal/app/system/rosterimport"
	"github.com/dalemusser/membersverify/internal/app/system/timeouts"
	"github.com/dalemusser/membersverify/internal/app/system/workbook"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MaxJSONRoster bounds a roster posted as JSON rows.
const MaxJSONRoster = 20 << 20

// Import sources recorded in the audit log.
const (
	SourceJSON = "json"
	SourceXLSX = "xlsx"
	SourceCSV  = "csv"
)

type uploadResponse struct {
	Message      string `json:"message"`
	Inserted     int    `json:"inserted"`
	Skipped      int    `json:"skipped,omitempty"`
	TotalEntries int    `json:"totalEntries"`
}

// HandleUpload handles POST /list-upload. The body is either a JSON array
// of spreadsheet rows keyed by column title, or a multipart form whose
// "file" part is an .xlsx or .csv roster.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	rows, source, err := h.readRows(w, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "members: read roster", err)
		return
	}
	total := len(rows)

	// Line numbers count the header row for files.
	firstLine := 2
	if source == SourceJSON {
		firstLine = 1
	}
	members, err := rosterimport.Map(rows, firstLine)
	if err != nil {
		h.ErrLog.Respond(w, r, "members: map roster", err)
		return
	}
	if len(members) == 0 {
		h.ErrLog.Respond(w, r, "members: empty roster", apierr.BadRequest("The roster contains no rows."))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	inserted, err := h.Members.InsertMany(ctx, members)
	var bwe mongo.BulkWriteException
	switch {
	case err == nil:
	case errors.As(err, &bwe) && inserted > 0:
		h.Log.Warn("roster import partially failed",
			zap.Int("inserted", inserted),
			zap.Int("failed", len(bwe.WriteErrors)),
			zap.Error(err))
	default:
		h.ErrLog.Respond(w, r, "members: insert roster", apierr.Upstream("insert roster", err))
		return
	}

	h.Metrics.RowsImported(inserted)
	h.AuditLog.RosterImported(ctx, r, auditlog.ActorFrom(r), source, inserted, total)

	jsonutil.Write(w, http.StatusOK, uploadResponse{
		Message:      fmt.Sprintf("%d new entries added successfully.", inserted),
		Inserted:     inserted,
		Skipped:      len(members) - inserted,
		TotalEntries: total,
	})
}

func (h *Handler) readRows(w http.ResponseWriter, r *http.Request) ([]rosterimport.Row, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var rows []rosterimport.Row
		if err := jsonutil.Decode(w, r, &rows, MaxJSONRoster); err != nil {
			return nil, "", err
		}
		return rows, SourceJSON, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, rosterimport.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(rosterimport.MaxUploadSize); err != nil {
		return nil, "", apierr.BadRequest("Roster file is too large or the form is malformed.")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", apierr.BadRequest("Choose a roster file to upload.")
	}
	defer file.Close()
	if header.Size > rosterimport.MaxUploadSize {
		return nil, "", apierr.BadRequest("Roster file is larger than 10 MB.")
	}

	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".xlsx":
		grid, err := workbook.ReadGrid(file)
		if err != nil {
			return nil, "", apierr.BadRequest("The file is not a readable .xlsx workbook.")
		}
		rows, err := rosterimport.FromGrid(grid)
		return rows, SourceXLSX, err
	case ".csv":
		rows, err := rosterimport.ReadCSV(file)
		return rows, SourceCSV, err
	}
	return nil, "", apierr.BadRequest("Roster files must be .xlsx or .csv.")
}
