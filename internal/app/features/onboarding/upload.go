// internal/app/features/onboarding/upload.go
package onboarding

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dalemusser/membersverify/internal/app/system/apierr"
	"github.com/dalemusser/membersverify/internal/app/system/jsonutil"
	"github.com/dalemusser/membersverify/internal/app/system/objectstore"
	"github.com/dalemusser/membersverify/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Upload results recorded in metrics.
const (
	uploadStored   = "stored"
	uploadRejected = "rejected"
	uploadFailed   = "failed"
)

type uploadResponse struct {
	Status           bool   `json:"status"`
	Message          string `json:"message"`
	EncryptedFileURL string `json:"encryptedFileUrl"`
}

// HandleUpload handles POST /upload-id. The multipart field "idImage" holds
// a JPEG, PNG, GIF, or PDF of at most 10 MB. The response carries the
// stored URL sealed with the envelope, for the client to embed in its
// encrypted submission.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, objectstore.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(objectstore.MaxUploadBytes); err != nil {
		h.reject(w, r, "onboarding: parse upload", apierr.BadRequest("File is too large or the form is malformed."))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("idImage")
	if err != nil {
		h.reject(w, r, "onboarding: no file", apierr.BadRequest("No file uploaded."))
		return
	}
	defer file.Close()
	if header.Size > objectstore.MaxUploadBytes {
		h.reject(w, r, "onboarding: file too large", apierr.BadRequest("File is larger than 10 MB."))
		return
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		h.reject(w, r, "onboarding: read upload", apierr.BadRequest("Could not read the uploaded file."))
		return
	}
	head = head[:n]
	sniffed := http.DetectContentType(head)
	if err := objectstore.CheckDocument(header.Filename, sniffed); err != nil {
		h.reject(w, r, "onboarding: file type", apierr.BadRequest("Error: Only images (jpeg, jpg, png, gif) and PDFs are allowed!"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	key := objectstore.UploadKey(time.Now(), header.Filename)
	url, err := objectstore.Save(ctx, h.Store, key, io.MultiReader(bytes.NewReader(head), file), sniffed)
	if err != nil {
		h.Metrics.Upload(uploadFailed)
		h.ErrLog.Respond(w, r, "onboarding: store upload", apierr.Upstream("store id document", err))
		return
	}

	sealed, err := h.Box.Seal(url)
	if err != nil {
		h.Metrics.Upload(uploadFailed)
		h.ErrLog.LogServerError(w, r, "onboarding: seal url", err, "")
		return
	}

	h.Metrics.Upload(uploadStored)
	h.AuditLog.DocumentUploaded(ctx, r, key, header.Size)
	h.Log.Info("id document stored", zap.String("key", key), zap.Int64("size", header.Size))

	jsonutil.Write(w, http.StatusOK, uploadResponse{
		Status:           true,
		Message:          "File uploaded successfully!",
		EncryptedFileURL: sealed,
	})
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.Metrics.Upload(uploadRejected)
	h.ErrLog.Respond(w, r, msg, err)
}
