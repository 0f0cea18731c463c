// internal/app/features/onboarding/submit.go
package onboarding

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/membersverify/internal/app/system/apierr"
	"github.com/dalemusser/membersverify/internal/app/system/jsonutil"
	"github.com/dalemusser/membersverify/internal/app/system/metrics"
	"github.com/dalemusser/membersverify/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// MaxSubmitBody bounds the sealed submission body.
const MaxSubmitBody = 20 << 20

type submitRequest struct {
	EncryptedData string `json:"encryptedData"`
	FormToken     string `json:"formToken"`
}

type submitResponse struct {
	Status   bool   `json:"status"`
	Message  string `json:"message"`
	Replayed bool   `json:"replayed,omitempty"`
}

// HandleSubmit handles POST /submit-form.
//
//	201 {"status":true,"message":"Form submitted successfully"}
//	400 decryption or validation failure, 404 unknown token, 409 duplicate identification
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := jsonutil.Decode(w, r, &req, MaxSubmitBody); err != nil {
		h.ErrLog.Respond(w, r, "onboarding: submit body", err)
		return
	}
	if strings.TrimSpace(req.EncryptedData) == "" || strings.TrimSpace(req.FormToken) == "" {
		h.Metrics.Submission(metrics.OutcomeRejected)
		h.ErrLog.Respond(w, r, "onboarding: submit missing fields", &apierr.ValidationError{
			Fields:  missing(req),
			Message: "Encrypted data, form token, and idImage are required.",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Machine.Submit(ctx, req.FormToken, req.EncryptedData)
	if err != nil {
		h.Metrics.Submission(outcome(err))
		h.AuditLog.SubmissionRejected(ctx, r, apierr.Classify(err).Code)
		h.ErrLog.Respond(w, r, "onboarding: submit", err)
		return
	}

	if res.Replayed {
		h.Metrics.Submission(metrics.OutcomeReplayed)
	} else {
		h.Metrics.Submission(metrics.OutcomeAccepted)
	}
	h.AuditLog.SubmissionAccepted(ctx, r, res.Member.ID, res.Replayed)
	h.Log.Info("onboarding form accepted",
		zap.String("member_id", res.Member.ID.Hex()),
		zap.Bool("replayed", res.Replayed))

	jsonutil.Write(w, http.StatusCreated, submitResponse{
		Status:   true,
		Message:  "Form submitted successfully",
		Replayed: res.Replayed,
	})
}

func missing(req submitRequest) []string {
	var out []string
	if strings.TrimSpace(req.EncryptedData) == "" {
		out = append(out, "encryptedData")
	}
	if strings.TrimSpace(req.FormToken) == "" {
		out = append(out, "formToken")
	}
	return out
}

func outcome(err error) string {
	switch {
	case errors.Is(err, apierr.ErrDuplicateIdentity):
		return metrics.OutcomeDuplicate
	case errors.Is(err, apierr.ErrUpstream):
		return metrics.OutcomeError
	}
	return metrics.OutcomeRejected
}
