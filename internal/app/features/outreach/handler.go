// internal/app/features/outreach/handler.go
package outreach

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/membersverify/internal/app/features/errors"
	memberstore "github.com/dalemusser/membersverify/internal/app/store/members"
	"github.com/dalemusser/membersverify/internal/app/system/apierr"
	"github.com/dalemusser/membersverify/internal/app/system/auditlog"
	"github.com/dalemusser/membersverify/internal/app/system/formtoken"
	"github.com/dalemusser/membersverify/internal/app/system/jsonutil"
	"github.com/dalemusser/membersverify/internal/app/system/mailer"
	"github.com/dalemusser/membersverify/internal/app/system/metrics"
	"github.com/dalemusser/membersverify/internal/app/system/normalize"
	"github.com/dalemusser/membersverify/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Sender delivers one email.
type Sender interface {
	Send(ctx context.Context, e mailer.Email) error
}

// Config carries the values rendered into every invitation.
type Config struct {
	SiteName    string
	FormBaseURL string
}

// Handler sends verification invitations to roster members.
type Handler struct {
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Members  *memberstore.Store
	Tokens   *formtoken.Issuer
	Mail     Sender
	Metrics  *metrics.Metrics
	Config   Config

	validate *validator.Validate
}

func NewHandler(db *mongo.Database, mail Sender, cfg Config, m *metrics.Metrics, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	members := memberstore.New(db)
	return &Handler{
		Log:      logger,
		ErrLog:   errLog,
		AuditLog: audit,
		Members:  members,
		Tokens:   formtoken.New(members),
		Mail:     mail,
		Metrics:  m,
		Config:   cfg,
		validate: validator.New(),
	}
}

// Routes mounts the outreach routes under the admin API. The caller applies
// RequireAdmin.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	Register(r, h)
	return r
}

// Register adds the routes to an existing router so they can share a
// prefix with other features.
func Register(r chi.Router, h *Handler) {
	r.Post("/send-email/{uniqueId}", h.HandleSend)
}

type sendRequest struct {
	ToEmail string `json:"toEmail"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

const sendMaxBody = 256 << 10

// HandleSend handles POST /send-email/{uniqueId}.
//
// A fresh form token is stored before the email goes out, so a failed send
// still invalidates any earlier link. The member is marked emailed only
// after the SMTP server accepts the message.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	uniqueID := strings.TrimSpace(chi.URLParam(r, "uniqueId"))

	var req sendRequest
	if err := jsonutil.Decode(w, r, &req, sendMaxBody); err != nil {
		h.ErrLog.Respond(w, r, "outreach: bad body", err)
		return
	}
	to := normalize.Email(req.ToEmail)
	if to == "" {
		h.ErrLog.Respond(w, r, "outreach: missing recipient", apierr.BadRequest("Recipient's email address (toEmail) is required."))
		return
	}
	if err := h.validate.Var(to, "email"); err != nil {
		h.ErrLog.Respond(w, r, "outreach: bad recipient", &apierr.ValidationError{
			Fields: []string{"toEmail"}, Message: "Recipient's email address (toEmail) is not valid.",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()
	actor := auditlog.ActorFrom(r)

	token, member, err := h.Tokens.Issue(ctx, uniqueID)
	if err != nil {
		h.ErrLog.Respond(w, r, "outreach: issue token", err)
		return
	}
	h.Metrics.TokenIssued()
	h.AuditLog.TokenIssued(ctx, r, actor, member.ID)

	email := mailer.BuildOutreachEmail(to, mailer.OutreachData{
		SiteName:    h.Config.SiteName,
		MemberName:  member.FullName(),
		Association: member.Association,
		FormLink:    mailer.FormLink(h.Config.FormBaseURL, token),
		Subject:     req.Subject,
		Message:     req.Message,
	})
	if err := h.Mail.Send(ctx, email); err != nil {
		h.Metrics.Email(false)
		h.AuditLog.OutreachFailed(ctx, r, actor, member.ID, to, err.Error())
		if !errors.Is(err, apierr.ErrUpstream) {
			err = apierr.Upstream("send outreach email", err)
		}
		h.ErrLog.Respond(w, r, "outreach: send", err)
		return
	}
	h.Metrics.Email(true)

	if err := h.Members.MarkEmailSent(ctx, member.ID); err != nil {
		// The email is out; report the bookkeeping failure without hiding that.
		h.Log.Error("outreach sent but email_sent not recorded",
			zap.String("member_id", member.ID.Hex()), zap.Error(err))
		h.ErrLog.Respond(w, r, "outreach: mark sent", apierr.Upstream("record email sent", err))
		return
	}
	h.AuditLog.OutreachSent(ctx, r, actor, member.ID, to)
	h.Log.Info("outreach email sent",
		zap.String("member_id", member.ID.Hex()),
		zap.String("unique_id", member.UniqueID))

	jsonutil.OK(w, http.StatusOK, "Email sent successfully, and user status updated!")
}
