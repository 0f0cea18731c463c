// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/membersverify/internal/app/features/errors"
	adminstore "github.com/dalemusser/membersverify/internal/app/store/admins"
	"github.com/dalemusser/membersverify/internal/app/system/apierr"
	"github.com/dalemusser/membersverify/internal/app/system/auditlog"
	"github.com/dalemusser/membersverify/internal/app/system/auth"
	"github.com/dalemusser/membersverify/internal/app/system/jsonutil"
	"github.com/dalemusser/membersverify/internal/app/system/normalize"
	"github.com/dalemusser/membersverify/internal/app/system/ratelimit"
	"github.com/dalemusser/membersverify/internal/app/system/timeouts"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Admins   *adminstore.Store
	Tokens   *auth.Manager
	Limiter  *ratelimit.LoginLimiter

	validate *validator.Validate
}

func NewHandler(db *mongo.Database, tokens *auth.Manager, limiter *ratelimit.LoginLimiter, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:      logger,
		ErrLog:   errLog,
		AuditLog: audit,
		Admins:   adminstore.New(db),
		Tokens:   tokens,
		Limiter:  limiter,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=256"`
}

type loginResponse struct {
	Status    bool      `json:"status"`
	Token     string    `json:"token"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

const invalidCredentials = "Invalid username or password"

// HandleLogin handles POST /admin/login.
//
//	200 {"status":true,"token":"…","message":"Login successful","expiresAt":"…"}
//	401 {"status":false,"code":"unauthorized","message":"Invalid username or password"}
//	429 when the IP or username is rate limited
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := jsonutil.Decode(w, r, &req, 4<<10); err != nil {
		h.ErrLog.Respond(w, r, "login: bad body", err)
		return
	}
	req.Username = normalize.Username(req.Username)
	if err := h.validate.Struct(req); err != nil {
		h.ErrLog.Respond(w, r, "login: validation", &apierr.ValidationError{
			Fields:  invalidFields(err),
			Message: "username and password are required",
		})
		return
	}

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(auditlog.ClientIP(r), req.Username); !ok {
			h.AuditLog.LoginFailedRateLimit(r.Context(), r, req.Username)
			jsonutil.Write(w, http.StatusTooManyRequests, map[string]any{
				"status": false, "code": "rate_limited", "message": reason,
			})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	admin, err := h.Admins.Authenticate(ctx, req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, adminstore.ErrNotFound):
		h.AuditLog.LoginFailedUserNotFound(ctx, r, req.Username)
		h.unauthorized(w)
		return
	case errors.Is(err, adminstore.ErrWrongPassword):
		h.AuditLog.LoginFailedWrongPassword(ctx, r, admin.ID, admin.Username)
		h.unauthorized(w)
		return
	default:
		h.ErrLog.Respond(w, r, "login: authenticate", apierr.Upstream("authenticate admin", err))
		return
	}

	token, exp, err := h.Tokens.Issue(*admin)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "login: issue token", err, "")
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetUser(req.Username)
	}
	h.AuditLog.LoginSuccess(ctx, r, admin.ID, admin.Username)

	jsonutil.Write(w, http.StatusOK, loginResponse{
		Status:    true,
		Token:     token,
		Message:   "Login successful",
		ExpiresAt: exp,
	})
}

func (h *Handler) unauthorized(w http.ResponseWriter) {
	jsonutil.Write(w, http.StatusUnauthorized, map[string]any{
		"status": false, "code": "unauthorized", "message": invalidCredentials,
	})
}

func invalidFields(err error) []string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make([]string, 0, len(ve))
	for _, fe := range ve {
		out = append(out, strings.ToLower(fe.Field()))
	}
	return out
}
