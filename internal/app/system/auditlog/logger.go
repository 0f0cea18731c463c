// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/membersverify/internal/app/store/audit"
	"github.com/dalemusser/membersverify/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category setting.
const (
	All = "all" // MongoDB + zap
	DB  = "db"  // MongoDB only
	Log = "log" // zap only
	Off = "off" // disabled
)

// Config holds audit logging configuration per event category.
type Config struct {
	// Auth controls admin sign-in events.
	Auth string
	// Admin controls roster edits, imports, exports, and outreach.
	Admin string
	// Workflow controls token issue, uploads, and form submissions.
	Workflow string
}

// Actor identifies the admin performing an action.
type Actor struct {
	ID       string
	Username string
}

// ActorFrom returns the actor for the admin on r, or a zero Actor when the
// request is not authenticated.
func ActorFrom(r *http.Request) Actor {
	c, ok := auth.CurrentAdmin(r)
	if !ok {
		return Actor{}
	}
	return Actor{ID: c.AdminID, Username: c.Username}
}

func (a Actor) objectID() *primitive.ObjectID {
	if oid, err := primitive.ObjectIDFromHex(a.ID); err == nil {
		return &oid
	}
	return nil
}

// Logger provides convenience methods for logging audit events.
// It logs to MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{store: store, zapLog: zapLog, config: config}
}

// ClientIP extracts the originating client IP, honoring the first
// X-Forwarded-For hop and X-Real-IP from a reverse proxy.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.MemberID != nil {
		fields = append(fields, zap.String("member_id", event.MemberID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.Actor != "" {
		fields = append(fields, zap.String("actor", event.Actor))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op so handlers under test can omit it.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	case audit.CategoryWorkflow:
		setting = l.config.Workflow
	}
	if setting == "" {
		setting = All
	}
	if setting == Off {
		return
	}

	if setting == All || setting == Log {
		l.logToZap(event)
	}
	if (setting == All || setting == DB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

func requestEvent(r *http.Request, category, eventType string, success bool) audit.Event {
	ev := audit.Event{Category: category, EventType: eventType, Success: success}
	if r != nil {
		ev.IP = ClientIP(r)
		ev.UserAgent = r.UserAgent()
	}
	return ev
}

func (a Actor) apply(ev *audit.Event) {
	ev.ActorID = a.objectID()
	ev.Actor = a.Username
}

// --- Authentication Events ---

// LoginSuccess logs a successful admin sign-in.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, adminID primitive.ObjectID, username string) {
	ev := requestEvent(r, audit.CategoryAuth, audit.EventLoginSuccess, true)
	ev.ActorID = &adminID
	ev.Actor = username
	l.Log(ctx, ev)
}

// LoginFailedUserNotFound logs a sign-in attempt for an unknown username.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attempted string) {
	ev := requestEvent(r, audit.CategoryAuth, audit.EventLoginFailedUserNotFound, false)
	ev.FailureReason = "user not found"
	ev.Details = map[string]string{"attempted_username": attempted}
	l.Log(ctx, ev)
}

// LoginFailedWrongPassword logs a sign-in attempt with a bad password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, adminID primitive.ObjectID, username string) {
	ev := requestEvent(r, audit.CategoryAuth, audit.EventLoginFailedWrongPassword, false)
	ev.ActorID = &adminID
	ev.Actor = username
	ev.FailureReason = "wrong password"
	l.Log(ctx, ev)
}

// LoginFailedRateLimit logs a sign-in attempt rejected by the rate limiter.
func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, attempted string) {
	ev := requestEvent(r, audit.CategoryAuth, audit.EventLoginFailedRateLimit, false)
	ev.FailureReason = "rate limit exceeded"
	ev.Details = map[string]string{"attempted_username": attempted}
	l.Log(ctx, ev)
}

// AdminSeeded logs the creation of the configured admin at startup.
func (l *Logger) AdminSeeded(ctx context.Context, adminID primitive.ObjectID, username string) {
	ev := requestEvent(nil, audit.CategoryAuth, audit.EventAdminSeeded, true)
	ev.ActorID = &adminID
	ev.Actor = username
	l.Log(ctx, ev)
}

// --- Admin Events ---

// MemberUpdated logs an admin edit of a roster member.
func (l *Logger) MemberUpdated(ctx context.Context, r *http.Request, actor Actor, memberID primitive.ObjectID, fieldsChanged string) {
	ev := requestEvent(r, audit.CategoryAdmin, audit.EventMemberUpdated, true)
	actor.apply(&ev)
	ev.MemberID = &memberID
	ev.Details = map[string]string{"fields_changed": fieldsChanged}
	l.Log(ctx, ev)
}

// MemberDeleted logs removal of a roster member.
func (l *Logger) MemberDeleted(ctx context.Context, r *http.Request, actor Actor, memberID primitive.ObjectID) {
	ev := requestEvent(r, audit.CategoryAdmin, audit.EventMemberDeleted, true)
	actor.apply(&ev)
	ev.MemberID = &memberID
	l.Log(ctx, ev)
}

// RosterImported logs a bulk roster import.
func (l *Logger) RosterImported(ctx context.Context, r *http.Request, actor Actor, source string, inserted, total int) {
	ev := requestEvent(r, audit.CategoryAdmin, audit.EventRosterImported, inserted == total)
	actor.apply(&ev)
	ev.Details = map[string]string{
		"source":   source,
		"inserted": strconv.Itoa(inserted),
		"total":    strconv.Itoa(total),
	}
	l.Log(ctx, ev)
}

// RosterExported logs a workbook download.
func (l *Logger) RosterExported(ctx context.Context, r *http.Request, actor Actor, rows int, withImages bool) {
	ev := requestEvent(r, audit.CategoryAdmin, audit.EventRosterExported, true)
	actor.apply(&ev)
	ev.Details = map[string]string{
		"rows":   strconv.Itoa(rows),
		"images": strconv.FormatBool(withImages),
	}
	l.Log(ctx, ev)
}

// OutreachSent logs a delivered outreach email.
func (l *Logger) OutreachSent(ctx context.Context, r *http.Request, actor Actor, memberID primitive.ObjectID, toEmail string) {
	ev := requestEvent(r, audit.CategoryAdmin, audit.EventOutreachSent, true)
	actor.apply(&ev)
	ev.MemberID = &memberID
	ev.Details = map[string]string{"to": toEmail}
	l.Log(ctx, ev)
}

// OutreachFailed logs an outreach email that could not be delivered.
func (l *Logger) OutreachFailed(ctx context.Context, r *http.Request, actor Actor, memberID primitive.ObjectID, toEmail, reason string) {
	ev := requestEvent(r, audit.CategoryAdmin, audit.EventOutreachFailed, false)
	actor.apply(&ev)
	ev.MemberID = &memberID
	ev.FailureReason = reason
	ev.Details = map[string]string{"to": toEmail}
	l.Log(ctx, ev)
}

// --- Workflow Events ---

// TokenIssued logs a new form token for a member.
func (l *Logger) TokenIssued(ctx context.Context, r *http.Request, actor Actor, memberID primitive.ObjectID) {
	ev := requestEvent(r, audit.CategoryWorkflow, audit.EventTokenIssued, true)
	actor.apply(&ev)
	ev.MemberID = &memberID
	l.Log(ctx, ev)
}

// SubmissionAccepted logs a verified member.
func (l *Logger) SubmissionAccepted(ctx context.Context, r *http.Request, memberID primitive.ObjectID, replayed bool) {
	ev := requestEvent(r, audit.CategoryWorkflow, audit.EventSubmissionAccepted, true)
	ev.MemberID = &memberID
	ev.Details = map[string]string{"replayed": strconv.FormatBool(replayed)}
	l.Log(ctx, ev)
}

// SubmissionRejected logs a refused form submission. The reason is an
// error code, never the submitted data.
func (l *Logger) SubmissionRejected(ctx context.Context, r *http.Request, reason string) {
	ev := requestEvent(r, audit.CategoryWorkflow, audit.EventSubmissionRejected, false)
	ev.FailureReason = reason
	l.Log(ctx, ev)
}

// DocumentUploaded logs a stored identity document.
func (l *Logger) DocumentUploaded(ctx context.Context, r *http.Request, key string, size int64) {
	ev := requestEvent(r, audit.CategoryWorkflow, audit.EventDocumentUploaded, true)
	ev.Details = map[string]string{"key": key, "size": strconv.FormatInt(size, 10)}
	l.Log(ctx, ev)
}
