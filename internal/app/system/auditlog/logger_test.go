package auditlog_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/membersverify/internal/app/store/audit"
	"github.com/dalemusser/membersverify/internal/app/system/auditlog"
	"github.com/dalemusser/membersverify/internal/app/system/auth"
	"github.com/dalemusser/membersverify/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("GET", "/", nil)

	// These should all be no-ops, not panic
	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, req, primitive.NewObjectID(), "admin")
	logger.SubmissionRejected(ctx, req, "invalid_token")
}

func TestLogger_ZapOnly(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := auditlog.New(nil, zap.New(core), auditlog.Config{Admin: auditlog.Log})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	req := httptest.NewRequest("POST", "/api/admin/deleteUser/x", nil)
	req.RemoteAddr = "192.168.1.7:5555"
	memberID := primitive.NewObjectID()
	logger.MemberDeleted(ctx, req, auditlog.Actor{ID: primitive.NewObjectID().Hex(), Username: "ops"}, memberID)

	entries := logs.FilterMessage("audit event").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 zap entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["event_type"] != audit.EventMemberDeleted {
		t.Errorf("event_type = %v", fields["event_type"])
	}
	if fields["ip"] != "192.168.1.7" {
		t.Errorf("ip = %v, want 192.168.1.7", fields["ip"])
	}
	if fields["member_id"] != memberID.Hex() {
		t.Errorf("member_id = %v", fields["member_id"])
	}
}

func TestLogger_ConfigOff(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{
		Auth:     auditlog.Off,
		Admin:    auditlog.Off,
		Workflow: auditlog.Off,
	})

	req := httptest.NewRequest("POST", "/admin/login", nil)
	logger.LoginFailedUserNotFound(ctx, req, "ghost")
	logger.SubmissionAccepted(ctx, req, primitive.NewObjectID(), false)

	n, err := store.CountByFilter(ctx, audit.QueryFilter{})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no events when config is 'off', got %d", n)
	}
}

func TestLogger_ConfigDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{
		Auth:     auditlog.DB,
		Admin:    auditlog.DB,
		Workflow: auditlog.DB,
	})

	memberID := primitive.NewObjectID()
	req := httptest.NewRequest("POST", "/api/user/submit-form", nil)
	logger.SubmissionAccepted(ctx, req, memberID, true)

	events, err := store.GetByMember(ctx, memberID, 10)
	if err != nil {
		t.Fatalf("GetByMember failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Details["replayed"] != "true" {
		t.Errorf("replayed detail = %q, want true", events[0].Details["replayed"])
	}
}

func TestLogger_LoginFailedUserNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: auditlog.DB})

	req := httptest.NewRequest("POST", "/admin/login", nil)
	logger.LoginFailedUserNotFound(ctx, req, "ghost")

	events, err := store.GetFailedLogins(ctx, time.Now().Add(-time.Minute), 10)
	if err != nil {
		t.Fatalf("GetFailedLogins failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].FailureReason != "user not found" {
		t.Errorf("FailureReason: got %q, want %q", events[0].FailureReason, "user not found")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.1.1.1:999"
	if got := auditlog.ClientIP(req); got != "10.1.1.1" {
		t.Errorf("RemoteAddr: got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	if got := auditlog.ClientIP(req); got != "203.0.113.5" {
		t.Errorf("X-Forwarded-For: got %q", got)
	}
}

func TestActorFrom(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if a := auditlog.ActorFrom(req); a.ID != "" || a.Username != "" {
		t.Errorf("anonymous request: got %+v", a)
	}

	req = auth.WithTestAdmin(req, &auth.Claims{AdminID: "65a000000000000000000001", Username: "ops", Role: "admin"})
	a := auditlog.ActorFrom(req)
	if a.ID != "65a000000000000000000001" || a.Username != "ops" {
		t.Errorf("admin request: got %+v", a)
	}
}
