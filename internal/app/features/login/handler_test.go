package login_test

import (
	"net/http"
	"testing"
	"time"

	uierrors "github.com/dalemusser/membersverify/internal/app/features/errors"
	"github.com/dalemusser/membersverify/internal/app/features/login"
	"github.com/dalemusser/membersverify/internal/app/store/audit"
	"github.com/dalemusser/membersverify/internal/app/system/auditlog"
	"github.com/dalemusser/membersverify/internal/app/system/auth"
	"github.com/dalemusser/membersverify/internal/app/system/ratelimit"
	"github.com/dalemusser/membersverify/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const testSecret = "test-jwt-secret-0123456789abcdefghij"

func newTestHandler(t *testing.T, limiter *ratelimit.LoginLimiter) (*login.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	tokens, err := auth.NewManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	al := auditlog.New(audit.New(db), logger, auditlog.Config{Auth: auditlog.DB})
	h := login.NewHandler(db, tokens, limiter, uierrors.NewErrorLogger(logger), al, logger)
	return h, testutil.NewFixtures(t, db)
}

func TestHandleLogin_Success(t *testing.T) {
	h, fx := newTestHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fx.CreateAdmin(ctx, "admin", "admin@example.com", "correct-horse")

	rec := testutil.NewRecorder()
	h.HandleLogin(rec, testutil.NewJSONRequest(http.MethodPost, "/admin/login", map[string]string{
		"username": " Admin ", "password": "correct-horse",
	}))
	rec.AssertStatus(t, http.StatusOK)

	body := rec.DecodeJSON(t)
	if body["status"] != true || body["message"] != "Login successful" {
		t.Fatalf("unexpected body: %v", body)
	}
	raw, _ := body["token"].(string)
	claims, err := h.Tokens.Parse(raw)
	if err != nil {
		t.Fatalf("token does not parse: %v", err)
	}
	if claims.AdminID != admin.ID.Hex() || claims.Role != "admin" || claims.Username != "admin" {
		t.Errorf("claims = %+v", claims)
	}

	n, err := fx.DB().Collection("audit_events").CountDocuments(ctx, bson.M{"event_type": audit.EventLoginSuccess})
	if err != nil || n != 1 {
		t.Errorf("login_success events = %d (%v), want 1", n, err)
	}
}

func TestHandleLogin_WrongPassword(t *testing.T) {
	h, fx := newTestHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateAdmin(ctx, "admin", "admin@example.com", "correct-horse")

	rec := testutil.NewRecorder()
	h.HandleLogin(rec, testutil.NewJSONRequest(http.MethodPost, "/admin/login", map[string]string{
		"username": "admin", "password": "battery-staple",
	}))
	rec.AssertStatus(t, http.StatusUnauthorized)
	rec.AssertContains(t, "Invalid username or password")
}

func TestHandleLogin_UnknownUserSameMessage(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := testutil.NewRecorder()
	h.HandleLogin(rec, testutil.NewJSONRequest(http.MethodPost, "/admin/login", map[string]string{
		"username": "nobody", "password": "whatever1",
	}))
	rec.AssertStatus(t, http.StatusUnauthorized)
	rec.AssertContains(t, "Invalid username or password")
}

func TestHandleLogin_MissingFields(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := testutil.NewRecorder()
	h.HandleLogin(rec, testutil.NewJSONRequest(http.MethodPost, "/admin/login", map[string]string{"username": "admin"}))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "validation_failed")
}

func TestHandleLogin_MalformedJSON(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := testutil.NewRecorder()
	h.HandleLogin(rec, testutil.NewJSONRequest(http.MethodPost, "/admin/login", `{"username":`))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestHandleLogin_RateLimited(t *testing.T) {
	limiter := ratelimit.NewLoginLimiterWithConfig(100, time.Minute, 2, time.Minute)
	t.Cleanup(limiter.Stop)
	h, fx := newTestHandler(t, limiter)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateAdmin(ctx, "admin", "admin@example.com", "correct-horse")

	for i := 0; i < 2; i++ {
		rec := testutil.NewRecorder()
		h.HandleLogin(rec, testutil.NewJSONRequest(http.MethodPost, "/admin/login", map[string]string{
			"username": "admin", "password": "wrong-pass",
		}))
		rec.AssertStatus(t, http.StatusUnauthorized)
	}

	rec := testutil.NewRecorder()
	h.HandleLogin(rec, testutil.NewJSONRequest(http.MethodPost, "/admin/login", map[string]string{
		"username": "admin", "password": "correct-horse",
	}))
	rec.AssertStatus(t, http.StatusTooManyRequests)
}
