package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/membersverify/internal/app/features/health"
	"github.com/dalemusser/membersverify/internal/app/system/fincen"
	"github.com/dalemusser/membersverify/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type healthBody struct {
	Status   string         `json:"status"`
	Database string         `json:"database"`
	Message  string         `json:"message"`
	Fincen   *fincen.Status `json:"fincen"`
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	tokens := fincen.NewTokenSource(nil, zap.NewNop(), nil)
	handler := health.NewHandler(db.Client(), tokens, zap.NewNop())

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.Serve(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var resp healthBody
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status: got %q, want %q", resp.Status, "ok")
	}
	if resp.Database != "connected" {
		t.Errorf("database: got %q, want %q", resp.Database, "connected")
	}
	if resp.Fincen == nil || resp.Fincen.Configured {
		t.Errorf("fincen: expected unconfigured status block, got %+v", resp.Fincen)
	}
}

type downPinger struct{}

func (downPinger) Ping(context.Context, *readpref.ReadPref) error {
	return errors.New("server selection timeout")
}

func TestServe_DatabaseDown(t *testing.T) {
	handler := health.NewHandler(downPinger{}, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	health.Routes(handler).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	var resp healthBody
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Status != "error" || resp.Database != "disconnected" {
		t.Errorf("unexpected body: %+v", resp)
	}
	if strings.Contains(rec.Body.String(), "server selection") {
		t.Error("driver error must not be echoed to clients")
	}
	if resp.Fincen != nil {
		t.Error("fincen block should be omitted when no token source is wired")
	}
}
