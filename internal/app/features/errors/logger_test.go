package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/membersverify/internal/app/system/apierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) body {
	t.Helper()
	var b body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	return b
}

func TestRespond_MapsKinds(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	el := NewErrorLogger(zap.New(core))

	rec := httptest.NewRecorder()
	el.Respond(rec, httptest.NewRequest(http.MethodPost, "/api/user/submit-form", nil), "submit failed",
		&apierr.ValidationError{Fields: []string{"dob"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	b := decode(t, rec)
	assert.False(t, b.Status)
	assert.Equal(t, "validation_failed", b.Code)
	assert.Equal(t, []string{"dob"}, b.Fields)
	assert.Equal(t, zapcore.InfoLevel, logs.All()[0].Level)
}

func TestRespond_ServerErrorsHideDetail(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	el := NewErrorLogger(zap.New(core))

	rec := httptest.NewRecorder()
	el.Respond(rec, httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil), "stats failed",
		apierr.Upstream("count members", assert.AnError))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
	require.Len(t, logs.All(), 1)
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
}

func TestLogServerError(t *testing.T) {
	el := NewErrorLogger(nil)
	rec := httptest.NewRecorder()
	el.LogServerError(rec, httptest.NewRequest(http.MethodGet, "/", nil), "boom", assert.AnError, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode(t, rec).Message)
}

func TestHandler_NotFoundAndMethod(t *testing.T) {
	h := NewHandler()

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
