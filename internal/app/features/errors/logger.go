// internal/app/features/errors/logger.go
package errors

import (
	"net/http"

	"github.com/dalemusser/membersverify/internal/app/system/apierr"
	"github.com/dalemusser/membersverify/internal/app/system/jsonutil"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// body is the JSON shape of every error response.
type body struct {
	Status  bool     `json:"status"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

// ErrorLogger logs failures with request context and writes the matching
// JSON error response. Detail stays in the log; clients get a safe message.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger returns an ErrorLogger writing to logger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{log: logger}
}

func (e *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	return []zap.Field{
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	}
}

// Respond classifies err, logs it, and writes the JSON error response.
// 5xx outcomes log at error level, client errors at info.
func (e *ErrorLogger) Respond(w http.ResponseWriter, r *http.Request, msg string, err error) {
	k := apierr.Classify(err)
	if k.Status >= http.StatusInternalServerError {
		e.log.Error(msg, e.fields(r, err)...)
	} else {
		e.log.Info(msg, append(e.fields(r, err), zap.String("code", k.Code))...)
	}
	jsonutil.Write(w, k.Status, body{Status: false, Code: k.Code, Message: k.Message, Fields: k.Fields})
}

// LogServerError logs err and answers 500 with userMsg, regardless of the
// error's kind.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.log.Error(msg, e.fields(r, err)...)
	if userMsg == "" {
		userMsg = "Internal server error"
	}
	jsonutil.Write(w, http.StatusInternalServerError, body{Status: false, Code: "internal_error", Message: userMsg})
}

// LogBadRequest logs at info level and answers 400 with userMsg.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.log.Info(msg, e.fields(r, err)...)
	jsonutil.Write(w, http.StatusBadRequest, body{Status: false, Code: "bad_request", Message: userMsg})
}
