// internal/app/system/apierr/apierr.go
package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dalemusser/membersverify/internal/app/system/envelope"
)

// Sentinel errors shared by the workflow packages and the HTTP layer.
var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrInvalidToken      = errors.New("invalid or expired form token")
	ErrDuplicateIdentity = errors.New("identification is already registered to another member")
	ErrUpstream          = errors.New("upstream service unavailable")
	ErrBadRequest        = errors.New("bad request")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("access denied")
)

// ValidationError lists the fields of a payload that failed validation,
// using the field names the client sent.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// Upstream wraps a failure of a collaborator (database, storage, SMTP,
// OAuth endpoint) so the HTTP layer can answer 502 while keeping the cause.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}

// BadRequest returns an error that maps to 400 with msg shown to the client.
func BadRequest(msg string) error {
	return &clientError{kind: ErrBadRequest, msg: msg}
}

type clientError struct {
	kind error
	msg  string
}

func (e *clientError) Error() string { return e.msg }
func (e *clientError) Unwrap() error { return e.kind }

// Kind is the outcome of classifying an error for a client response.
type Kind struct {
	Status  int
	Code    string
	Message string
	Fields  []string
}

// Classify maps err onto an HTTP status, a stable code, and a message safe
// to show to the client. Unknown errors map to 500 with a generic message.
func Classify(err error) Kind {
	var ve *ValidationError
	var ce *clientError
	switch {
	case errors.As(err, &ve):
		return Kind{Status: http.StatusBadRequest, Code: "validation_failed", Message: ve.Error(), Fields: ve.Fields}
	case errors.Is(err, ErrRecordNotFound):
		return Kind{Status: http.StatusNotFound, Code: "not_found", Message: "User not found"}
	case errors.Is(err, ErrInvalidToken):
		return Kind{Status: http.StatusNotFound, Code: "invalid_token", Message: "Invalid or expired form token"}
	case errors.Is(err, envelope.ErrDecryption), errors.Is(err, envelope.ErrEmptyKey):
		return Kind{Status: http.StatusBadRequest, Code: "decryption_failed", Message: "Encrypted data could not be read"}
	case errors.Is(err, ErrDuplicateIdentity):
		return Kind{Status: http.StatusConflict, Code: "duplicate_identification", Message: "Identification number is already registered"}
	case errors.Is(err, ErrUnauthorized):
		return Kind{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "Invalid username or password"}
	case errors.Is(err, ErrForbidden):
		return Kind{Status: http.StatusForbidden, Code: "forbidden", Message: "Access denied"}
	case errors.As(err, &ce):
		return Kind{Status: http.StatusBadRequest, Code: "bad_request", Message: ce.msg}
	case errors.Is(err, ErrUpstream):
		return Kind{Status: http.StatusBadGateway, Code: "upstream_unavailable", Message: "A required service is unavailable. Please try again later."}
	}
	return Kind{Status: http.StatusInternalServerError, Code: "internal_error", Message: "Internal server error"}
}
