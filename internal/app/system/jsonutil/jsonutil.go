// internal/app/system/jsonutil/jsonutil.go
package jsonutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dalemusser/membersverify/internal/app/system/apierr"
)

// DefaultMaxBody bounds JSON request bodies.
const DefaultMaxBody = 1 << 20

// Write sends v as a JSON response with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Message is the common {status, message} response body.
type Message struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// OK writes {status: true, message: msg} with the given status code.
func OK(w http.ResponseWriter, status int, msg string) {
	Write(w, status, Message{Status: true, Message: msg})
}

// Decode reads a JSON body of at most maxBytes into dst. Unknown fields are
// allowed. Malformed input yields an apierr bad-request error.
func Decode(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBody
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return apierr.BadRequest("request body is empty")
		case errors.As(err, &maxErr):
			return apierr.BadRequest(fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return apierr.BadRequest("request body is not valid JSON")
		case errors.As(err, &typeErr):
			return apierr.BadRequest(fmt.Sprintf("field %q has the wrong type", typeErr.Field))
		}
		return apierr.BadRequest(strings.TrimPrefix(err.Error(), "json: "))
	}
	return nil
}
