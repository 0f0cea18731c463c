package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/dalemusser/membersverify/internal/app/system/envelope"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", ErrRecordNotFound, http.StatusNotFound, "not_found"},
		{"wrapped not found", fmt.Errorf("issue token: %w", ErrRecordNotFound), http.StatusNotFound, "not_found"},
		{"invalid token", ErrInvalidToken, http.StatusNotFound, "invalid_token"},
		{"decryption", fmt.Errorf("open: %w", envelope.ErrDecryption), http.StatusBadRequest, "decryption_failed"},
		{"validation", &ValidationError{Fields: []string{"dob"}}, http.StatusBadRequest, "validation_failed"},
		{"duplicate", ErrDuplicateIdentity, http.StatusConflict, "duplicate_identification"},
		{"upstream", Upstream("send email", errors.New("dial tcp: refused")), http.StatusBadGateway, "upstream_unavailable"},
		{"bad request", BadRequest("toEmail is required"), http.StatusBadRequest, "bad_request"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "forbidden"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			k := Classify(tc.err)
			assert.Equal(t, tc.status, k.Status)
			assert.Equal(t, tc.code, k.Code)
			assert.NotEmpty(t, k.Message)
		})
	}
}

func TestClassify_ValidationFieldsAndMessage(t *testing.T) {
	k := Classify(&ValidationError{Fields: []string{"firstName", "dob"}})
	assert.Equal(t, []string{"firstName", "dob"}, k.Fields)
	assert.Equal(t, "missing or invalid fields: firstName, dob", k.Message)
}

func TestBadRequest_MessageIsClientFacing(t *testing.T) {
	k := Classify(BadRequest("toEmail is required"))
	assert.Equal(t, "toEmail is required", k.Message)
}

func TestUpstream_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Upstream("find member", cause)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, Upstream("noop", nil))
}
