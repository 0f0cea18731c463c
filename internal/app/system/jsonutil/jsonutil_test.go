package jsonutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/membersverify/internal/app/system/apierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, http.StatusCreated, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	var out map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 1, out["n"])
}

func TestDecode(t *testing.T) {
	type body struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}

	cases := []struct {
		name    string
		input   string
		max     int64
		wantErr bool
	}{
		{"valid", `{"name":"a","age":3}`, 0, false},
		{"unknown fields allowed", `{"name":"a","extra":true}`, 0, false},
		{"empty", ``, 0, true},
		{"syntax", `{"name":`, 0, true},
		{"wrong type", `{"age":"x"}`, 0, true},
		{"too large", `{"name":"` + strings.Repeat("a", 100) + `"}`, 16, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.input))
			var b body
			err := Decode(httptest.NewRecorder(), r, &b, tc.max)
			if tc.wantErr {
				assert.ErrorIs(t, err, apierr.ErrBadRequest)
				return
			}
			assert.NoError(t, err)
		})
	}
}
