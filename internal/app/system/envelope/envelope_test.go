package envelope

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type formPayload struct {
	FirstName      string `json:"firstName"`
	Identification string `json:"identification"`
}

func TestSealOpen_RoundTrip(t *testing.T) {
	in := formPayload{FirstName: "Ana", Identification: "X123"}

	sealed, err := Seal(in, "shared-secret")
	require.NoError(t, err)

	var out formPayload
	require.NoError(t, Open(sealed, "shared-secret", &out))
	assert.Equal(t, in, out)
}

func TestSealOpen_StringPayload(t *testing.T) {
	sealed, err := Seal("https://bucket.example/uploads/1-id.png", "k")
	require.NoError(t, err)

	var url string
	require.NoError(t, Open(sealed, "k", &url))
	assert.Equal(t, "https://bucket.example/uploads/1-id.png", url)
}

func TestSeal_FreshNonceEachCall(t *testing.T) {
	a, err := Seal("same", "k")
	require.NoError(t, err)
	b, err := Seal("same", "k")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpen_WrongKey(t *testing.T) {
	sealed, err := Seal("secret", "key-a")
	require.NoError(t, err)

	var out string
	err = Open(sealed, "key-b", &out)
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestOpen_Tampered(t *testing.T) {
	sealed, err := Seal(map[string]string{"a": "b"}, "k")
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	tampered := base64.RawURLEncoding.EncodeToString(raw)

	var out map[string]string
	assert.ErrorIs(t, Open(tampered, "k", &out), ErrDecryption)
}

func TestOpen_Malformed(t *testing.T) {
	var out string
	for _, in := range []string{"", "not base64 !!", "AQ", base64.RawURLEncoding.EncodeToString(make([]byte, 64))} {
		assert.ErrorIs(t, Open(in, "k", &out), ErrDecryption, "input %q", in)
	}
}

func TestOpen_WrongShapeIsDecryptionError(t *testing.T) {
	sealed, err := Seal([]int{1, 2, 3}, "k")
	require.NoError(t, err)

	var out formPayload
	assert.ErrorIs(t, Open(sealed, "k", &out), ErrDecryption)
}

func TestEmptyKey(t *testing.T) {
	_, err := Seal("x", "")
	assert.ErrorIs(t, err, ErrEmptyKey)

	var out string
	assert.ErrorIs(t, Open("abc", "", &out), ErrEmptyKey)

	_, err = New("")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestBox_Reuse(t *testing.T) {
	box, err := New("k")
	require.NoError(t, err)

	sealed, err := box.Seal(42)
	require.NoError(t, err)

	var n int
	require.NoError(t, box.Open(sealed, &n))
	assert.Equal(t, 42, n)
}
