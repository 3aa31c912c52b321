package crypto

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSealer(t *testing.T) *Sealer {
	t.Helper()
	s, err := NewSealer(bytes.Repeat([]byte{1}, KeySize), bytes.Repeat([]byte{2}, KeySize))
	require.NoError(t, err)
	return s
}

func TestSealOpen(t *testing.T) {
	s := newSealer(t)

	sealed, err := s.Seal("<p>dear diary</p>")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "diary")

	again, err := s.Seal("<p>dear diary</p>")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per seal")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "<p>dear diary</p>", plain)
}

func TestSealEmpty(t *testing.T) {
	s := newSealer(t)
	sealed, err := s.Seal("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	plain, err := s.Open("")
	require.NoError(t, err)
	assert.Empty(t, plain)
}

func TestOpen_Errors(t *testing.T) {
	s := newSealer(t)

	_, err := s.Open("not base64!")
	assert.Error(t, err)

	_, err = s.Open(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrCiphertextShort)

	other, err := NewSealer(bytes.Repeat([]byte{9}, KeySize), bytes.Repeat([]byte{2}, KeySize))
	require.NoError(t, err)
	sealed, err := other.Seal("secret")
	require.NoError(t, err)
	_, err = s.Open(sealed)
	assert.Error(t, err)
}

func TestBlindIndex(t *testing.T) {
	s := newSealer(t)
	assert.Equal(t, s.BlindIndex("a@b.c"), s.BlindIndex("a@b.c"))
	assert.NotEqual(t, s.BlindIndex("a@b.c"), s.BlindIndex("a@b.d"))
	assert.Empty(t, s.BlindIndex(""))
}

func TestNewSealer_KeySize(t *testing.T) {
	_, err := NewSealer([]byte("short"), bytes.Repeat([]byte{2}, KeySize))
	assert.ErrorIs(t, err, ErrKeySize)
	_, err = NewSealer(bytes.Repeat([]byte{1}, KeySize), nil)
	assert.ErrorIs(t, err, ErrKeySize)
}

func TestParseKey(t *testing.T) {
	hexKey, err := GenerateKey()
	require.NoError(t, err)
	k, err := ParseKey(hexKey)
	require.NoError(t, err)
	assert.Len(t, k, KeySize)

	b64 := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, KeySize))
	k, err = ParseKey(b64)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{7}, KeySize), k)

	_, err = ParseKey("nope")
	assert.ErrorIs(t, err, ErrKeySize)
}
