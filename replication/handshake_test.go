package replication

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/veraison/go-cose"
)

func TestHandshakeMarshalRoundTrip(t *testing.T) {
	h := NewHandshake([32]byte{1, 2, 3, 4})
	b, err := h.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalHandshake(b)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(h, got))
}

func TestUnmarshalHandshakeRejectsGarbage(t *testing.T) {
	_, err := UnmarshalHandshake([]byte{0xff, 0xff, 0xff})
	require.ErrorIs(t, err, ErrCorruptedData)
}

func TestHandshakeSignAndVerify(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	signer, err := cose.NewSigner(cose.AlgorithmES256, privateKey)
	require.NoError(t, err)
	verifier, err := cose.NewVerifier(cose.AlgorithmES256, privateKey.Public())
	require.NoError(t, err)

	h := NewHandshake([32]byte{9, 9, 9})
	signed, err := h.Sign(signer)
	require.NoError(t, err)

	got, err := VerifySigned(signed, verifier)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(h, got))
}

func TestHandshakeVerifyRejectsTamperedPayload(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	signer, err := cose.NewSigner(cose.AlgorithmES256, privateKey)
	require.NoError(t, err)

	otherKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	wrongVerifier, err := cose.NewVerifier(cose.AlgorithmES256, otherKey.Public())
	require.NoError(t, err)

	signed, err := NewHandshake([32]byte{1}).Sign(signer)
	require.NoError(t, err)

	_, err = VerifySigned(signed, wrongVerifier)
	require.Error(t, err)
}
