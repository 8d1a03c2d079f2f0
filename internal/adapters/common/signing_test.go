package common

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/require"
)

func generatePEMKey(t *testing.T) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der := x509.MarshalPKCS1PrivateKey(key)
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der})
}

func TestLoadSignerFromPEMAndSignVerifyRoundTrip(t *testing.T) {
	pemBytes := generatePEMKey(t)
	signer, err := LoadSignerFromPEM(pemBytes)
	require.NoError(t, err)

	sig, err := signer.Sign(1_700_000_000_000, "GET", "/trade-api/v2/ws")
	require.NoError(t, err)
	require.NotEmpty(t, sig)

	err = Verify(&signer.key.PublicKey, 1_700_000_000_000, "GET", "/trade-api/v2/ws", sig)
	require.NoError(t, err)
}

func TestVerifyRejectsTamperedPath(t *testing.T) {
	pemBytes := generatePEMKey(t)
	signer, err := LoadSignerFromPEM(pemBytes)
	require.NoError(t, err)

	sig, err := signer.Sign(1_700_000_000_000, "GET", "/trade-api/v2/ws")
	require.NoError(t, err)

	err = Verify(&signer.key.PublicKey, 1_700_000_000_000, "GET", "/trade-api/v2/other", sig)
	require.Error(t, err)
}

func TestLoadSignerFromPEMRejectsGarbage(t *testing.T) {
	_, err := LoadSignerFromPEM([]byte("not a pem"))
	require.Error(t, err)
}
