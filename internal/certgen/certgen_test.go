package certgen_test

import (
	"crypto/ecdsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/memedesk/internal/certgen"
	"github.com/atinyakov/memedesk/internal/client/api"
)

func parseCert(t *testing.T, certPEM []byte) *x509.Certificate {
	t.Helper()
	block, _ := pem.Decode(certPEM)
	require.NotNil(t, block)
	require.Equal(t, "CERTIFICATE", block.Type)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	return cert
}

func TestGenerateCA(t *testing.T) {
	ca, err := certgen.GenerateCA("memedesk dev CA")
	require.NoError(t, err)

	cert := parseCert(t, ca.Cert)
	assert.True(t, cert.IsCA)
	assert.Equal(t, "memedesk dev CA", cert.Subject.CommonName)
	assert.True(t, cert.NotAfter.After(time.Now().AddDate(9, 0, 0)))

	parsed, key, err := certgen.ParseCA(ca)
	require.NoError(t, err)
	assert.Equal(t, cert.SerialNumber, parsed.SerialNumber)
	_, ok := key.(*ecdsa.PrivateKey)
	assert.True(t, ok)
}

func TestGenerateServerCertificate(t *testing.T) {
	ca, err := certgen.GenerateCA("test CA")
	require.NoError(t, err)
	caCert, caKey, err := certgen.ParseCA(ca)
	require.NoError(t, err)

	pair, err := certgen.GenerateServerCertificate([]string{"localhost", "127.0.0.1"}, caCert, caKey)
	require.NoError(t, err)

	cert := parseCert(t, pair.Cert)
	assert.Equal(t, "localhost", cert.Subject.CommonName)
	assert.Equal(t, []string{"localhost"}, cert.DNSNames)
	require.Len(t, cert.IPAddresses, 1)
	assert.Equal(t, "127.0.0.1", cert.IPAddresses[0].String())
	assert.Equal(t, []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}, cert.ExtKeyUsage)
	require.NoError(t, cert.CheckSignatureFrom(caCert))

	_, err = certgen.GenerateServerCertificate(nil, caCert, caKey)
	assert.Error(t, err)
}

func TestParseCA_Rejects(t *testing.T) {
	ca, err := certgen.GenerateCA("test CA")
	require.NoError(t, err)
	caCert, caKey, err := certgen.ParseCA(ca)
	require.NoError(t, err)
	leaf, err := certgen.GenerateServerCertificate([]string{"localhost"}, caCert, caKey)
	require.NoError(t, err)

	cases := map[string]struct {
		pair certgen.Pair
		want string
	}{
		"bad cert":     {certgen.Pair{Cert: []byte("not a cert"), Key: ca.Key}, "invalid CA cert PEM"},
		"bad key":      {certgen.Pair{Cert: ca.Cert, Key: []byte("not a key")}, "invalid CA key PEM"},
		"not a CA":     {leaf, "not a CA"},
		"unknown type": {certgen.Pair{Cert: ca.Cert, Key: pem.EncodeToMemory(&pem.Block{Type: "SECRET", Bytes: []byte{1}})}, "unsupported key type"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := certgen.ParseCA(tc.pair)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestWriteAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	ca, err := certgen.GenerateCA("test CA")
	require.NoError(t, err)
	require.NoError(t, ca.Write(dir, "ca"))

	info, err := os.Stat(filepath.Join(dir, "ca.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cert, _, err := certgen.LoadCACredentials(filepath.Join(dir, "ca.crt"), filepath.Join(dir, "ca.key"))
	require.NoError(t, err)
	assert.Equal(t, "test CA", cert.Subject.CommonName)

	_, _, err = certgen.LoadCACredentials(filepath.Join(dir, "missing.crt"), "ignored")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read ca cert")

	_, _, err = certgen.LoadCACredentials(filepath.Join(dir, "ca.crt"), filepath.Join(dir, "missing.key"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read ca key")
}

func TestClientTrustsIssuedServer(t *testing.T) {
	dir := t.TempDir()
	ca, err := certgen.GenerateCA("test CA")
	require.NoError(t, err)
	require.NoError(t, ca.Write(dir, "ca"))
	caCert, caKey, err := certgen.ParseCA(ca)
	require.NoError(t, err)
	pair, err := certgen.GenerateServerCertificate([]string{"127.0.0.1"}, caCert, caKey)
	require.NoError(t, err)
	serverCert, err := tls.X509KeyPair(pair.Cert, pair.Key)
	require.NoError(t, err)

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	srv.TLS = &tls.Config{Certificates: []tls.Certificate{serverCert}, MinVersion: tls.VersionTLS12}
	srv.StartTLS()
	defer srv.Close()

	client, err := api.NewTLSHTTPClient(filepath.Join(dir, "ca.crt"), 5*time.Second)
	require.NoError(t, err)
	resp, err := client.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
