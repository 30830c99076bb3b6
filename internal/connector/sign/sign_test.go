package sign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func hmacUpper(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

func TestTokenRequestCanonicalization(t *testing.T) {
	t.Parallel()

	// Known scenario: sorted concatenation wrapped in the secret.
	params := map[string]string{
		"app_key":     "525634",
		"code":        "abc",
		"sign_method": "sha256",
		"timestamp":   "1000",
	}

	want := hmacUpper("S"+"app_key525634codeabcsign_methodsha256timestamp1000"+"S", "S")
	require.Equal(t, want, TokenRequest(params, "S"))
}

func TestTokenRequestDeterminism(t *testing.T) {
	t.Parallel()

	params := map[string]string{
		"timestamp":   "1699999999999",
		"app_key":     "123456",
		"sign_method": "sha256",
		"code":        "3_500123_abcDEF",
	}

	first := TokenRequest(params, "topsecret")
	second := TokenRequest(params, "topsecret")
	require.Equal(t, first, second)

	// Rebuilding the map in a different insertion order must not matter.
	reordered := map[string]string{}
	for _, k := range []string{"code", "sign_method", "app_key", "timestamp"} {
		reordered[k] = params[k]
	}
	require.Equal(t, first, TokenRequest(reordered, "topsecret"))
}

func TestSignKeyAndUnsetValuesExcluded(t *testing.T) {
	t.Parallel()

	base := map[string]string{
		"app_key":   "1",
		"timestamp": "2",
	}
	polluted := map[string]string{
		"app_key":   "1",
		"timestamp": "2",
		"sign":      "DEADBEEF",
		"session":   "",
	}

	require.Equal(t, TokenRequest(base, "k"), TokenRequest(polluted, "k"))
	require.Equal(t, APIRequest("m", base, "k"), APIRequest("m", polluted, "k"))
}

func TestVariantsDiffer(t *testing.T) {
	t.Parallel()

	params := map[string]string{
		"app_key":   "525634",
		"timestamp": "1000",
	}

	token := TokenRequest(params, "S")
	api := APIRequest("aliexpress.ds.text.search", params, "S")
	require.NotEqual(t, token, api,
		"token and API variants must not collapse into one algorithm")

	// The API variant prefixes the method, no secret wrap.
	want := hmacUpper("aliexpress.ds.text.search"+"app_key525634timestamp1000", "S")
	require.Equal(t, want, api)
}

func TestSignatureShape(t *testing.T) {
	t.Parallel()

	sig := TokenRequest(map[string]string{"a": "b"}, "secret")
	require.Len(t, sig, 64)
	require.Equal(t, strings.ToUpper(sig), sig)
}
