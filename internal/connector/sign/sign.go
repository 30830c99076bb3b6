// Package sign computes the marketplace's HMAC-SHA256 request signatures.
//
// The vendor specifies two canonicalization rules. Token endpoints
// (/auth/token/create, /auth/token/refresh) wrap the canonical parameter
// string in the app secret on both sides. General API calls through the
// /sync gateway prefix the canonical string with the API method name
// instead. Both produce an uppercase hex digest keyed by the app secret.
// Mixing the variants up yields an IncompleteSignature rejection from the
// vendor, so they are kept as separate entry points.
package sign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// TokenRequest signs parameters for the vendor's OAuth token endpoints:
// HMAC-SHA256(secret, secret + canonical + secret), uppercase hex.
func TokenRequest(params map[string]string, secret string) string {
	return digest(secret+canonical(params)+secret, secret)
}

// APIRequest signs parameters for the vendor's general API gateway:
// HMAC-SHA256(secret, method + canonical), uppercase hex. method is the API
// method identifier the request invokes, e.g. "aliexpress.ds.text.search".
func APIRequest(method string, params map[string]string, secret string) string {
	return digest(method+canonical(params), secret)
}

// canonical sorts parameter keys lexicographically and concatenates
// key+value in sorted order. The sign key itself and unset parameters never
// contribute to the canonical string.
func canonical(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == "sign" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}
	return b.String()
}

func digest(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}
