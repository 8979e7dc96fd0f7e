// Package signer implements HMAC request signing for upstream bank and
// card network APIs.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// HMACSigner signs request parameters with a shared secret.
// The canonical form sorts parameter names lexicographically and joins
// them as key=value pairs with '&'. Values are used verbatim, no URL
// escaping, so both sides derive the identical string.
type HMACSigner struct {
	secret []byte
}

// New returns a signer over the given shared secret.
func New(secret string) *HMACSigner {
	return &HMACSigner{secret: []byte(secret)}
}

// Sign computes the hex-encoded HMAC-SHA256 of the canonical form of params.
func (s *HMACSigner) Sign(params map[string]string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(Canonical(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig is a valid signature for params.
func (s *HMACSigner) Verify(params map[string]string, sig string) bool {
	expected, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(Canonical(params)))
	return hmac.Equal(mac.Sum(nil), expected)
}

// Canonical builds the canonical signing string: parameters sorted by
// name, each rendered as key=value, joined with '&'.
func Canonical(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}
