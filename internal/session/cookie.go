// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const cookieDelimiter = "|"

// signValue returns "value|hmac-sha256(value)".
func signValue(value, secret string) string {
	return value + cookieDelimiter + computeHMAC(value, secret)
}

// verifyValue returns the signed value if the signature matches.
func verifyValue(cookie, secret string) (string, bool) {
	if cookie == "" {
		return "", false
	}
	value, signature, ok := strings.Cut(cookie, cookieDelimiter)
	if !ok || value == "" {
		return "", false
	}
	expected := computeHMAC(value, secret)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return "", false
	}
	return value, true
}

func computeHMAC(data, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
