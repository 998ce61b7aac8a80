package ldeval

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SecureModeHash computes the HMAC-SHA256 of the user key, keyed by the SDK key, hex-encoded in
// lower case. It lets client-side code running in "secure mode" prove it was given a user key by a
// server holding the SDK key, without exposing the SDK key itself.
func SecureModeHash(sdkKey, userKey string) string {
	h := hmac.New(sha256.New, []byte(sdkKey))
	h.Write([]byte(userKey))
	return hex.EncodeToString(h.Sum(nil))
}
