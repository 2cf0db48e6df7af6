package dispatch

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SignatureHeader carries the webhook payload signature when a shared
// secret is configured.
const SignatureHeader = "X-WBOR-Signature"

// signPayload returns the HMAC-SHA256 signature of payload in the format
// sha256=<hex>, so receivers can verify the body came from us.
func signPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return fmt.Sprintf("sha256=%s", hex.EncodeToString(mac.Sum(nil)))
}
