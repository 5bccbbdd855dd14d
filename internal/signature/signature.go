// Package signature implements Slack request signing verification
// (timestamp + HMAC-SHA256 over the raw request body).
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderTimestamp = "X-Slack-Request-Timestamp"
	HeaderSignature = "X-Slack-Signature"

	// Requests older than this are rejected as possible replays.
	MaxAge = 300 * time.Second
)

// Verifier checks the v0 Slack signing scheme:
//
//	signature = "v0=" + hex(HMAC_SHA256(secret, "v0:" + timestamp + ":" + body))
type Verifier struct {
	SigningSecret string
	Now           func() time.Time
}

// Verify reports whether headers carry a fresh, valid signature for body.
// A missing or stale timestamp fails; digests are compared in constant time.
func (v *Verifier) Verify(headers http.Header, body []byte) bool {
	if v == nil || v.SigningSecret == "" {
		return false
	}
	timestamp := strings.TrimSpace(headers.Get(HeaderTimestamp))
	provided := strings.TrimSpace(headers.Get(HeaderSignature))
	if timestamp == "" || provided == "" {
		return false
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	nowFn := v.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	if nowFn().Unix()-ts > int64(MaxAge/time.Second) {
		return false
	}

	mac := hmac.New(sha256.New, []byte(v.SigningSecret))
	mac.Write([]byte("v0:" + timestamp + ":"))
	mac.Write(body)
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(provided), []byte(expected))
}
