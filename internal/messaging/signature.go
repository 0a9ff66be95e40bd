package messaging

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var ErrSignatureInvalid = errors.New("request signature invalid")

const signatureWindow = 5 * time.Minute

// VerifySignature checks the v0 HMAC-SHA256 request signature the gateway
// attaches to every webhook: hex(hmac(secret, "v0:<ts>:<body>")). Rejects
// timestamps outside the replay window before touching the MAC.
func VerifySignature(secret, timestamp, signature string, body []byte, now time.Time) error {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrSignatureInvalid
	}

	age := now.Sub(time.Unix(ts, 0))
	if age > signatureWindow || age < -signatureWindow {
		return ErrSignatureInvalid
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:", timestamp)
	mac.Write(body)
	want := "v0=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(want), []byte(signature)) {
		return ErrSignatureInvalid
	}
	return nil
}

// SignBody produces the signature header value for a given body, used by
// the mock webhook tool and tests.
func SignBody(secret string, ts time.Time, body []byte) (timestamp, signature string) {
	timestamp = strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:", timestamp)
	mac.Write(body)
	return timestamp, "v0=" + hex.EncodeToString(mac.Sum(nil))
}
