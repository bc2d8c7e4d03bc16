package bokun

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

const (
	headerDate      = "X-Bokun-Date"
	headerAccessKey = "X-Bokun-AccessKey"
	headerSignature = "X-Bokun-Signature"

	dateLayout = "2006-01-02 15:04:05"
)

// Signer produces the per-request authentication headers Bokun expects.
type Signer struct {
	creds Credentials
	now   func() time.Time
}

// NewSigner returns a signer using the wall clock.
func NewSigner(creds Credentials) *Signer {
	return &Signer{creds: creds, now: time.Now}
}

// DateString formats t in UTC the way Bokun reads X-Bokun-Date.
func DateString(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// StringToSign concatenates the signed request parts. query includes its
// leading "?" when present.
func StringToSign(date, accessKey, method, path, query string) string {
	return strings.TrimSpace(date + accessKey + method + path + query)
}

// Sign returns Base64(HMAC-SHA1(secret, message)).
func Sign(secretKey, message string) string {
	mac := hmac.New(sha1.New, []byte(secretKey))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Headers builds a fresh header set for one request.
func (s *Signer) Headers(method, path, query string) http.Header {
	date := DateString(s.now())
	h := http.Header{}
	h.Set(headerDate, date)
	h.Set(headerAccessKey, s.creds.AccessKey)
	h.Set(headerSignature, Sign(s.creds.SecretKey, StringToSign(date, s.creds.AccessKey, method, path, query)))
	h.Set("Accept", "application/json")
	return h
}
