// Package auth verifies the identity headers the API gateway attaches to
// forwarded requests.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dorandoran/user/internal/apperr"
)

// Header names set by the gateway.
const (
	HeaderUserID    = "X-User-Id"
	HeaderTimestamp = "X-Auth-Ts"
	HeaderSignature = "X-Auth-Sign"
	HeaderEmail     = "X-User-Email"
	HeaderName      = "X-User-Name"
)

// DefaultSkew is the maximum tolerated distance between the signed
// timestamp and the local clock.
const DefaultSkew = 60 * time.Second

// Principal is the caller identity asserted by the gateway. Subject is
// usually a user UUID but service callers use plain names.
type Principal struct {
	Subject string
	Email   string
	Name    string
}

// Sign computes the hex HMAC-SHA256 of "subject|ts" where ts is epoch millis.
func Sign(secret, subject string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(subject + "|" + strconv.FormatInt(ts, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verifier checks gateway signatures.
type Verifier struct {
	secret []byte
	skew   time.Duration
	now    func() time.Time
}

// NewVerifier builds a verifier. An empty secret rejects every request.
func NewVerifier(secret string, skew time.Duration) *Verifier {
	if skew <= 0 {
		skew = DefaultSkew
	}
	return &Verifier{secret: []byte(secret), skew: skew, now: time.Now}
}

// WithClock overrides the verifier clock.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Verify validates the gateway headers on r and returns the asserted principal.
func (v *Verifier) Verify(r *http.Request) (Principal, error) {
	subject := r.Header.Get(HeaderUserID)
	rawTS := r.Header.Get(HeaderTimestamp)
	sign := strings.TrimSpace(r.Header.Get(HeaderSignature))

	if subject == "" || rawTS == "" || sign == "" {
		return Principal{}, apperr.Newf(apperr.AuthTokenInvalid, "missing gateway authentication headers")
	}
	if len(v.secret) == 0 {
		return Principal{}, apperr.Newf(apperr.AuthTokenInvalid, "gateway secret is not configured")
	}

	ts, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		return Principal{}, apperr.Newf(apperr.AuthTokenInvalid, "malformed auth timestamp")
	}
	delta := v.now().UnixMilli() - ts
	if delta < 0 {
		delta = -delta
	}
	if delta > v.skew.Milliseconds() {
		return Principal{}, apperr.Newf(apperr.AuthTokenInvalid, "auth timestamp outside allowed skew")
	}

	got, err := hex.DecodeString(sign)
	if err != nil {
		return Principal{}, apperr.Newf(apperr.AuthTokenInvalid, "malformed auth signature")
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(subject + "|" + rawTS))
	if !hmac.Equal(got, mac.Sum(nil)) {
		return Principal{}, apperr.Newf(apperr.AuthTokenInvalid, "auth signature mismatch")
	}

	return Principal{
		Subject: subject,
		Email:   r.Header.Get(HeaderEmail),
		Name:    r.Header.Get(HeaderName),
	}, nil
}

type principalKey struct{}

// WithPrincipal stores p on the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored by WithPrincipal.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
