package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Subject is the only principal the admin surface knows about.
const Subject = "admin"

const DefaultTTL = 8 * time.Hour

var ErrNoSecret = errors.New("session secret is not configured")

var b64 = base64.RawURLEncoding.Strict()

// Authenticator mints and checks admin session tokens of the form
// base64url(claims) "." base64url(HMAC-SHA256(secret, base64url(claims))).
// It is immutable after construction and safe for concurrent use.
type Authenticator struct {
	secret       []byte
	passcode     []byte
	passcodeHash []byte
	ttl          time.Duration
	now          func() time.Time
}

type Options struct {
	Secret []byte
	// Passcode is compared verbatim; PasscodeHash (bcrypt) wins when both are set.
	Passcode     string
	PasscodeHash string
	TTL          time.Duration
	Now          func() time.Time
}

func NewAuthenticator(o Options) *Authenticator {
	a := &Authenticator{
		secret:       append([]byte(nil), o.Secret...),
		passcode:     []byte(o.Passcode),
		passcodeHash: []byte(o.PasscodeHash),
		ttl:          o.TTL,
		now:          o.Now,
	}
	if a.ttl <= 0 {
		a.ttl = DefaultTTL
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

func (a *Authenticator) TTL() time.Duration { return a.ttl }

// Issue returns a fresh token and its expiry.
func (a *Authenticator) Issue() (string, time.Time, error) {
	if len(a.secret) == 0 {
		return "", time.Time{}, ErrNoSecret
	}

	issued := jwt.NewNumericDate(a.now())
	expires := jwt.NewNumericDate(issued.Add(a.ttl))

	payload, err := json.Marshal(jwt.RegisteredClaims{
		Subject:   Subject,
		IssuedAt:  issued,
		ExpiresAt: expires,
	})
	if err != nil {
		return "", time.Time{}, err
	}

	body := b64.EncodeToString(payload)
	sig, err := jwt.SigningMethodHS256.Sign(body, a.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return body + "." + b64.EncodeToString(sig), expires.Time, nil
}

// Verify fails closed: any malformed, tampered, foreign or expired token is false.
func (a *Authenticator) Verify(token string) bool {
	if len(a.secret) == 0 {
		return false
	}

	body, sigPart, ok := strings.Cut(token, ".")
	if !ok || body == "" || sigPart == "" {
		return false
	}

	sig, err := b64.DecodeString(sigPart)
	if err != nil {
		return false
	}
	if err := jwt.SigningMethodHS256.Verify(body, sig, a.secret); err != nil {
		return false
	}

	payload, err := b64.DecodeString(body)
	if err != nil {
		return false
	}
	var claims jwt.RegisteredClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return false
	}

	if claims.Subject != Subject || claims.ExpiresAt == nil {
		return false
	}
	return a.now().Before(claims.ExpiresAt.Time)
}
