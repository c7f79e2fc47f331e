// Package invite signs and verifies the short-lived tokens that bootstrap a
// child's first login. Tokens are self-contained: verification recomputes
// the signature and checks the clock, never the store.
package invite

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// TTL is the token lifetime.
const TTL = 7 * 24 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid invite token")
	ErrTokenExpired = errors.New("invite token expired")
)

type payload struct {
	ChildID int   `json:"child_id"`
	Expiry  int64 `json:"exp"`
}

// Service signs and verifies invite tokens with a server secret.
type Service struct {
	secret []byte
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(secret []byte) *Service {
	return &Service{secret: secret, now: time.Now}
}

// Sign encodes {child_id, expiry} and appends an HMAC over the encoded
// payload: base64url(payload) + "." + base64url(signature).
func (s *Service) Sign(childID int) (string, error) {
	body, err := json.Marshal(payload{ChildID: childID, Expiry: s.now().Add(TTL).Unix()})
	if err != nil {
		return "", err
	}

	encoded := base64.RawURLEncoding.EncodeToString(body)
	return encoded + "." + s.sign(encoded), nil
}

// Verify checks the signature in constant time, then the expiry, and returns
// the child id.
func (s *Service) Verify(token string) (int, error) {
	encoded, signature, found := strings.Cut(token, ".")
	if !found || encoded == "" || signature == "" {
		return 0, ErrInvalidToken
	}

	if !hmac.Equal([]byte(s.sign(encoded)), []byte(signature)) {
		return 0, ErrInvalidToken
	}

	body, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return 0, ErrInvalidToken
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil || p.ChildID == 0 {
		return 0, ErrInvalidToken
	}
	if p.Expiry < s.now().Unix() {
		return 0, ErrTokenExpired
	}

	return p.ChildID, nil
}

func (s *Service) sign(encoded string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
