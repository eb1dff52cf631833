package webserver

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	// CSRFTokenLength is the number of random bytes in a token nonce
	CSRFTokenLength = 32
	CSRFCookieName  = "csrf_token"
	CSRFFieldName   = "csrf_token"
	CSRFHeaderName  = "X-CSRF-Token"
	csrfSubject     = "csrf"
)

var errCSRFMissing = errors.New("missing CSRF token")

// CSRF issues and checks double-submit tokens signed with the session secret
type CSRF struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewCSRF(secret string, ttl time.Duration) *CSRF {
	return &CSRF{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// GenerateCSRFToken generates a cryptographically secure random nonce
func GenerateCSRFToken() (string, error) {
	bytes := make([]byte, CSRFTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate CSRF token: %w", err)
	}

	return hex.EncodeToString(bytes), nil
}

// Issue returns a new signed token
func (c *CSRF) Issue() (string, error) {
	nonce, err := GenerateCSRFToken()
	if err != nil {
		return "", err
	}

	now := c.now()
	claims := jwt.StandardClaims{
		Id:        nonce,
		Subject:   csrfSubject,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(c.ttl).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign CSRF token: %w", err)
	}

	return signed, nil
}

// Verify checks the signature, subject and expiry of token
func (c *CSRF) Verify(token string) error {
	claims := &jwt.StandardClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}

		return c.secret, nil
	})
	if err != nil {
		return fmt.Errorf("invalid CSRF token: %w", err)
	}

	if !parsed.Valid || claims.Subject != csrfSubject || claims.Id == "" {
		return errors.New("invalid CSRF token claims")
	}

	if !claims.VerifyExpiresAt(c.now().Unix(), true) {
		return errors.New("CSRF token expired")
	}

	return nil
}

// ValidateCSRFToken checks that submitted matches the cookie of r and is a
// token this server signed
func (c *CSRF) ValidateCSRFToken(r *http.Request, submitted string) error {
	cookie := GetCSRFTokenFromCookie(r)
	if cookie == "" || submitted == "" {
		return errCSRFMissing
	}

	if subtle.ConstantTimeCompare([]byte(cookie), []byte(submitted)) != 1 {
		return errors.New("CSRF token mismatch")
	}

	return c.Verify(submitted)
}

// SetCSRFTokenCookie sets a CSRF token in a secure cookie
func SetCSRFTokenCookie(w http.ResponseWriter, r *http.Request, token string, ttl time.Duration) {
	cookie := &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
	}
	http.SetCookie(w, cookie)
}

// GetCSRFTokenFromCookie retrieves CSRF token from cookie
func GetCSRFTokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil {
		return ""
	}

	return cookie.Value
}
