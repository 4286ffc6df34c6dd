package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var errMalformedToken = errors.New("malformed session token")

// TokenDecoder extracts a session id from a raw transport-level token.
// The concrete encoding (signed cookie, JWT) stays out of the resolver.
type TokenDecoder interface {
	Decode(raw string) (string, error)
}

// CookieDecoder handles signed cookie values of the form "s:<sid>.<sig>",
// the same encoding the HTTP session layer writes, so a WebSocket
// connection can reuse an HTTP-established login.
type CookieDecoder struct {
	secret []byte
}

func NewCookieDecoder(secret []byte) *CookieDecoder {
	return &CookieDecoder{secret: secret}
}

func (d *CookieDecoder) Decode(raw string) (string, error) {
	// Cookie values may arrive percent-encoded ("s%3A...")
	if unescaped, err := url.QueryUnescape(raw); err == nil {
		raw = unescaped
	}

	rest, ok := strings.CutPrefix(raw, "s:")
	if !ok {
		return "", errMalformedToken
	}
	sid, sig, ok := strings.Cut(rest, ".")
	if !ok || sid == "" {
		return "", errMalformedToken
	}
	if !hmac.Equal([]byte(sig), []byte(d.sign(sid))) {
		return "", fmt.Errorf("%w: bad signature", errMalformedToken)
	}
	return sid, nil
}

// Encode produces the signed cookie value for a session id.
func (d *CookieDecoder) Encode(sid string) string {
	return "s:" + sid + "." + d.sign(sid)
}

func (d *CookieDecoder) sign(sid string) string {
	mac := hmac.New(sha256.New, d.secret)
	mac.Write([]byte(sid))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// JWTDecoder handles HS256 tokens carrying the session id in a "sid"
// claim. Non-browser clients use these instead of cookies.
type JWTDecoder struct {
	secret []byte
}

func NewJWTDecoder(secret []byte) *JWTDecoder {
	return &JWTDecoder{secret: secret}
}

func (d *JWTDecoder) Decode(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return d.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", errMalformedToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errMalformedToken
	}
	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return "", fmt.Errorf("%w: missing sid claim", errMalformedToken)
	}
	return sid, nil
}

// Sign issues a token for a session id.
func (d *JWTDecoder) Sign(sid string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sid": sid})
	return token.SignedString(d.secret)
}
