package session

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// Claims identify the session a token refers to.
type Claims struct {
	SessionID string
	UserID    uint
}

// TokenCodec signs and verifies session tokens with HMAC-SHA256.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenCodec creates a codec; tokens expire after ttl.
func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), ttl: ttl}
}

// Issue returns a signed token for the session.
func (c *TokenCodec) Issue(sid string, userID uint) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid":     sid,
		"user_id": userID,
		"exp":     now.Add(c.ttl).Unix(),
		"iat":     now.Unix(),
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Parse validates the signature and expiry and returns the claims.
func (c *TokenCodec) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	sid, _ := claims["sid"].(string)
	uid, _ := claims["user_id"].(float64)
	if sid == "" || uid <= 0 {
		return nil, fmt.Errorf("invalid token: missing session claims")
	}
	return &Claims{SessionID: sid, UserID: uint(uid)}, nil
}
