package messaging

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid user token")

// IssueToken signs a token that lets a client act as userID and nothing else.
// When the client was configured with a token TTL the token carries an exp
// claim; otherwise it never expires, matching Stream's default.
func (c *Client) IssueToken(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("user id is required to issue a token")
	}

	now := c.now()
	var expire time.Time
	if c.tokenTTL > 0 {
		expire = now.Add(c.tokenTTL)
	}
	signed, err := c.sdk.CreateToken(userID, expire, now)
	if err != nil {
		return "", fmt.Errorf("sign user token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks the signature and expiry of a user token and returns
// the user it is bound to.
func (c *Client) VerifyToken(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.now))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return "", fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	return userID, nil
}
