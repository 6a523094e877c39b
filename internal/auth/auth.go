// Package auth signs hydration tickets: short-lived JWTs that name the
// render transaction whose transfer entries a websocket session may consume.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var secret []byte

var (
	ErrNoSecret      = errors.New("ticket secret not set")
	ErrInvalidTicket = errors.New("invalid ticket")
)

// Call this once at startup with cfg.Security.TicketSecret
func SetSecret(s string) {
	secret = []byte(s)
}

// Ticket identifies one server render of one section.
type Ticket struct {
	RenderID string
	Section  string
}

func IssueTicket(t Ticket, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrNoSecret
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": t.RenderID,
		"sec": t.Section,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(secret)
}

func ParseTicket(raw string) (Ticket, error) {
	if len(secret) == 0 {
		return Ticket{}, ErrNoSecret
	}
	parsed, err := jwt.Parse(raw,
		func(*jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return Ticket{}, ErrInvalidTicket
	}
	c, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Ticket{}, ErrInvalidTicket
	}
	sub, _ := c["sub"].(string)
	sec, _ := c["sec"].(string)
	if sub == "" || sec == "" {
		return Ticket{}, ErrInvalidTicket
	}
	return Ticket{RenderID: sub, Section: sec}, nil
}
