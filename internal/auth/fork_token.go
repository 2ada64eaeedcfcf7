// Package auth issues the owner tokens that gate the privileged update path
// of read-only forks. Whoever created the fork gets the token; only that
// holder may push fresh content into it.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ForkTokens struct {
	secret []byte
}

func NewForkTokens(secret string) *ForkTokens {
	return &ForkTokens{secret: []byte(secret)}
}

// Issue signs an owner token for one fork id.
func (t *ForkTokens) Issue(forkID string) (string, error) {
	claims := jwt.MapClaims{
		"fork_id": forkID,
		"exp":     time.Now().Add(time.Hour * 24 * 30).Unix(), // expires in 30 days
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify checks that tokenString is a valid owner token for forkID.
func (t *ForkTokens) Verify(tokenString, forkID string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("token invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("token claims invalid")
	}
	if id, _ := claims["fork_id"].(string); id != forkID {
		return errors.New("token does not match fork")
	}

	return nil
}
