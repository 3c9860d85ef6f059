// Package token issues and verifies the identity tokens carried by every
// authenticated request. Tokens hold only {subject_id, provider}: no role,
// no expiry. Rotating the signing secret is the only way to invalidate them.
package token

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/threadline/backend/internal/model"
)

var (
	ErrMissingSecret   = errors.New("token signing secret is not configured")
	ErrInvalidIdentity = errors.New("invalid identity")
)

type claims struct {
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

type Codec struct {
	secret []byte
	parser *jwt.Parser
}

func NewCodec(secret string) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	return &Codec{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithStrictDecoding(),
		),
	}, nil
}

// Issue signs the identity. The output depends only on the identity and the secret.
func (c *Codec) Issue(id model.Identity) (string, error) {
	if c == nil || len(c.secret) == 0 {
		return "", ErrMissingSecret
	}
	if strings.TrimSpace(id.SubjectID) == "" || !id.Provider.Valid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidIdentity, id)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Provider: string(id.Provider),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: id.SubjectID,
		},
	})
	return token.SignedString(c.secret)
}

// Verify returns the identity carried by a valid token. Any failure,
// including a codec without a secret, yields ok=false.
func (c *Codec) Verify(tokenStr string) (id model.Identity, ok bool) {
	if c == nil || len(c.secret) == 0 || tokenStr == "" {
		return model.Identity{}, false
	}
	defer func() {
		if recover() != nil {
			id, ok = model.Identity{}, false
		}
	}()

	parsed := &claims{}
	tok, err := c.parser.ParseWithClaims(tokenStr, parsed, func(t *jwt.Token) (interface{}, error) {
		if _, isHMAC := t.Method.(*jwt.SigningMethodHMAC); !isHMAC {
			return nil, ErrInvalidIdentity
		}
		return c.secret, nil
	})
	if err != nil || !tok.Valid {
		return model.Identity{}, false
	}

	provider := model.Provider(parsed.Provider)
	if parsed.Subject == "" || !provider.Valid() {
		return model.Identity{}, false
	}
	return model.Identity{SubjectID: parsed.Subject, Provider: provider}, true
}
