package token

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threadline/backend/internal/model"
)

const fixtureSecret = "fixture-secret"

func newCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(fixtureSecret)
	require.NoError(t, err)
	return c
}

func TestNewCodecRequiresSecret(t *testing.T) {
	_, err := NewCodec("  ")
	require.ErrorIs(t, err, ErrMissingSecret)
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	c := newCodec(t)
	ids := []model.Identity{
		{SubjectID: "80351110224678912", Provider: model.ProviderDiscord},
		{SubjectID: "113925447391870519238", Provider: model.ProviderGoogle},
		{SubjectID: "ünïcode ✓", Provider: model.ProviderDiscord},
	}

	for _, id := range ids {
		t.Run(id.Key(), func(t *testing.T) {
			tok, err := c.Issue(id)
			require.NoError(t, err)
			assert.Len(t, strings.Split(tok, "."), 3)

			got, ok := c.Verify(tok)
			require.True(t, ok)
			assert.Equal(t, id, got)
		})
	}
}

func TestIssueIsDeterministic(t *testing.T) {
	c := newCodec(t)
	id := model.Identity{SubjectID: "42", Provider: model.ProviderDiscord}

	a, err := c.Issue(id)
	require.NoError(t, err)
	b, err := c.Issue(id)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestIssueCarriesNoRoleOrExpiry(t *testing.T) {
	c := newCodec(t)
	tok, err := c.Issue(model.Identity{SubjectID: "42", Provider: model.ProviderGoogle})
	require.NoError(t, err)

	payload, err := base64.RawURLEncoding.DecodeString(strings.Split(tok, ".")[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"provider":"google","sub":"42"}`, string(payload))
}

func TestIssueRejectsInvalidIdentity(t *testing.T) {
	c := newCodec(t)

	_, err := c.Issue(model.Identity{SubjectID: "", Provider: model.ProviderDiscord})
	require.ErrorIs(t, err, ErrInvalidIdentity)

	_, err = c.Issue(model.Identity{SubjectID: "1", Provider: "myspace"})
	require.ErrorIs(t, err, ErrInvalidIdentity)
}

func TestVerifyRejectsSingleCharacterTamper(t *testing.T) {
	c := newCodec(t)
	tok, err := c.Issue(model.Identity{SubjectID: "80351110224678912", Provider: model.ProviderDiscord})
	require.NoError(t, err)

	for i := 0; i < len(tok); i++ {
		if tok[i] == '.' {
			continue
		}
		replacement := byte('A')
		if tok[i] == 'A' {
			replacement = 'B'
		}
		tampered := tok[:i] + string(replacement) + tok[i+1:]

		_, ok := c.Verify(tampered)
		assert.False(t, ok, "tamper at index %d accepted", i)
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	c := newCodec(t)
	valid, err := c.Issue(model.Identity{SubjectID: "1", Provider: model.ProviderDiscord})
	require.NoError(t, err)
	parts := strings.Split(valid, ".")

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"one-segment", "abc"},
		{"two-segments", parts[0] + "." + parts[1]},
		{"four-segments", valid + ".x"},
		{"bad-base64", parts[0] + ".!!!." + parts[2]},
		{"truncated-signature", parts[0] + "." + parts[1] + "." + parts[2][:20]},
		{"garbage", "not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := c.Verify(tt.token)
			assert.False(t, ok)
		})
	}
}

func signRaw(t *testing.T, method jwt.SigningMethod, key interface{}, mc jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, mc).SignedString(key)
	require.NoError(t, err)
	return tok
}

func TestVerifyRejectsStructurallyInvalidClaims(t *testing.T) {
	c := newCodec(t)
	secret := []byte(fixtureSecret)

	tests := []struct {
		name  string
		token string
	}{
		{"missing-subject", signRaw(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"provider": "discord"})},
		{"unknown-provider", signRaw(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"provider": "myspace", "sub": "1"})},
		{"missing-provider", signRaw(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"sub": "1"})},
		{"wrong-algorithm", signRaw(t, jwt.SigningMethodHS512, secret, jwt.MapClaims{"provider": "discord", "sub": "1"})},
		{"none-algorithm", signRaw(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"provider": "discord", "sub": "1"})},
		{"other-secret", signRaw(t, jwt.SigningMethodHS256, []byte("rotated"), jwt.MapClaims{"provider": "discord", "sub": "1"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := c.Verify(tt.token)
			assert.False(t, ok)
		})
	}
}

func TestVerifyAfterSecretRotation(t *testing.T) {
	old := newCodec(t)
	tok, err := old.Issue(model.Identity{SubjectID: "7", Provider: model.ProviderGoogle})
	require.NoError(t, err)

	rotated, err := NewCodec("rotated-secret")
	require.NoError(t, err)
	_, ok := rotated.Verify(tok)
	assert.False(t, ok)
}

func TestVerifyWithoutSecret(t *testing.T) {
	var nilCodec *Codec
	_, ok := nilCodec.Verify("a.b.c")
	assert.False(t, ok)

	_, ok = (&Codec{}).Verify("a.b.c")
	assert.False(t, ok)

	_, err := nilCodec.Issue(model.Identity{SubjectID: "1", Provider: model.ProviderDiscord})
	require.ErrorIs(t, err, ErrMissingSecret)
}
