package client

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/threadline/backend/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newDiscordServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		assert.Equal(t, "https://app.example/callback", r.Form.Get("redirect_uri"))
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "access", "token_type": "Bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/api/users/@me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, discordUser{ID: "80351110224678912", Username: "nelly", Avatar: "8342729096ea3675442027381ff50dfe"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDiscordProviderExchange(t *testing.T) {
	srv := newDiscordServer(t)
	p := newDiscordProvider("cid", "secret", oauth2.Endpoint{TokenURL: srv.URL + "/token"}, srv.URL+"/api")

	assert.Equal(t, model.ProviderDiscord, p.Name())

	ext, err := p.Exchange(context.Background(), "good-code", "https://app.example/callback")
	require.NoError(t, err)
	assert.Equal(t, model.Identity{SubjectID: "80351110224678912", Provider: model.ProviderDiscord}, ext.Identity)
	assert.Equal(t, "nelly", ext.Username)
	assert.Equal(t, "https://cdn.discordapp.com/avatars/80351110224678912/8342729096ea3675442027381ff50dfe.png", ext.AvatarURL)

	_, err = p.Exchange(context.Background(), "bad-code", "https://app.example/callback")
	assert.True(t, errors.Is(err, ErrExchangeFailed))
}

func TestGoogleProviderExchange(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	var issuer string
	idToken := func(claims jwt.MapClaims) string {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
		require.NoError(t, err)
		return signed
	}

	var nextIDToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "access",
			"token_type":   "Bearer",
			"id_token":     nextIDToken,
		})
	}))
	defer srv.Close()
	issuer = srv.URL

	verifier := oidc.NewVerifier(issuer, &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}, &oidc.Config{ClientID: "cid"})
	p := newGoogleProvider("cid", "secret", oauth2.Endpoint{TokenURL: srv.URL + "/token"}, verifier)
	assert.Equal(t, model.ProviderGoogle, p.Name())

	valid := jwt.MapClaims{
		"iss":     issuer,
		"aud":     "cid",
		"sub":     "10769150350006150715113082367",
		"email":   "jsmith@example.com",
		"name":    "Jane Smith",
		"picture": "https://lh3.example/photo.jpg",
		"exp":     time.Now().Add(time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}

	nextIDToken = idToken(valid)
	ext, err := p.Exchange(context.Background(), "code", "https://app.example/callback")
	require.NoError(t, err)
	assert.Equal(t, model.Identity{SubjectID: "10769150350006150715113082367", Provider: model.ProviderGoogle}, ext.Identity)
	assert.Equal(t, "Jane Smith", ext.Username)
	assert.Equal(t, "https://lh3.example/photo.jpg", ext.AvatarURL)

	wrongAudience := jwt.MapClaims{}
	for k, v := range valid {
		wrongAudience[k] = v
	}
	wrongAudience["aud"] = "someone-else"
	nextIDToken = idToken(wrongAudience)
	_, err = p.Exchange(context.Background(), "code", "")
	assert.True(t, errors.Is(err, ErrExchangeFailed))

	nextIDToken = ""
	_, err = p.Exchange(context.Background(), "code", "")
	assert.True(t, errors.Is(err, ErrExchangeFailed))
}
