// OAuth2 로그인 provider 클라이언트 (authorization code -> 외부 identity)
//
// 환경변수:
//   - DISCORD_CLIENT_ID / DISCORD_CLIENT_SECRET
//   - GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/threadline/backend/internal/model"
)

// ErrExchangeFailed means the provider rejected the authorization code.
var ErrExchangeFailed = errors.New("code exchange failed")

// IdentityProvider exchanges an OAuth2 authorization code for the caller's identity.
type IdentityProvider interface {
	Name() model.Provider
	Exchange(ctx context.Context, code, redirectURI string) (*model.ExternalIdentity, error)
}

const (
	discordAuthURL  = "https://discord.com/oauth2/authorize"
	discordTokenURL = "https://discord.com/api/oauth2/token"
	discordAPIBase  = "https://discord.com/api"
	discordCDN      = "https://cdn.discordapp.com"

	googleIssuer = "https://accounts.google.com"
)

// DiscordProvider - Discord OAuth2 + /users/@me
type DiscordProvider struct {
	oauth      oauth2.Config
	apiBase    string
	httpClient *http.Client
}

type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
}

func NewDiscordProvider(clientID, clientSecret string) *DiscordProvider {
	return newDiscordProvider(clientID, clientSecret, oauth2.Endpoint{
		AuthURL:  discordAuthURL,
		TokenURL: discordTokenURL,
	}, discordAPIBase)
}

func newDiscordProvider(clientID, clientSecret string, endpoint oauth2.Endpoint, apiBase string) *DiscordProvider {
	return &DiscordProvider{
		oauth: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{"identify"},
		},
		apiBase:    apiBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *DiscordProvider) Name() model.Provider {
	return model.ProviderDiscord
}

func (p *DiscordProvider) Exchange(ctx context.Context, code, redirectURI string) (*model.ExternalIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	cfg := p.oauth
	cfg.RedirectURL = redirectURI

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+"/users/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discord user: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: discord rejected access token", ErrExchangeFailed)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discord api error: status %d", resp.StatusCode)
	}

	var user discordUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse discord user: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("discord user without id")
	}

	name := user.GlobalName
	if name == "" {
		name = user.Username
	}
	ext := &model.ExternalIdentity{
		Identity: model.Identity{SubjectID: user.ID, Provider: model.ProviderDiscord},
		Username: name,
	}
	if user.Avatar != "" {
		ext.AvatarURL = fmt.Sprintf("%s/avatars/%s/%s.png", discordCDN, user.ID, user.Avatar)
	}
	return ext, nil
}

// GoogleProvider - Google OAuth2 code flow, identity taken from the verified id_token
type GoogleProvider struct {
	oauth      oauth2.Config
	verifier   *oidc.IDTokenVerifier
	httpClient *http.Client
}

type googleClaims struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// NewGoogleProvider discovers Google's OIDC configuration.
func NewGoogleProvider(ctx context.Context, clientID, clientSecret string) (*GoogleProvider, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover google oidc: %w", err)
	}
	return newGoogleProvider(clientID, clientSecret, provider.Endpoint(),
		provider.Verifier(&oidc.Config{ClientID: clientID})), nil
}

func newGoogleProvider(clientID, clientSecret string, endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier) *GoogleProvider {
	return &GoogleProvider{
		oauth: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier:   verifier,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *GoogleProvider) Name() model.Provider {
	return model.ProviderGoogle
}

func (p *GoogleProvider) Exchange(ctx context.Context, code, redirectURI string) (*model.ExternalIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	cfg := p.oauth
	cfg.RedirectURL = redirectURI

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%w: missing id_token", ErrExchangeFailed)
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse id_token claims: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: id_token without subject", ErrExchangeFailed)
	}

	name := claims.Name
	if name == "" {
		name = claims.Email
	}
	return &model.ExternalIdentity{
		Identity:  model.Identity{SubjectID: claims.Subject, Provider: model.ProviderGoogle},
		Username:  name,
		AvatarURL: claims.Picture,
	}, nil
}
