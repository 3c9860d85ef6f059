package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/threadline/backend/internal/access"
	"github.com/threadline/backend/internal/client"
	"github.com/threadline/backend/internal/model"
	"github.com/threadline/backend/internal/token"
)

type AuthService struct {
	users     UserStore
	roles     *RoleResolver
	codec     *token.Codec
	providers map[model.Provider]client.IdentityProvider
	threshold int
	log       logrus.FieldLogger
}

func NewAuthService(users UserStore, roles *RoleResolver, codec *token.Codec, providers []client.IdentityProvider, warningThreshold int, log logrus.FieldLogger) (*AuthService, error) {
	if codec == nil {
		return nil, fmt.Errorf("%w: JWT_SECRET is required", ErrMisconfigured)
	}
	byName := make(map[model.Provider]client.IdentityProvider, len(providers))
	for _, p := range providers {
		if p != nil {
			byName[p.Name()] = p
		}
	}
	return &AuthService{
		users:     users,
		roles:     roles,
		codec:     codec,
		providers: byName,
		threshold: warningThreshold,
		log:       log,
	}, nil
}

// Providers lists the login providers that are configured, in a stable order.
func (s *AuthService) Providers() []model.Provider {
	out := make([]model.Provider, 0, len(s.providers))
	for _, p := range model.KnownProviders {
		if _, ok := s.providers[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Authenticate verifies a bearer token and returns the identity it carries.
func (s *AuthService) Authenticate(raw string) (model.Identity, error) {
	id, ok := s.codec.Verify(strings.TrimSpace(raw))
	if !ok {
		return model.Identity{}, ErrUnauthorized
	}
	return id, nil
}

func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	providerName, err := model.ParseProvider(req.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, invalid("code is required")
	}
	provider, ok := s.providers[providerName]
	if !ok {
		return nil, invalid("provider %s is not configured", providerName)
	}

	ext, err := provider.Exchange(ctx, req.Code, req.RedirectURI)
	if err != nil {
		if errors.Is(err, client.ErrExchangeFailed) {
			s.log.WithError(err).WithField("provider", providerName).Info("login rejected by provider")
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("provider exchange failed: %w", err)
	}

	user, err := s.users.UpsertUserProfile(ctx, *ext)
	if err != nil {
		return nil, fmt.Errorf("failed to store user: %w", err)
	}
	tok, err := s.codec.Issue(user.Identity())
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.log.WithField("identity", user.Identity().Key()).Info("user logged in")
	return &model.LoginResponse{
		Success: true,
		Token:   tok,
		User:    s.Profile(user),
	}, nil
}

// Me returns the live record for id (a default record if it was never stored).
func (s *AuthService) Me(ctx context.Context, id model.Identity) (*model.UserProfile, error) {
	user, err := s.roles.ResolveActor(ctx, id)
	if err != nil {
		return nil, err
	}
	profile := s.Profile(user)
	return &profile, nil
}

func (s *AuthService) Profile(u *model.User) model.UserProfile {
	return model.NewUserProfile(u, access.WarningThresholdReached(u.WarningCount, s.threshold))
}

// EnsureSuperAdmins bootstraps the configured super admins at startup.
func (s *AuthService) EnsureSuperAdmins(ctx context.Context, ids []model.Identity) error {
	for _, id := range ids {
		if _, err := s.users.EnsureRole(ctx, id, model.RoleSuperAdmin); err != nil {
			return fmt.Errorf("failed to ensure super admin %s: %w", id, err)
		}
		s.log.WithField("identity", id.Key()).Info("super admin ensured")
	}
	return nil
}
