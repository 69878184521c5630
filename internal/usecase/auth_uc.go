package usecase

import (
	"context"
	"fmt"
	"strings"

	"analysis-gateway/internal/domain"
	"analysis-gateway/internal/domain/ports/adapter"
	"analysis-gateway/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ AuthUseCase = (*authUC)(nil)

// TokenIssuer signs bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID int64, username string) (string, error)
}

type AuthUseCase interface {
	// Login checks credentials with the identity provider and returns a bearer token.
	Login(ctx context.Context, username, password string) (string, error)
}

type authUC struct {
	identity adapter.IdentityProvider
	tokens   TokenIssuer
	dev      bool
	log      *zerolog.Logger
}

func NewAuthUseCase(identity adapter.IdentityProvider, tokens TokenIssuer, dev bool, logger *zerolog.Logger) *authUC {
	return &authUC{identity: identity, tokens: tokens, dev: dev, log: logger}
}

func (a *authUC) Login(ctx context.Context, username, password string) (string, error) {
	defer logging.TraceDuration(a.log, "AuthUC.Login")()

	if strings.TrimSpace(username) == "" || password == "" {
		return "", fmt.Errorf("%w: username and password required", domain.ErrInvalidRequest)
	}

	userID, err := a.identity.Validate(ctx, username, password)
	if err != nil {
		logging.With(ctx, a.log).Info().Err(err).Str("username", logging.Redact(username, a.dev)).Msg("login rejected")
		return "", err
	}

	token, err := a.tokens.Issue(userID, username)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	logging.With(ctx, a.log).Info().Int64("user_id", userID).Msg("login succeeded")
	return token, nil
}
