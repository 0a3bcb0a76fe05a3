package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/taxiledger/internal/client/auth"
	"github.com/dmitrijs2005/taxiledger/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/taxiledger/internal/common"
	"github.com/dmitrijs2005/taxiledger/internal/logging"
	"github.com/dmitrijs2005/taxiledger/internal/timex"
)

// AuthService keeps the access token of the signed-in driver in the
// local metadata table, so the session survives restarts and works
// offline until the token expires.
type AuthService struct {
	meta   metadata.Repository
	secret []byte
	clock  timex.Clock
	log    logging.Logger
}

// NewAuthService binds the session to meta. An empty secret accepts
// tokens without checking their signature.
func NewAuthService(meta metadata.Repository, secret []byte, clock timex.Clock, log logging.Logger) *AuthService {
	if clock == nil {
		clock = timex.RealClock{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &AuthService{meta: meta, secret: secret, clock: clock, log: log.With("component", "auth")}
}

// Login validates token and stores it as the current session.
func (a *AuthService) Login(ctx context.Context, token string) (*auth.Claims, error) {
	token = strings.TrimSpace(token)
	claims, err := auth.ParseToken(token, a.secret, a.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := a.meta.Set(ctx, common.AccessTokenKey, []byte(token)); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	a.log.Info(ctx, "signed in", "user", claims.UserID())
	return claims, nil
}

// Logout forgets the stored token. Local records stay.
func (a *AuthService) Logout(ctx context.Context) error {
	if err := a.meta.Delete(ctx, common.AccessTokenKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Current returns the claims of the stored token, common.ErrUnauthorized
// when there is none and common.ErrTokenExpired once it has lapsed.
func (a *AuthService) Current(ctx context.Context) (*auth.Claims, error) {
	raw, err := a.meta.Get(ctx, common.AccessTokenKey)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if raw == nil {
		return nil, common.ErrUnauthorized
	}
	return auth.ParseToken(string(raw), a.secret, a.clock.Now())
}

// UserID implements UserSource. Any session problem reads as
// common.ErrUnauthorized.
func (a *AuthService) UserID(ctx context.Context) (string, error) {
	claims, err := a.Current(ctx)
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		return "", err
	case errors.Is(err, common.ErrTokenExpired), errors.Is(err, common.ErrInvalidToken):
		return "", fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
	case err != nil:
		return "", err
	}
	return claims.UserID(), nil
}
