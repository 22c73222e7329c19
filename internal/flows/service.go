package flows

import (
	"context"

	"github.com/google/uuid"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Login.Credentials != nil &&
		s.deps.Login.Ledger != nil &&
		s.deps.Login.Tokens != nil &&
		s.deps.Refresh.ParseRefresh != nil &&
		s.deps.Validate.ParseAccess != nil
}

func (s Service) Login(ctx context.Context, in LoginInput) LoginResult {
	return RunLogin(ctx, in, s.deps.Login)
}

func (s Service) Refresh(ctx context.Context, refreshToken, ip string) RefreshResult {
	return RunRefresh(ctx, refreshToken, ip, s.deps.Refresh)
}

func (s Service) Validate(ctx context.Context, tokenStr string, routeMode int) ValidateResult {
	return RunValidate(ctx, tokenStr, routeMode, s.deps.Validate)
}

func (s Service) Logout(ctx context.Context, refreshToken string) LogoutResult {
	return RunLogout(ctx, refreshToken, s.deps.Logout)
}

func (s Service) LogoutAll(ctx context.Context, principalID uuid.UUID) (int64, error) {
	return RunLogoutAll(ctx, principalID, s.deps.Logout)
}

func (s Service) UnlockAccount(ctx context.Context, principalID uuid.UUID) error {
	return RunUnlockAccount(ctx, principalID, s.deps.Account)
}

func (s Service) SetAccountActive(ctx context.Context, principalID uuid.UUID, active bool) error {
	return RunSetAccountActive(ctx, principalID, active, s.deps.Account)
}
