package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mentor-agenda/internal/infrastructure/oauth2"
)

type OAuthUsecase interface {
	// BuildAuthURL returns the Google consent URL; state is echoed back on the callback
	BuildAuthURL(ctx context.Context, companyID, state string) (string, error)

	// HandleCallback exchanges the consent code and stores the tokens
	HandleCallback(ctx context.Context, companyID, code string) error

	// EnsureAuthorized fails when the company has no usable token
	EnsureAuthorized(ctx context.Context, companyID string) error
}

type oauthUsecase struct {
	tokens oauth2.TokenManager
	logger *zap.Logger
}

func NewOAuthUsecase(tokens oauth2.TokenManager, logger *zap.Logger) OAuthUsecase {
	return &oauthUsecase{
		tokens: tokens,
		logger: logger,
	}
}

func (u *oauthUsecase) BuildAuthURL(ctx context.Context, companyID, state string) (string, error) {
	authURL, err := u.tokens.AuthCodeURL(ctx, companyID, state)
	if err != nil {
		u.logger.Error("Failed to build auth URL",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
		return "", err
	}

	u.logger.Info("Redirecting company to Google consent", zap.String("company_id", companyID))
	return authURL, nil
}

func (u *oauthUsecase) HandleCallback(ctx context.Context, companyID, code string) error {
	if code == "" {
		return fmt.Errorf("code is required")
	}

	if err := u.tokens.ExchangeCode(ctx, companyID, code); err != nil {
		u.logger.Error("Failed to exchange authorization code",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
		return err
	}

	u.logger.Info("Google authorization completed", zap.String("company_id", companyID))
	return nil
}

func (u *oauthUsecase) EnsureAuthorized(ctx context.Context, companyID string) error {
	_, err := u.tokens.GetAuthorizedClient(ctx, companyID)
	return err
}
