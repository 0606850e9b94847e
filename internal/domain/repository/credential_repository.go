package repository

import (
	"context"

	"mentor-agenda/internal/domain/entity"
)

type CredentialRepository interface {
	// FindByCompanyID returns nil, nil when the company has no row
	FindByCompanyID(ctx context.Context, companyID string) (*entity.CompanyCredential, error)

	// UpdateTokens merges a token set into the stored credential.
	// An empty RefreshToken leaves the stored refresh token untouched.
	UpdateTokens(ctx context.Context, companyID string, tokens entity.TokenSet) error
}

type WhatsAppRepository interface {
	// FindByCompanyID fails when the company has no WhatsApp keys
	FindByCompanyID(ctx context.Context, companyID string) (*entity.WhatsAppCredentials, error)
}
