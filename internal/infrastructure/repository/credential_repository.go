package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mentor-agenda/internal/domain/entity"
	"mentor-agenda/internal/domain/repository"
	"mentor-agenda/internal/infrastructure/database"
)

type credentialRepository struct {
	db *database.Database
}

func NewCredentialRepository(db *database.Database) repository.CredentialRepository {
	return &credentialRepository{
		db: db,
	}
}

func (r *credentialRepository) FindByCompanyID(ctx context.Context, companyID string) (*entity.CompanyCredential, error) {
	query := `
		SELECT company_id, google_client_id, google_client_secret, google_redirect_uri,
		       google_access_token, google_refresh_token, google_expiry_date, google_token_type, google_scope
		FROM google_access_data
		WHERE company_id = $1
	`

	var cred entity.CompanyCredential
	var accessToken, refreshToken, tokenType, scope sql.NullString
	var expiry sql.NullInt64

	err := r.db.DB.QueryRowContext(ctx, query, companyID).Scan(
		&cred.CompanyID,
		&cred.ClientID,
		&cred.ClientSecret,
		&cred.RedirectURI,
		&accessToken,
		&refreshToken,
		&expiry,
		&tokenType,
		&scope,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found, return nil without error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find google credentials by company: %w", err)
	}

	cred.AccessToken = accessToken.String
	cred.RefreshToken = refreshToken.String
	cred.TokenType = tokenType.String
	cred.Scope = scope.String
	cred.ExpiryEpochMillis = expiry.Int64

	return &cred, nil
}

// UpdateTokens never nulls out a stored refresh token, scope or token type
// with an empty value from a refresh response. An expiry of 0 is stored as
// NULL. The casts pin parameter types, untyped NULLIF(0) would infer int4.
func (r *credentialRepository) UpdateTokens(ctx context.Context, companyID string, tokens entity.TokenSet) error {
	query := `
		UPDATE google_access_data
		SET google_access_token = $1,
		    google_refresh_token = COALESCE(NULLIF($2::text, ''), google_refresh_token),
		    google_expiry_date = NULLIF($3::bigint, 0),
		    google_token_type = COALESCE(NULLIF($4::text, ''), google_token_type),
		    google_scope = COALESCE(NULLIF($5::text, ''), google_scope)
		WHERE company_id = $6
	`

	res, err := r.db.DB.ExecContext(ctx, query,
		tokens.AccessToken,
		tokens.RefreshToken,
		tokens.ExpiryEpochMillis,
		tokens.TokenType,
		tokens.Scope,
		companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update google tokens: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return entity.ErrCredentialsNotFound
	}

	return nil
}
