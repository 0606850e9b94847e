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

type whatsAppRepository struct {
	db *database.Database
}

func NewWhatsAppRepository(db *database.Database) repository.WhatsAppRepository {
	return &whatsAppRepository{
		db: db,
	}
}

func (r *whatsAppRepository) FindByCompanyID(ctx context.Context, companyID string) (*entity.WhatsAppCredentials, error) {
	query := `
		SELECT company_id, private_key, passphrase, app_secret
		FROM whatsapp
		WHERE company_id = $1
	`

	var creds entity.WhatsAppCredentials
	var passphrase, appSecret sql.NullString

	err := r.db.DB.QueryRowContext(ctx, query, companyID).Scan(
		&creds.CompanyID,
		&creds.PrivateKey,
		&passphrase,
		&appSecret,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no WhatsApp credentials found for company ID: %s", companyID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch WhatsApp credentials: %w", err)
	}

	creds.Passphrase = passphrase.String
	creds.AppSecret = appSecret.String

	return &creds, nil
}
