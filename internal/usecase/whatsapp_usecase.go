package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"mentor-agenda/internal/domain/entity"
	"mentor-agenda/internal/domain/repository"
	"mentor-agenda/internal/infrastructure/security"
)

type WhatsAppUsecase interface {
	// VerifySignature checks the webhook signature with the company's app secret
	VerifySignature(ctx context.Context, companyID string, body []byte, signature string) error

	// HandleFlow decrypts an endpoint request, runs the flow and returns the
	// encrypted, base64 encoded response
	HandleFlow(ctx context.Context, companyID string, body []byte) (string, error)
}

type whatsAppUsecase struct {
	creds  repository.WhatsAppRepository
	flow   FlowUsecase
	logger *zap.Logger
}

func NewWhatsAppUsecase(creds repository.WhatsAppRepository, flow FlowUsecase, logger *zap.Logger) WhatsAppUsecase {
	return &whatsAppUsecase{
		creds:  creds,
		flow:   flow,
		logger: logger,
	}
}

func (u *whatsAppUsecase) VerifySignature(ctx context.Context, companyID string, body []byte, signature string) error {
	creds, err := u.creds.FindByCompanyID(ctx, companyID)
	if err != nil {
		return fmt.Errorf("%w: %v", entity.ErrInvalidSignature, err)
	}

	if creds.AppSecret == "" {
		u.logger.Warn("App secret is not set up, request signature is not checked",
			zap.String("company_id", companyID),
		)
		return nil
	}

	if err := security.VerifyBodySignature(creds.AppSecret, body, signature); err != nil {
		u.logger.Error("Request signature did not match", zap.String("company_id", companyID))
		return err
	}
	return nil
}

func (u *whatsAppUsecase) HandleFlow(ctx context.Context, companyID string, body []byte) (string, error) {
	var encrypted entity.EncryptedFlowRequest
	if err := json.Unmarshal(body, &encrypted); err != nil {
		return "", fmt.Errorf("%w: body: %v", entity.ErrDecryption, err)
	}

	creds, err := u.creds.FindByCompanyID(ctx, companyID)
	if err != nil {
		return "", err
	}

	envelope, err := security.DecryptFlowRequest(encrypted, creds.PrivateKey, creds.Passphrase)
	if err != nil {
		return "", err
	}

	var req entity.FlowRequest
	if err := json.Unmarshal(envelope.Body, &req); err != nil {
		return "", fmt.Errorf("%w: %v", entity.ErrInvalidFlowInput, err)
	}

	u.logger.Debug("Decrypted flow request",
		zap.String("company_id", companyID),
		zap.String("action", req.Action),
		zap.String("screen", req.Screen),
	)

	resp, err := u.flow.NextScreen(ctx, companyID, &req)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal flow response: %w", err)
	}
	return envelope.EncryptResponse(payload)
}
