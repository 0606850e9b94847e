package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"mentor-agenda/internal/delivery/http/middleware"
	"mentor-agenda/internal/domain/entity"
	"mentor-agenda/internal/infrastructure/security"
	"mentor-agenda/internal/usecase"
)

// Status codes the WhatsApp client understands
const (
	// StatusInvalidSignature makes the client drop the response
	StatusInvalidSignature = 432
	// StatusKeyRefresh makes the client re-fetch the business public key
	StatusKeyRefresh = 421
)

type WhatsAppHandler struct {
	usecase usecase.WhatsAppUsecase
	logger  *zap.Logger
}

func NewWhatsAppHandler(usecase usecase.WhatsAppUsecase, logger *zap.Logger) *WhatsAppHandler {
	return &WhatsAppHandler{
		usecase: usecase,
		logger:  logger,
	}
}

// FlowEndpoint godoc
// @Summary WhatsApp Flow data endpoint
// @Description Receives an encrypted flow request and answers with the encrypted next screen
// @Tags whatsapp
// @Accept json
// @Produce plain
// @Param companyId path string true "Encrypted company id"
// @Success 200 {string} string "base64 encrypted response"
// @Failure 421 {string} string
// @Failure 432 {string} string
// @Failure 500 {string} string
// @Router /whatsapp/{companyId} [post]
func (h *WhatsAppHandler) FlowEndpoint(c *fiber.Ctx) error {
	ctx := c.UserContext()
	companyID := middleware.CompanyID(c)
	body := c.Body()

	if err := h.usecase.VerifySignature(ctx, companyID, body, c.Get(security.SignatureHeader)); err != nil {
		return c.SendStatus(StatusInvalidSignature)
	}

	encoded, err := h.usecase.HandleFlow(ctx, companyID, body)
	if err != nil {
		h.logger.Error("Error processing WhatsApp Flow",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
		if errors.Is(err, entity.ErrDecryption) {
			return c.SendStatus(StatusKeyRefresh)
		}
		return c.Status(fiber.StatusInternalServerError).SendString("Processing error")
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(encoded)
}
