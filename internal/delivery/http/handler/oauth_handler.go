package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"mentor-agenda/internal/delivery/http/middleware"
	"mentor-agenda/internal/usecase"
)

type OAuthHandler struct {
	usecase usecase.OAuthUsecase
	logger  *zap.Logger
}

func NewOAuthHandler(usecase usecase.OAuthUsecase, logger *zap.Logger) *OAuthHandler {
	return &OAuthHandler{
		usecase: usecase,
		logger:  logger,
	}
}

// Authorize godoc
// @Summary Start Google consent for a company
// @Description Redirects to the Google consent page with offline access to the calendar
// @Tags oauth
// @Param companyId path string true "Encrypted company id"
// @Success 302
// @Failure 500 {string} string
// @Router /auth/{companyId} [get]
func (h *OAuthHandler) Authorize(c *fiber.Ctx) error {
	companyID := middleware.CompanyID(c)

	authURL, err := h.usecase.BuildAuthURL(c.UserContext(), companyID, c.Params("companyId"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to generate authentication URL.")
	}

	return c.Redirect(authURL, fiber.StatusFound)
}

// OAuthCallback godoc
// @Summary Google OAuth callback
// @Description Exchanges the authorization code and stores the tokens for the company
// @Tags oauth
// @Param companyId path string true "Encrypted company id"
// @Param code query string true "Authorization code"
// @Success 302
// @Failure 400 {string} string
// @Failure 500 {string} string
// @Router /auth/{companyId}/oauth2callback [get]
func (h *OAuthHandler) OAuthCallback(c *fiber.Ctx) error {
	companyID := middleware.CompanyID(c)

	if errMsg := c.Query("error"); errMsg != "" {
		h.logger.Warn("Google consent was not granted",
			zap.String("company_id", companyID),
			zap.String("error", errMsg),
		)
		return c.Status(fiber.StatusBadRequest).SendString("Authentication failed: " + errMsg)
	}

	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Authorization code is required.")
	}

	if err := h.usecase.HandleCallback(c.UserContext(), companyID, code); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Authentication failed")
	}

	return c.Redirect("/", fiber.StatusFound)
}
