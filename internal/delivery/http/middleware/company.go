package middleware

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"mentor-agenda/internal/infrastructure/security"
	"mentor-agenda/internal/usecase"
)

const companyIDKey = "company_id"

// CompanyID returns the identifier resolved by ResolveCompany
func CompanyID(c *fiber.Ctx) string {
	id, _ := c.Locals(companyIDKey).(string)
	return id
}

type Company struct {
	cipher *security.CompanyCipher
	oauth  usecase.OAuthUsecase
	logger *zap.Logger
}

func NewCompany(cipher *security.CompanyCipher, oauth usecase.OAuthUsecase, logger *zap.Logger) *Company {
	return &Company{
		cipher: cipher,
		oauth:  oauth,
		logger: logger,
	}
}

// ResolveCompany decrypts the :companyId route parameter
func (m *Company) ResolveCompany(c *fiber.Ctx) error {
	token := c.Params("companyId")
	if token == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Company ID is required.")
	}

	companyID, err := m.cipher.Decrypt(token)
	if err != nil {
		m.logger.Warn("Invalid company identifier",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusBadRequest).SendString("Invalid company ID.")
	}

	c.Locals(companyIDKey, companyID)
	return c.Next()
}

// EnsureToken rejects the request unless the company holds a usable Google
// token. It refreshes the token when it is about to expire.
func (m *Company) EnsureToken(c *fiber.Ctx) error {
	companyID := CompanyID(c)
	if err := m.oauth.EnsureAuthorized(c.UserContext(), companyID); err != nil {
		m.logger.Info("Error with token, please authenticate again via /auth",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusUnauthorized).SendString("Please authenticate via /auth.")
	}
	return c.Next()
}
