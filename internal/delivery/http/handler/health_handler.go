package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"mentor-agenda/internal/config"
	"mentor-agenda/internal/domain/entity"
	"mentor-agenda/internal/infrastructure/database"
	"mentor-agenda/internal/infrastructure/redis"
)

type HealthHandler struct {
	name   string
	checks map[string]func(ctx context.Context) error
}

func NewHealthHandler(cfg *config.Config, db *database.Database, rc *redis.RedisClient) *HealthHandler {
	return NewHealthHandlerWithChecks(cfg.App.Name, map[string]func(ctx context.Context) error{
		"database":        db.DB.PingContext,
		"agenda_database": db.AgendaDB.PingContext,
		"redis": func(ctx context.Context) error {
			return rc.Client.Ping(ctx).Err()
		},
	})
}

func NewHealthHandlerWithChecks(name string, checks map[string]func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{name: name, checks: checks}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Health godoc
// @Summary Health check
// @Description Reports the database and redis connections
// @Tags health
// @Produce json
// @Success 200 {object} entity.APIResponse
// @Failure 503 {object} entity.APIResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "healthy",
		Service:   h.name,
		Timestamp: time.Now(),
		Checks:    make(map[string]string, len(h.checks)),
	}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	if resp.Status != "healthy" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(
			entity.NewSuccessResponse(resp, "Service is degraded"),
		)
	}
	return c.JSON(entity.NewSuccessResponse(resp, "Service is healthy"))
}
