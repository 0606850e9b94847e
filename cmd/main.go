package main

import (
	_ "time/tzdata"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"mentor-agenda/internal/config"
	deliveryhttp "mentor-agenda/internal/delivery/http"
	"mentor-agenda/internal/infrastructure/calendar"
	"mentor-agenda/internal/infrastructure/database"
	"mentor-agenda/internal/infrastructure/logger"
	"mentor-agenda/internal/infrastructure/oauth2"
	"mentor-agenda/internal/infrastructure/redis"
	"mentor-agenda/internal/infrastructure/repository"
	"mentor-agenda/internal/infrastructure/security"
	"mentor-agenda/internal/server"
	"mentor-agenda/internal/usecase"
)

func main() {
	fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),

		// Configuration
		config.Module,

		// Infrastructure
		logger.Module,
		database.Module,
		redis.Module,
		repository.Module,
		security.Module,
		oauth2.Module,
		calendar.Module,

		// Business Logic
		usecase.Module,

		// Delivery
		deliveryhttp.Module,

		// Server
		server.Module,
	).Run()
}
