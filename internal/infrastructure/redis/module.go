package redis

import (
	"go.uber.org/fx"

	"mentor-agenda/internal/domain/repository"
)

var Module = fx.Module("redis",
	fx.Provide(NewRedisClient),
	fx.Provide(
		fx.Annotate(
			NewPendingScheduleQueue,
			fx.As(new(repository.PendingScheduleQueue)),
		),
	),
)
