package http

import (
	"go.uber.org/fx"

	"mentor-agenda/internal/delivery/http/handler"
	"mentor-agenda/internal/delivery/http/middleware"
	"mentor-agenda/internal/delivery/http/router"
)

var Module = fx.Module("http",
	fx.Provide(
		middleware.NewCompany,
		handler.NewHealthHandler,
		handler.NewOAuthHandler,
		handler.NewEventsHandler,
		handler.NewWhatsAppHandler,
		router.NewRouter,
	),
)
