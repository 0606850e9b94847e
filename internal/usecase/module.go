package usecase

import "go.uber.org/fx"

var Module = fx.Module("usecase",
	fx.Provide(NewAvailabilityUsecase),
	fx.Provide(NewFlowUsecase),
	fx.Provide(NewOAuthUsecase),
	fx.Provide(NewEventsUsecase),
	fx.Provide(NewWhatsAppUsecase),
	fx.Provide(NewBookingReconciler),

	// the reconciler only runs through its lifecycle hooks
	fx.Invoke(func(*BookingReconciler) {}),
)
