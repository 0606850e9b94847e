package repository

import "go.uber.org/fx"

var Module = fx.Module("repository",
	fx.Provide(NewCredentialRepository),
	fx.Provide(NewWhatsAppRepository),
	fx.Provide(NewMentorRepository),
	fx.Provide(NewAppointmentRepository),
)
