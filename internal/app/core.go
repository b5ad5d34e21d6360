package app

import (
	"github.com/Freeeeeet/studio_booking/internal/identity"
	"github.com/Freeeeeet/studio_booking/internal/service"
)

// Core - собранное ядро студии для внешнего транспорта
type Core struct {
	Schedules *service.ScheduleService
	Bookings  *service.BookingService
	Identity  *identity.Resolver
}
