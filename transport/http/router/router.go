package router

import (
	"slotbook/internal/handlers/booking"
	"slotbook/internal/handlers/settings"
	"slotbook/internal/handlers/slot"
	"slotbook/internal/handlers/sync"
	"slotbook/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

type DomainHandlers struct {
	Booking  booking.Handler
	Slot     slot.Handler
	Sync     sync.Handler
	Settings settings.Handler
}

type Router struct {
	DomainHandlers DomainHandlers
	Auth           middleware.Auth
}

func (r *Router) SetupRoutes(router chi.Router) {
	router.Route("/v1", func(routerGroup chi.Router) {
		r.DomainHandlers.Booking.Router(routerGroup)
		r.DomainHandlers.Slot.Router(routerGroup)
		r.DomainHandlers.Sync.Router(routerGroup)
		r.DomainHandlers.Settings.Router(routerGroup)

		routerGroup.Route("/admin", func(adminGroup chi.Router) {
			adminGroup.Use(r.Auth.APIKey)

			r.DomainHandlers.Slot.AdminRouter(adminGroup)
			r.DomainHandlers.Settings.AdminRouter(adminGroup)
		})
	})
}

func New(domainHandlers DomainHandlers, auth middleware.Auth) Router {
	return Router{
		DomainHandlers: domainHandlers,
		Auth:           auth,
	}
}
