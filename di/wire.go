//go:build wireinject
// +build wireinject

package di

import (
	"slotbook/config"
	"slotbook/infras/kafka"
	"slotbook/infras/otel"
	"slotbook/infras/postgres"
	"slotbook/infras/redis"
	"slotbook/internal/store"
	"slotbook/shared/cache"
	"slotbook/transport/http"
	"slotbook/transport/http/middleware"
	"slotbook/transport/http/router"

	"github.com/google/wire"

	bookingRepository "slotbook/internal/domains/booking/repository"
	bookingService "slotbook/internal/domains/booking/service"
	versionRepository "slotbook/internal/domains/dataversion/repository"
	versionService "slotbook/internal/domains/dataversion/service"
	settingsRepository "slotbook/internal/domains/settings/repository"
	settingsService "slotbook/internal/domains/settings/service"
	slotRepository "slotbook/internal/domains/slot/repository"
	slotService "slotbook/internal/domains/slot/service"
	syncService "slotbook/internal/domains/sync/service"

	bookingHandler "slotbook/internal/handlers/booking"
	settingsHandler "slotbook/internal/handlers/settings"
	slotHandler "slotbook/internal/handlers/slot"
	syncHandler "slotbook/internal/handlers/sync"
)

var configurations = wire.NewSet(
	config.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	otel.New,
	redis.New,
	kafka.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthMiddleware,
	middleware.NewThrottle,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
)

var storage = wire.NewSet(
	slotRepository.New,
	bookingRepository.New,
	settingsRepository.New,
	versionRepository.New,
	store.New,
)

var domains = wire.NewSet(
	versionService.New,
	bookingService.New,
	slotService.New,
	settingsService.New,
	syncService.New,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	bookingHandler.New,
	slotHandler.New,
	syncHandler.New,
	settingsHandler.New,
	router.New,
)

func InitializeApp() *App {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		storage,
		domains,
		routing,
		http.New,
		wire.Struct(new(App), "*"),
	)

	return &App{}
}
