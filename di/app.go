package di

import (
	"context"
	"errors"
	"slotbook/infras/kafka"
	"slotbook/infras/otel"
	"slotbook/infras/postgres"
	"slotbook/transport/http"
	"slotbook/transport/http/middleware"

	goRedis "github.com/redis/go-redis/v9"
)

// App is the wired server plus everything that has to be released after
// it stops.
type App struct {
	HTTP     *http.HTTP
	DB       *postgres.Connection
	Redis    *goRedis.Client
	Kafka    kafka.Client
	Otel     otel.Otel
	Throttle middleware.Throttle
}

// Close releases resources in reverse dependency order.
func (a *App) Close(ctx context.Context) error {
	a.Throttle.Close()

	errs := []error{a.Kafka.Close(), a.DB.Close()}

	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}

	errs = append(errs, a.Otel.Shutdown(ctx))

	return errors.Join(errs...)
}
