package middleware

import (
	"crypto/subtle"
	"net/http"
	"slotbook/config"
	"slotbook/infras/otel"
	"slotbook/shared/constant"
	"slotbook/shared/failure"
	"slotbook/transport/http/response"

	"github.com/rs/zerolog/log"
)

// Auth guards the admin routes.
type Auth interface {
	APIKey(http.Handler) http.Handler
}

type authImpl struct {
	otel otel.Otel
	cfg  *config.Config
}

func NewAuthMiddleware(otel otel.Otel, cfg *config.Config) Auth {
	return &authImpl{
		otel: otel,
		cfg:  cfg,
	}
}

// APIKey admits requests whose X-API-Key matches the configured key. With
// no key configured every request is refused.
func (m *authImpl) APIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_, scope := m.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, "api_key.middleware")

		apiKey := request.Header.Get(constant.RequestHeaderAPIKey)
		expected := m.cfg.App.APIKey

		if expected == "" || subtle.ConstantTimeCompare([]byte(apiKey), []byte(expected)) != 1 {
			scope.TraceError(failure.InvalidAPIKey)
			scope.End()
			log.Warn().Str("path", request.URL.Path).Str("source", clientIP(request)).Msg("rejected admin request")

			response.WithError(writer, failure.InvalidAPIKey)

			return
		}

		scope.SetAttribute("http.source", "admin")
		scope.End()

		next.ServeHTTP(writer, request)
	})
}
