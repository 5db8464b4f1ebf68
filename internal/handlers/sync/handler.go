package sync

import (
	"net/http"
	"slotbook/infras/otel"
	"slotbook/internal/domains/sync/service"
	"slotbook/shared"
	"slotbook/shared/constant"
	"slotbook/shared/failure"
	"slotbook/transport/http/response"

	"github.com/go-chi/chi/v5"

	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Sync
	otel    otel.Otel
}

func New(service service.Sync, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Get("/sync", handler.Sync)
}

// Sync reports whether the caller's data version is stale.
// @Summary Poll for data changes
// @Description Returns needsSync with a full snapshot when the given version is behind.
// @Tags Sync
// @Produce json
// @Param version query integer false "Last version the client applied"
// @Param full query boolean false "Force a full snapshot"
// @Success 200 {object} dto.SyncResponse
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/sync [get]
func (handler *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".Sync")
	defer scope.End()

	query := r.URL.Query()

	version, err := shared.ConvertStringToInt64(query.Get(constant.RequestParamVersion), 0)
	if err != nil {
		response.WithError(w, failure.InvalidVersionParam)

		return
	}

	full, err := shared.ConvertStringToBool(query.Get(constant.RequestParamFull), false)
	if err != nil {
		response.WithError(w, failure.InvalidFullParam)

		return
	}

	res, err := handler.service.Sync(ctx, version, full)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Int64("version", version).Msg("failed to sync")

		response.WithError(w, err)

		return
	}

	response.WithRaw(w, http.StatusOK, res)
}
