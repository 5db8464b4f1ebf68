package settings

import (
	"net/http"
	"slotbook/infras/otel"
	"slotbook/internal/domains/settings/model/dto"
	"slotbook/internal/domains/settings/service"
	"slotbook/shared/constant"
	"slotbook/shared/validator"
	"slotbook/transport/http/response"

	"github.com/go-chi/chi/v5"

	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Settings
	otel    otel.Otel
}

func New(service service.Settings, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Get("/settings", handler.GetSettings)
}

func (handler *Handler) AdminRouter(router chi.Router) {
	router.Put("/settings", handler.PutSettings)
}

// GetSettings returns the public site settings.
// @Summary Get settings
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Data[dto.SettingsResponse]
// @Failure 500 {object} response.Error
// @Router /v1/settings [get]
func (handler *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetSettings")
	defer scope.End()

	res, err := handler.service.Get(ctx)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get settings")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// PutSettings upserts site settings.
// @Summary Upsert settings
// @Tags Settings
// @Accept json
// @Produce json
// @Param request body dto.PutSettingsRequest true "Settings to upsert"
// @Success 200 {object} response.Data[dto.SettingsResponse]
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/admin/settings [put]
// @Security ApiKeyAuth
func (handler *Handler) PutSettings(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".PutSettings")
	defer scope.End()

	req := dto.PutSettingsRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	res, err := handler.service.Put(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to put settings")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, res)
}
