package booking

import (
	"errors"
	"net/http"
	"slotbook/infras/otel"
	"slotbook/internal/domains/booking/model"
	"slotbook/internal/domains/booking/model/dto"
	"slotbook/internal/domains/booking/service"
	"slotbook/shared/constant"
	"slotbook/shared/validator"
	"slotbook/transport/http/middleware"
	"slotbook/transport/http/response"

	"github.com/go-chi/chi/v5"

	"github.com/rs/zerolog/log"
)

type Handler struct {
	service  service.Booking
	throttle middleware.Throttle
	otel     otel.Otel
}

func New(service service.Booking, throttle middleware.Throttle, otel otel.Otel) Handler {
	return Handler{
		service:  service,
		throttle: throttle,
		otel:     otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/bookings", func(routerGroup chi.Router) {
		routerGroup.With(handler.throttle.Limit).Post("/", handler.Reserve)
		routerGroup.Get("/{id}", handler.GetBookingByID)
	})
}

// Reserve books places on a slot.
// @Summary Reserve places on a slot
// @Description Accepts or rejects a booking. Rejections carry an errorCode.
// @Tags Booking
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Retry key, used when the body has none"
// @Param request body dto.ReserveRequest true "Reserve Request"
// @Success 201 {object} dto.ReserveResponse "Booking accepted"
// @Success 200 {object} dto.ReserveResponse "Earlier booking replayed"
// @Failure 404 {object} dto.ReserveFailure "SLOT_NOT_FOUND"
// @Failure 409 {object} dto.ReserveFailure "NOT_ENOUGH_PLACES or RACE_CONDITION"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings [post]
func (handler *Handler) Reserve(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".Reserve")
	defer scope.End()

	req := dto.ReserveRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		log.Debug().Err(err).Msg("invalid reserve request")
		response.WithError(writer, err)

		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = request.Header.Get(constant.RequestHeaderIdempotencyKey)
	}

	res, err := handler.service.Reserve(ctx, req)
	if err != nil {
		var rejection *model.Rejection
		if errors.As(err, &rejection) {
			body := dto.ReserveFailure{}
			body.FromRejection(rejection)

			response.WithRaw(writer, rejectionStatus(rejection.Reason), body)

			return
		}

		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to reserve slot")

		response.WithError(writer, err)

		return
	}

	if res.Replayed {
		response.WithRaw(writer, http.StatusOK, res)

		return
	}

	scope.AddEvent("booking accepted " + res.Booking.ID)

	response.WithRaw(writer, http.StatusCreated, res)
}

func rejectionStatus(reason model.Reason) int {
	if reason == model.ReasonSlotNotFound {
		return http.StatusNotFound
	}

	return http.StatusConflict
}

// GetBookingByID retrieves a booking by its ID.
// @Summary Get booking by ID
// @Tags Booking
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Data[dto.BookingResponse] "Booking details"
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/{id} [get]
func (handler *Handler) GetBookingByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookingByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	res, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("booking", id).Msg("failed to get booking")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}
