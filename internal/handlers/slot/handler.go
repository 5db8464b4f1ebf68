package slot

import (
	"net/http"
	"slotbook/infras/otel"
	"slotbook/internal/domains/slot/model"
	"slotbook/internal/domains/slot/model/dto"
	"slotbook/internal/domains/slot/service"
	"slotbook/shared/constant"
	gDto "slotbook/shared/dto"
	"slotbook/shared/failure"
	"slotbook/shared/timezone"
	"slotbook/shared/validator"
	"slotbook/transport/http/response"

	"github.com/go-chi/chi/v5"

	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Slot
	otel    otel.Otel
}

func New(service service.Slot, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/slots", func(routerGroup chi.Router) {
		routerGroup.Get("/", handler.GetSlots)
		routerGroup.Get("/{id}", handler.GetSlotByID)
	})
}

// AdminRouter mounts the slot mutations. The caller guards the group.
func (handler *Handler) AdminRouter(router chi.Router) {
	router.Route("/slots", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateSlots)
		routerGroup.Patch("/{id}", handler.UpdateSlot)
		routerGroup.Delete("/{id}", handler.DeleteSlot)
	})
}

// GetSlots lists slots with paging and optional filters.
// @Summary Get all slots
// @Tags Slot
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param date query string false "Filter by day (YYYY-MM-DD)"
// @Param sport_id query string false "Filter by sport"
// @Success 200 {object} response.Data[dto.GetSlotsResponse] "List of slots"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/slots [get]
func (handler *Handler) GetSlots(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetSlots")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true, dto.SortableColumns...)

	filter := model.Filter{SportID: r.URL.Query().Get(model.FieldSportID)}

	if date := r.URL.Query().Get(model.FieldDate); date != "" {
		day, err := timezone.ParseDay(date)
		if err != nil {
			response.WithError(w, failure.BadRequestFromString("date must be formatted as YYYY-MM-DD"))

			return
		}

		filter.Date = &day
	}

	res, err := handler.service.GetAll(ctx, queryParams, filter)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get slots")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// GetSlotByID retrieves a slot by its ID.
// @Summary Get slot by ID
// @Tags Slot
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Data[dto.SlotResponse] "Slot details"
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/slots/{id} [get]
func (handler *Handler) GetSlotByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetSlotByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	res, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("slot", id).Msg("failed to get slot")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// CreateSlots creates one or more slots.
// @Summary Create slots
// @Tags Slot
// @Accept json
// @Produce json
// @Param request body dto.CreateSlotsRequest true "Create Slots Request"
// @Success 201 {object} response.Data[[]dto.SlotResponse] "Slots created"
// @Failure 400 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/admin/slots [post]
// @Security ApiKeyAuth
func (handler *Handler) CreateSlots(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateSlots")
	defer scope.End()

	req := dto.CreateSlotsRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	res, err := handler.service.Create(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create slots")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusCreated, res)
}

// UpdateSlot edits a slot.
// @Summary Update a slot
// @Tags Slot
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param request body dto.UpdateSlotRequest true "Update Slot Request"
// @Success 200 {object} response.Data[dto.SlotResponse] "Updated slot"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/admin/slots/{id} [patch]
// @Security ApiKeyAuth
func (handler *Handler) UpdateSlot(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateSlot")
	defer scope.End()

	id := chi.URLParam(request, constant.RequestParamID)
	req := dto.UpdateSlotRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	res, err := handler.service.Update(ctx, req, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("slot", id).Msg("failed to update slot")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, res)
}

// DeleteSlot removes a slot that has no bookings.
// @Summary Delete a slot
// @Tags Slot
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Message "Slot deleted successfully"
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/admin/slots/{id} [delete]
// @Security ApiKeyAuth
func (handler *Handler) DeleteSlot(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DeleteSlot")
	defer scope.End()

	id := chi.URLParam(request, constant.RequestParamID)

	if err := handler.service.Delete(ctx, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("slot", id).Msg("failed to delete slot")

		response.WithError(writer, err)

		return
	}

	response.WithMessage(writer, http.StatusOK, "Slot deleted successfully")
}
