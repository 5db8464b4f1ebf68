package service

import (
	"context"
	"errors"
	"fmt"
	"slotbook/config"
	"slotbook/infras/kafka"
	"slotbook/infras/otel"
	"slotbook/internal/domains/booking/model"
	"slotbook/internal/domains/booking/model/dto"
	"slotbook/internal/store"
	"slotbook/shared/constant"
	"slotbook/shared/failure"
	"slotbook/shared/timezone"
	"time"

	"github.com/rs/zerolog/log"
)

const publishTimeout = 5 * time.Second

// errSlotChanged marks a lost compare-and-swap; the attempt is retried.
var errSlotChanged = errors.New("slot changed during reservation")

type Booking interface {
	Reserve(ctx context.Context, req dto.ReserveRequest) (dto.ReserveResponse, error)
	Get(ctx context.Context, id string) (dto.BookingResponse, error)
}

type serviceImpl struct {
	store store.Store
	kafka kafka.Client
	cfg   *config.Config
	otel  otel.Otel
}

func New(store store.Store, kafka kafka.Client, cfg *config.Config, otel otel.Otel) Booking {
	return &serviceImpl{
		store: store,
		kafka: kafka,
		cfg:   cfg,
		otel:  otel,
	}
}

type outcome struct {
	booking         model.Booking
	currentBookings int
	replayed        bool
	version         int64
}

func (o outcome) response() dto.ReserveResponse {
	res := dto.ReserveResponse{
		Success:     true,
		UpdatedSlot: dto.UpdatedSlot{CurrentBookings: o.currentBookings},
		Replayed:    o.replayed,
		Version:     o.version,
	}
	res.Booking.FromModel(o.booking)

	return res
}

// Reserve accepts or rejects one booking request. Rejections come back as
// *model.Rejection; any other error is a storage fault and nothing was
// written.
func (s *serviceImpl) Reserve(ctx context.Context, req dto.ReserveRequest) (res dto.ReserveResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Reserve")
	defer scope.End()

	if !s.cfg.Authoritative() {
		return res, failure.LocalModeError
	}

	scope.SetAttributes(map[string]any{
		"slot.id":           req.SlotID,
		"booking.people":    req.NumberOfPeople,
		"booking.has_key":   req.IdempotencyKey != "",
		"booking.max_tries": s.cfg.Reservation.MaxAttempts,
	})

	attempts := max(1, s.cfg.Reservation.MaxAttempts)

	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := s.attempt(ctx, req)
		if err == nil {
			if !out.replayed {
				s.publish(ctx, out)
			}

			scope.SetAttribute("booking.attempts", attempt)

			return out.response(), nil
		}

		if errors.Is(err, errSlotChanged) || errors.Is(err, store.ErrDuplicateKey) {
			log.Debug().Err(err).Str("slot", req.SlotID).Int("attempt", attempt).Msg("reservation conflict, retrying")

			continue
		}

		var rejection *model.Rejection
		if errors.As(err, &rejection) {
			scope.AddEvent("reservation rejected: " + string(rejection.Reason))
			log.Info().Str("slot", req.SlotID).Str("reason", string(rejection.Reason)).Msg("reservation rejected")

			return res, rejection
		}

		var fail *failure.Failure
		if errors.As(err, &fail) {
			return res, err
		}

		scope.TraceError(err)
		log.Error().Err(err).Str("slot", req.SlotID).Msg("failed to reserve slot")

		return res, fmt.Errorf("failed to reserve slot: %w", err)
	}

	log.Warn().Str("slot", req.SlotID).Int("attempts", attempts).Msg("reservation retries exhausted")
	scope.AddEvent("reservation rejected: " + string(model.ReasonRaceCondition))

	return res, model.RaceCondition()
}

// attempt runs one read-check-write cycle in a single transaction.
func (s *serviceImpl) attempt(ctx context.Context, req dto.ReserveRequest) (out outcome, err error) {
	err = s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		if req.IdempotencyKey != "" {
			existing, err := tx.FindBookingByKey(ctx, req.IdempotencyKey)
			if err == nil {
				return replay(ctx, tx, existing, &out)
			}

			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}

		slot, err := tx.GetSlot(ctx, req.SlotID)
		if errors.Is(err, store.ErrNotFound) {
			return model.SlotNotFound()
		}

		if err != nil {
			return err
		}

		if req.NumberOfPeople < 1 {
			return failure.BadRequestFromString("numberOfPeople must be at least 1")
		}

		if available := slot.Available(); available < req.NumberOfPeople {
			return model.NotEnoughPlaces(available)
		}

		swapped, err := tx.IncrementBookings(ctx, slot.ID, slot.CurrentBookings, req.NumberOfPeople)
		if err != nil {
			return err
		}

		if !swapped {
			return errSlotChanged
		}

		booking := req.ToModel(slot, timezone.Now())
		if err = tx.CreateBooking(ctx, booking); err != nil {
			return err
		}

		version, err := tx.BumpVersion(ctx)
		if err != nil {
			return err
		}

		out = outcome{
			booking:         booking,
			currentBookings: slot.CurrentBookings + req.NumberOfPeople,
			version:         version,
		}

		return nil
	})

	return out, err
}

func replay(ctx context.Context, tx store.Tx, existing model.Booking, out *outcome) error {
	*out = outcome{booking: existing, replayed: true}

	slot, err := tx.GetSlot(ctx, existing.SlotID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}

	if err != nil {
		return err
	}

	out.currentBookings = slot.CurrentBookings

	return nil
}

// publish hands the accepted booking to the confirmation pipeline. It runs
// after commit and never affects the reservation.
func (s *serviceImpl) publish(ctx context.Context, out outcome) {
	if !s.cfg.Kafka.Enable {
		return
	}

	event := model.AcceptedEvent{
		BookingID:      out.booking.ID,
		SlotID:         out.booking.SlotID,
		SportName:      out.booking.SportName,
		CustomerName:   out.booking.CustomerName,
		CustomerEmail:  out.booking.CustomerEmail,
		NumberOfPeople: out.booking.NumberOfPeople,
		TotalPrice:     out.booking.TotalPrice,
		Version:        out.version,
		CreatedAt:      out.booking.CreatedAt,
	}

	go func() {
		c, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()

		err := s.kafka.SendMessages(c, s.cfg.Kafka.Topics.BookingAccepted, kafka.Message{Key: event.SlotID, Value: event})
		if errors.Is(err, kafka.ErrDisabled) {
			return
		}

		if err != nil {
			log.Warn().Err(err).Str("booking", event.BookingID).Msg("failed to publish booking accepted event")
		}
	}()
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Get")
	defer scope.End()

	booking, err := s.store.GetBooking(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return res, failure.NotFound("booking not found")
	}

	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("booking", id).Msg("failed to get booking")

		return res, fmt.Errorf("failed to get booking: %w", err)
	}

	res.FromModel(booking)

	return res, nil
}
