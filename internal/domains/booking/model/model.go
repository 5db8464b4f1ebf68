package model

import (
	"fmt"
	"time"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID             = "id"
	FieldSlotID         = "slot_id"
	FieldIdempotencyKey = "idempotency_key"
	FieldCreatedAt      = "created_at"
)

// Booking is an accepted reservation. It is never modified once created.
type Booking struct {
	ID             string    `db:"id"`
	SlotID         string    `db:"slot_id"`
	SportID        string    `db:"sport_id"`
	SportName      string    `db:"sport_name"`
	CustomerName   string    `db:"customer_name"`
	CustomerEmail  string    `db:"customer_email"`
	CustomerPhone  string    `db:"customer_phone"`
	NumberOfPeople int       `db:"number_of_people"`
	UnitPrice      int64     `db:"unit_price"`
	TotalPrice     int64     `db:"total_price"`
	IdempotencyKey *string   `db:"idempotency_key"`
	CreatedAt      time.Time `db:"created_at"`
}

type Reason string

const (
	ReasonSlotNotFound    Reason = "SLOT_NOT_FOUND"
	ReasonNotEnoughPlaces Reason = "NOT_ENOUGH_PLACES"
	ReasonRaceCondition   Reason = "RACE_CONDITION"
)

// Rejection is the expected outcome of a reservation that could not be
// accepted. AvailablePlaces is only meaningful for ReasonNotEnoughPlaces.
type Rejection struct {
	Reason          Reason
	AvailablePlaces int
}

func (r *Rejection) Error() string {
	switch r.Reason {
	case ReasonSlotNotFound:
		return "the selected time slot does not exist"
	case ReasonNotEnoughPlaces:
		return fmt.Sprintf("only %d places left in this time slot", r.AvailablePlaces)
	case ReasonRaceCondition:
		return "the time slot changed while booking, please try again"
	default:
		return string(r.Reason)
	}
}

func SlotNotFound() *Rejection {
	return &Rejection{Reason: ReasonSlotNotFound}
}

func NotEnoughPlaces(available int) *Rejection {
	return &Rejection{Reason: ReasonNotEnoughPlaces, AvailablePlaces: available}
}

func RaceCondition() *Rejection {
	return &Rejection{Reason: ReasonRaceCondition}
}

// AcceptedEvent is published once a booking commits.
type AcceptedEvent struct {
	BookingID      string    `json:"bookingId"`
	SlotID         string    `json:"slotId"`
	SportName      string    `json:"sportName"`
	CustomerName   string    `json:"customerName"`
	CustomerEmail  string    `json:"customerEmail"`
	NumberOfPeople int       `json:"numberOfPeople"`
	TotalPrice     int64     `json:"totalPrice"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"createdAt"`
}
