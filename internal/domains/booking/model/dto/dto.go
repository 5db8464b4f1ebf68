package dto

import (
	"slotbook/internal/domains/booking/model"
	slotModel "slotbook/internal/domains/slot/model"
	"slotbook/shared/constant"
	"slotbook/shared/timezone"
	"time"

	"github.com/google/uuid"
)

// ReserveRequest is the public booking form. Contact fields are opaque and
// only need to be present.
type ReserveRequest struct {
	SlotID         string `json:"slotId"                   validate:"required,max=64"`
	CustomerName   string `json:"customerName"             validate:"required,max=200"`
	CustomerEmail  string `json:"customerEmail"            validate:"required,max=200"`
	CustomerPhone  string `json:"customerPhone"            validate:"required,max=50"`
	NumberOfPeople int    `json:"numberOfPeople"           validate:"gte=1,lte=100000"`
	SportID        string `json:"sportId,omitempty"        validate:"omitempty,max=64"`
	SportName      string `json:"sportName,omitempty"      validate:"omitempty,max=200"`
	IdempotencyKey string `json:"idempotencyKey,omitempty" validate:"omitempty,max=128"`
}

// ToModel builds the booking for slot, freezing the price at its current
// value. The sport is taken from the slot as it is right now.
func (r *ReserveRequest) ToModel(slot slotModel.TimeSlot, now time.Time) model.Booking {
	sportName := r.SportName
	if sportName == "" {
		sportName = slot.SportID
	}

	var key *string
	if r.IdempotencyKey != "" {
		k := r.IdempotencyKey
		key = &k
	}

	return model.Booking{
		ID:             uuid.NewString(),
		SlotID:         slot.ID,
		SportID:        slot.SportID,
		SportName:      sportName,
		CustomerName:   r.CustomerName,
		CustomerEmail:  r.CustomerEmail,
		CustomerPhone:  r.CustomerPhone,
		NumberOfPeople: r.NumberOfPeople,
		UnitPrice:      slot.Price,
		TotalPrice:     slot.Price * int64(r.NumberOfPeople),
		IdempotencyKey: key,
		CreatedAt:      now,
	}
}

type BookingResponse struct {
	ID             string `json:"id"`
	SlotID         string `json:"slotId"`
	SportID        string `json:"sportId"`
	SportName      string `json:"sportName"`
	CustomerName   string `json:"customerName"`
	CustomerEmail  string `json:"customerEmail"`
	CustomerPhone  string `json:"customerPhone"`
	NumberOfPeople int    `json:"numberOfPeople"`
	UnitPrice      int64  `json:"unitPrice"`
	TotalPrice     int64  `json:"totalPrice"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

func (r *BookingResponse) FromModel(model model.Booking) {
	r.ID = model.ID
	r.SlotID = model.SlotID
	r.SportID = model.SportID
	r.SportName = model.SportName
	r.CustomerName = model.CustomerName
	r.CustomerEmail = model.CustomerEmail
	r.CustomerPhone = model.CustomerPhone
	r.NumberOfPeople = model.NumberOfPeople
	r.UnitPrice = model.UnitPrice
	r.TotalPrice = model.TotalPrice
	r.CreatedAt = timezone.Format(model.CreatedAt, constant.DateFormat)

	if model.IdempotencyKey != nil {
		r.IdempotencyKey = *model.IdempotencyKey
	}
}

func FromModels(models []model.Booking) []BookingResponse {
	res := make([]BookingResponse, len(models))
	for i, mod := range models {
		res[i].FromModel(mod)
	}

	return res
}

type UpdatedSlot struct {
	CurrentBookings int `json:"currentBookings"`
}

type ReserveResponse struct {
	Success     bool            `json:"success"`
	Booking     BookingResponse `json:"booking"`
	UpdatedSlot UpdatedSlot     `json:"updatedSlot"`
	Replayed    bool            `json:"replayed,omitempty"`
	Version     int64           `json:"-"`
}

type ReserveFailure struct {
	Success         bool   `json:"success"`
	ErrorCode       string `json:"errorCode"`
	AvailablePlaces *int   `json:"availablePlaces,omitempty"`
	Error           string `json:"error,omitempty"`
}

// FromRejection renders a domain rejection. Remaining places are only
// reported for capacity shortfalls.
func (f *ReserveFailure) FromRejection(rejection *model.Rejection) {
	f.Success = false
	f.ErrorCode = string(rejection.Reason)
	f.Error = rejection.Error()

	if rejection.Reason == model.ReasonNotEnoughPlaces {
		available := rejection.AvailablePlaces
		f.AvailablePlaces = &available
	}
}
