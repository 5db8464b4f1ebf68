package dto

import (
	"slotbook/internal/domains/slot/model"
	"slotbook/shared"
	"slotbook/shared/constant"
	gModel "slotbook/shared/model"
	"slotbook/shared/timezone"

	"github.com/google/uuid"
)

type CreateSlotRequest struct {
	ID              string `json:"id"              validate:"omitempty,max=64"`
	SportID         string `json:"sportId"         validate:"required,max=64"`
	Date            string `json:"date"            validate:"required,day"`
	StartTime       string `json:"startTime"       validate:"required,clock"`
	DurationMinutes int    `json:"durationMinutes" validate:"gte=1,lte=1440"`
	Price           int64  `json:"price"           validate:"gte=0,lte=1000000000"`
	MaxCapacity     int    `json:"maxCapacity"     validate:"gte=0,lte=100000"`
}

func (c *CreateSlotRequest) ToModel(actor string) (model.TimeSlot, error) {
	day, err := timezone.ParseDay(c.Date)
	if err != nil {
		return model.TimeSlot{}, err
	}

	start, err := timezone.ParseClock(c.StartTime)
	if err != nil {
		return model.TimeSlot{}, err
	}

	id := c.ID
	if id == "" {
		id = uuid.NewString()
	}

	return model.TimeSlot{
		ID:              id,
		SportID:         c.SportID,
		Date:            day,
		StartTime:       start,
		DurationMinutes: c.DurationMinutes,
		Price:           c.Price,
		MaxCapacity:     c.MaxCapacity,
		Metadata:        gModel.NewMetadata(timezone.Now(), actor),
	}, nil
}

type CreateSlotsRequest struct {
	Slots []CreateSlotRequest `json:"slots" validate:"required,min=1,max=500,dive"`
}

type UpdateSlotRequest struct {
	SportID         *string `json:"sportId"         validate:"omitempty,min=1,max=64"`
	Date            *string `json:"date"            validate:"omitempty,day"`
	StartTime       *string `json:"startTime"       validate:"omitempty,clock"`
	DurationMinutes *int    `json:"durationMinutes" validate:"omitempty,gte=1,lte=1440"`
	Price           *int64  `json:"price"           validate:"omitempty,gte=0,lte=1000000000"`
	MaxCapacity     *int    `json:"maxCapacity"     validate:"omitempty,gte=0,lte=100000"`
}

func (u *UpdateSlotRequest) ToModel() (model.Update, error) {
	update := model.Update{
		SportID:         u.SportID,
		DurationMinutes: u.DurationMinutes,
		Price:           u.Price,
		MaxCapacity:     u.MaxCapacity,
	}

	if u.Date != nil {
		day, err := timezone.ParseDay(*u.Date)
		if err != nil {
			return update, err
		}

		update.Date = &day
	}

	if u.StartTime != nil {
		start, err := timezone.ParseClock(*u.StartTime)
		if err != nil {
			return update, err
		}

		update.StartTime = &start
	}

	return update, nil
}

type SlotResponse struct {
	ID              string `json:"id"`
	SportID         string `json:"sportId"`
	Date            string `json:"date"`
	StartTime       string `json:"startTime"`
	DurationMinutes int    `json:"durationMinutes"`
	Price           int64  `json:"price"`
	MaxCapacity     int    `json:"maxCapacity"`
	CurrentBookings int    `json:"currentBookings"`
	AvailablePlaces int    `json:"availablePlaces"`
}

func (r *SlotResponse) FromModel(model model.TimeSlot) {
	r.ID = model.ID
	r.SportID = model.SportID
	r.Date = model.Date.Format(constant.DayFormat)
	r.StartTime = model.StartTime
	r.DurationMinutes = model.DurationMinutes
	r.Price = model.Price
	r.MaxCapacity = model.MaxCapacity
	r.CurrentBookings = model.CurrentBookings
	r.AvailablePlaces = model.Available()
}

func FromModels(models []model.TimeSlot) []SlotResponse {
	res := make([]SlotResponse, len(models))
	for i, mod := range models {
		res[i].FromModel(mod)
	}

	return res
}

type GetSlotsResponse struct {
	Slots     []SlotResponse `json:"slots"`
	TotalPage int            `json:"totalPage"`
	TotalData int            `json:"totalData"`
}

func (r *GetSlotsResponse) FromModels(models []model.TimeSlot, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)
	r.Slots = FromModels(models)
}

// SortableColumns lists the columns slot listings may be ordered by.
var SortableColumns = []string{model.FieldDate, model.FieldStartTime, "price", model.FieldSportID}
