package model

import (
	"slotbook/shared/model"
	"time"
)

const (
	TableName  = "time_slots"
	EntityName = "slot"

	FieldID              = "id"
	FieldSportID         = "sport_id"
	FieldDate            = "date"
	FieldStartTime       = "start_time"
	FieldCurrentBookings = "current_bookings"
	FieldMaxCapacity     = "max_capacity"
)

// TimeSlot is a bookable window with a finite number of places.
// CurrentBookings never exceeds MaxCapacity in committed state.
type TimeSlot struct {
	ID              string    `db:"id"`
	SportID         string    `db:"sport_id"`
	Date            time.Time `db:"date"`
	StartTime       string    `db:"start_time"`
	DurationMinutes int       `db:"duration_minutes"`
	Price           int64     `db:"price"`
	MaxCapacity     int       `db:"max_capacity"`
	CurrentBookings int       `db:"current_bookings"`
	model.Metadata
}

// Available returns the number of places still free.
func (s TimeSlot) Available() int {
	return max(0, s.MaxCapacity-s.CurrentBookings)
}

// Update carries an admin edit. Nil fields stay untouched; bookings are
// never edited this way.
type Update struct {
	SportID         *string    `db:"sport_id"`
	Date            *time.Time `db:"date"`
	StartTime       *string    `db:"start_time"`
	DurationMinutes *int       `db:"duration_minutes"`
	Price           *int64     `db:"price"`
	MaxCapacity     *int       `db:"max_capacity"`
}

// Apply returns slot with the edit applied.
func (u Update) Apply(slot TimeSlot) TimeSlot {
	if u.SportID != nil {
		slot.SportID = *u.SportID
	}

	if u.Date != nil {
		slot.Date = *u.Date
	}

	if u.StartTime != nil {
		slot.StartTime = *u.StartTime
	}

	if u.DurationMinutes != nil {
		slot.DurationMinutes = *u.DurationMinutes
	}

	if u.Price != nil {
		slot.Price = *u.Price
	}

	if u.MaxCapacity != nil {
		slot.MaxCapacity = *u.MaxCapacity
	}

	return slot
}

// Filter narrows slot listings.
type Filter struct {
	SportID string
	Date    *time.Time
}

func (f Filter) Match(slot TimeSlot) bool {
	if f.SportID != "" && slot.SportID != f.SportID {
		return false
	}

	if f.Date != nil && !sameDay(slot.Date, *f.Date) {
		return false
	}

	return true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()

	return ay == by && am == bm && ad == bd
}
