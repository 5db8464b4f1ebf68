// Package store holds slots, bookings, settings and the data version of one
// dataset behind a transactional interface.
//
// Every mutation runs inside Atomic and bumps the data version through the
// same Tx, so a reader can never observe a new version with old data or the
// other way around.
package store

//go:generate go run go.uber.org/mock/mockgen -source=./store.go -destination=./mocks/store_mock.go -package=mocks

import (
	"context"
	bookingModel "slotbook/internal/domains/booking/model"
	settingsModel "slotbook/internal/domains/settings/model"
	slotModel "slotbook/internal/domains/slot/model"
	gDto "slotbook/shared/dto"
	gRepo "slotbook/shared/repository"
)

var (
	ErrNotFound     = gRepo.ErrNotFound
	ErrDuplicateKey = gRepo.ErrDuplicateKey
)

// Snapshot is a consistent copy of the whole dataset tagged with the
// version it was read at.
type Snapshot struct {
	Epoch    string
	Version  int64
	Slots    []slotModel.TimeSlot
	Bookings []bookingModel.Booking
	Settings []settingsModel.Setting
}

// Tx is the write side of one atomic unit.
type Tx interface {
	GetSlot(ctx context.Context, id string) (slotModel.TimeSlot, error)
	// IncrementBookings swaps the slot's bookings from expected to
	// expected+delta. False means the slot changed or would overflow.
	IncrementBookings(ctx context.Context, slotID string, expected, delta int) (bool, error)
	CreateBooking(ctx context.Context, booking bookingModel.Booking) error
	FindBookingByKey(ctx context.Context, key string) (bookingModel.Booking, error)
	InsertSlots(ctx context.Context, slots []slotModel.TimeSlot) error
	// UpdateSlot applies update unless current bookings would exceed the
	// new capacity. False means the slot is gone or the guard failed.
	UpdateSlot(ctx context.Context, id string, update slotModel.Update, actor string) (bool, error)
	// DeleteSlot removes a slot that has no bookings.
	DeleteSlot(ctx context.Context, id string) (bool, error)
	PutSettings(ctx context.Context, settings []settingsModel.Setting) error
	BumpVersion(ctx context.Context) (int64, error)
}

type Store interface {
	// Atomic runs fn in one transaction. Any error from fn discards every
	// write made through tx.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	CurrentVersion(ctx context.Context) (int64, error)
	// Epoch names the lifetime of the version counter. It changes whenever
	// the counter starts over, so (epoch, version) never repeats with
	// different data. Empty means unknown and must not be cached against.
	Epoch(ctx context.Context) (string, error)
	Snapshot(ctx context.Context) (Snapshot, error)
	GetSlot(ctx context.Context, id string) (slotModel.TimeSlot, error)
	ListSlots(ctx context.Context, params gDto.QueryParams, filter slotModel.Filter) ([]slotModel.TimeSlot, int, error)
	GetBooking(ctx context.Context, id string) (bookingModel.Booking, error)
	GetSettings(ctx context.Context) ([]settingsModel.Setting, error)
}
