package store

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"slotbook/infras/otel"
	bookingModel "slotbook/internal/domains/booking/model"
	settingsModel "slotbook/internal/domains/settings/model"
	slotModel "slotbook/internal/domains/slot/model"
	"slotbook/shared/constant"
	gDto "slotbook/shared/dto"
	"slotbook/shared/timezone"
	"sync"

	"github.com/google/uuid"
)

type memoryState struct {
	version  int64
	slots    map[string]slotModel.TimeSlot
	bookings map[string]bookingModel.Booking
	keys     map[string]string
	settings map[string]settingsModel.Setting
}

func (s *memoryState) clone() *memoryState {
	return &memoryState{
		version:  s.version,
		slots:    maps.Clone(s.slots),
		bookings: maps.Clone(s.bookings),
		keys:     maps.Clone(s.keys),
		settings: maps.Clone(s.settings),
	}
}

type memoryStore struct {
	mu    sync.RWMutex
	state *memoryState
	epoch string
	otel  otel.Otel
}

// NewMemory returns an in-process store. Atomic holds a store wide lock,
// which is only sound while a single process serves the dataset. Callers
// must not use the Store's read methods from inside Atomic. Every store
// gets a fresh epoch because its version restarts at zero.
func NewMemory(otel otel.Otel) Store {
	return &memoryStore{
		otel:  otel,
		epoch: uuid.NewString(),
		state: &memoryState{
			slots:    map[string]slotModel.TimeSlot{},
			bookings: map[string]bookingModel.Booking{},
			keys:     map[string]string{},
			settings: map[string]settingsModel.Setting{},
		},
	}
}

// Atomic stages writes on a copy of the state and swaps it in only when
// fn succeeds.
func (m *memoryStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	ctx, scope := m.otel.NewScope(ctx, constant.OtelStoreScopeName, constant.OtelStoreScopeName+".memory.Atomic")
	defer scope.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	staged := m.state.clone()

	if err := fn(ctx, &memoryTx{state: staged}); err != nil {
		return err
	}

	m.state = staged

	return nil
}

func (m *memoryStore) CurrentVersion(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.version, nil
}

func (m *memoryStore) Epoch(_ context.Context) (string, error) {
	return m.epoch, nil
}

func (m *memoryStore) Snapshot(ctx context.Context) (Snapshot, error) {
	_, scope := m.otel.NewScope(ctx, constant.OtelStoreScopeName, constant.OtelStoreScopeName+".memory.Snapshot")
	defer scope.End()

	m.mu.RLock()
	defer m.mu.RUnlock()

	return Snapshot{
		Epoch:    m.epoch,
		Version:  m.state.version,
		Slots:    sortedSlots(slices.Collect(maps.Values(m.state.slots)), gDto.QueryParams{}),
		Bookings: sortedBookings(slices.Collect(maps.Values(m.state.bookings))),
		Settings: sortedSettings(slices.Collect(maps.Values(m.state.settings))),
	}, nil
}

func (m *memoryStore) GetSlot(_ context.Context, id string) (slotModel.TimeSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	slot, ok := m.state.slots[id]
	if !ok {
		return slot, fmt.Errorf("slot %s: %w", id, ErrNotFound)
	}

	return slot, nil
}

func (m *memoryStore) ListSlots(_ context.Context, params gDto.QueryParams, filter slotModel.Filter) ([]slotModel.TimeSlot, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := []slotModel.TimeSlot{}

	for _, slot := range m.state.slots {
		if filter.Match(slot) {
			matched = append(matched, slot)
		}
	}

	matched = sortedSlots(matched, params)
	total := len(matched)

	if params.Limit > 0 {
		start := 0
		if params.Page > 0 {
			start = min((params.Page-1)*params.Limit, total)
		}

		matched = matched[start:min(start+params.Limit, total)]
	}

	return matched, total, nil
}

func (m *memoryStore) GetBooking(_ context.Context, id string) (bookingModel.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	booking, ok := m.state.bookings[id]
	if !ok {
		return booking, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}

	return booking, nil
}

func (m *memoryStore) GetSettings(_ context.Context) ([]settingsModel.Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return sortedSettings(slices.Collect(maps.Values(m.state.settings))), nil
}

type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) GetSlot(_ context.Context, id string) (slotModel.TimeSlot, error) {
	slot, ok := t.state.slots[id]
	if !ok {
		return slot, fmt.Errorf("slot %s: %w", id, ErrNotFound)
	}

	return slot, nil
}

func (t *memoryTx) IncrementBookings(_ context.Context, slotID string, expected, delta int) (bool, error) {
	slot, ok := t.state.slots[slotID]
	if !ok || slot.CurrentBookings != expected || expected+delta > slot.MaxCapacity {
		return false, nil
	}

	slot.CurrentBookings = expected + delta
	slot.ModifiedAt = timezone.Now()
	slot.ModifiedBy = constant.CustomerActor
	t.state.slots[slotID] = slot

	return true, nil
}

func (t *memoryTx) CreateBooking(_ context.Context, booking bookingModel.Booking) error {
	if _, ok := t.state.bookings[booking.ID]; ok {
		return fmt.Errorf("booking %s: %w", booking.ID, ErrDuplicateKey)
	}

	if booking.IdempotencyKey != nil {
		if _, ok := t.state.keys[*booking.IdempotencyKey]; ok {
			return fmt.Errorf("idempotency key %s: %w", *booking.IdempotencyKey, ErrDuplicateKey)
		}

		t.state.keys[*booking.IdempotencyKey] = booking.ID
	}

	t.state.bookings[booking.ID] = booking

	return nil
}

func (t *memoryTx) FindBookingByKey(_ context.Context, key string) (bookingModel.Booking, error) {
	id, ok := t.state.keys[key]
	if !ok {
		return bookingModel.Booking{}, fmt.Errorf("idempotency key %s: %w", key, ErrNotFound)
	}

	return t.state.bookings[id], nil
}

func (t *memoryTx) InsertSlots(_ context.Context, slots []slotModel.TimeSlot) error {
	for _, slot := range slots {
		if _, ok := t.state.slots[slot.ID]; ok {
			return fmt.Errorf("slot %s: %w", slot.ID, ErrDuplicateKey)
		}

		t.state.slots[slot.ID] = slot
	}

	return nil
}

func (t *memoryTx) UpdateSlot(_ context.Context, id string, update slotModel.Update, actor string) (bool, error) {
	slot, ok := t.state.slots[id]
	if !ok {
		return false, nil
	}

	if update.MaxCapacity != nil && slot.CurrentBookings > *update.MaxCapacity {
		return false, nil
	}

	slot = update.Apply(slot)
	slot.ModifiedAt = timezone.Now()
	slot.ModifiedBy = actor
	t.state.slots[id] = slot

	return true, nil
}

func (t *memoryTx) DeleteSlot(_ context.Context, id string) (bool, error) {
	slot, ok := t.state.slots[id]
	if !ok || slot.CurrentBookings != 0 {
		return false, nil
	}

	delete(t.state.slots, id)

	return true, nil
}

func (t *memoryTx) PutSettings(_ context.Context, settings []settingsModel.Setting) error {
	for _, setting := range settings {
		t.state.settings[setting.Key] = setting
	}

	return nil
}

func (t *memoryTx) BumpVersion(_ context.Context) (int64, error) {
	t.state.version++

	return t.state.version, nil
}

func sortedSlots(slots []slotModel.TimeSlot, params gDto.QueryParams) []slotModel.TimeSlot {
	byField := func(a, b slotModel.TimeSlot) int {
		switch params.SortBy {
		case "price":
			return cmp.Compare(a.Price, b.Price)
		case slotModel.FieldSportID:
			return cmp.Compare(a.SportID, b.SportID)
		case slotModel.FieldStartTime:
			return cmp.Compare(a.StartTime, b.StartTime)
		default:
			return a.Date.Compare(b.Date)
		}
	}

	slices.SortFunc(slots, func(a, b slotModel.TimeSlot) int {
		order := byField(a, b)
		if params.SortDir == gDto.SortDirDesc {
			order = -order
		}

		return cmp.Or(order, a.Date.Compare(b.Date), cmp.Compare(a.StartTime, b.StartTime), cmp.Compare(a.ID, b.ID))
	})

	return slots
}

func sortedBookings(bookings []bookingModel.Booking) []bookingModel.Booking {
	slices.SortFunc(bookings, func(a, b bookingModel.Booking) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})

	return bookings
}

func sortedSettings(settings []settingsModel.Setting) []settingsModel.Setting {
	slices.SortFunc(settings, func(a, b settingsModel.Setting) int {
		return cmp.Compare(a.Key, b.Key)
	})

	return settings
}
