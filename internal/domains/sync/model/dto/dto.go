package dto

import (
	bookingDto "slotbook/internal/domains/booking/model/dto"
	settingsModel "slotbook/internal/domains/settings/model"
	slotDto "slotbook/internal/domains/slot/model/dto"
	"slotbook/internal/store"
)

const (
	ModeLocal         = "local"
	ModeAuthoritative = "authoritative"
)

// SnapshotData is the full dataset handed to stale clients. Clients replace
// their state with it wholesale.
type SnapshotData struct {
	Slots    []slotDto.SlotResponse       `json:"slots"`
	Bookings []bookingDto.BookingResponse `json:"bookings"`
	Settings map[string]string            `json:"settings"`
}

// CachedSnapshot is what gets stored per epoch and version.
type CachedSnapshot struct {
	Epoch   string       `json:"epoch"`
	Version int64        `json:"version"`
	Data    SnapshotData `json:"data"`
}

func (c *CachedSnapshot) FromSnapshot(snapshot store.Snapshot) {
	c.Epoch = snapshot.Epoch
	c.Version = snapshot.Version
	c.Data = SnapshotData{
		Slots:    slotDto.FromModels(snapshot.Slots),
		Bookings: bookingDto.FromModels(snapshot.Bookings),
		Settings: settingsModel.ToMap(snapshot.Settings),
	}
}

type SyncResponse struct {
	Success   bool          `json:"success"`
	Mode      string        `json:"mode"`
	Version   int64         `json:"version"`
	NeedsSync bool          `json:"needsSync"`
	Data      *SnapshotData `json:"data,omitempty"`
}

func Local() SyncResponse {
	return SyncResponse{Success: true, Mode: ModeLocal}
}

func UpToDate(version int64) SyncResponse {
	return SyncResponse{Success: true, Mode: ModeAuthoritative, Version: version}
}

func Stale(snapshot CachedSnapshot) SyncResponse {
	data := snapshot.Data

	return SyncResponse{
		Success:   true,
		Mode:      ModeAuthoritative,
		Version:   snapshot.Version,
		NeedsSync: true,
		Data:      &data,
	}
}
