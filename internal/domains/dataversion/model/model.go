package model

import "time"

const (
	TableName  = "data_versions"
	EntityName = "data_version"

	FieldScope = "scope"
)

// DataVersion counts accepted mutations of one dataset. A missing row
// means version 0 in an unknown epoch. Epoch is fixed when the row is
// created, so a rebuilt database starts a new one.
type DataVersion struct {
	Scope      string    `db:"scope"`
	Version    int64     `db:"version"`
	Epoch      string    `db:"epoch"`
	ModifiedAt time.Time `db:"modified_at"`
}
