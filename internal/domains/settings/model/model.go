package model

import "time"

const (
	TableName  = "settings"
	EntityName = "setting"

	FieldKey = "key"
)

// Setting is one public site setting included in every snapshot.
type Setting struct {
	Key        string    `db:"key"`
	Value      string    `db:"value"`
	ModifiedAt time.Time `db:"modified_at"`
}

// ToMap flattens settings into key/value pairs.
func ToMap(settings []Setting) map[string]string {
	res := make(map[string]string, len(settings))
	for _, setting := range settings {
		res[setting.Key] = setting.Value
	}

	return res
}
