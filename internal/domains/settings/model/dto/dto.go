package dto

import (
	"slotbook/internal/domains/settings/model"
	"sort"
	"time"
)

type PutSettingsRequest struct {
	Settings map[string]string `json:"settings" validate:"required,min=1,max=100,dive,keys,min=1,max=64,endkeys,max=4096"`
}

// ToModel returns the settings ordered by key so writes hit rows in a
// stable order.
func (p *PutSettingsRequest) ToModel(now time.Time) []model.Setting {
	keys := make([]string, 0, len(p.Settings))
	for key := range p.Settings {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	res := make([]model.Setting, len(keys))
	for i, key := range keys {
		res[i] = model.Setting{Key: key, Value: p.Settings[key], ModifiedAt: now}
	}

	return res
}

type SettingsResponse struct {
	Settings map[string]string `json:"settings"`
}

func (r *SettingsResponse) FromModels(models []model.Setting) {
	r.Settings = model.ToMap(models)
}
