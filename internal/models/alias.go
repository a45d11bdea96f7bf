package models

import (
	"time"
)

// Alias maps a logical model name to a concrete provider key and target
// model for one account. Alias names are unique per account, which is
// what makes upsert-by-name well defined.
//
// FallbackAliasID and LightModel are normalized before storage: a zero
// fallback id and an empty light model both mean "absent" and are kept
// as NULL.
type Alias struct {
	ID                  int64     `db:"id"`
	AccountID           int64     `db:"account_id"`
	Alias               string    `db:"alias"`
	TargetModel         string    `db:"target_model"`
	ProviderKeyID       int64     `db:"provider_key_id"`
	FallbackAliasID     *int64    `db:"fallback_alias_id"`
	UseLightModel       bool      `db:"use_light_model"`
	LightModelThreshold *int      `db:"light_model_threshold"`
	LightModel          *string   `db:"light_model"`
	CreatedAt           time.Time `db:"created_at"`
}

// WantsLightModel reports whether the light-model downgrade applies for
// the given token estimate. The rule requires all three of
// use_light_model, light_model and light_model_threshold to be set; a
// missing threshold never selects the light model.
func (a *Alias) WantsLightModel(estimatedTokens int) bool {
	if !a.UseLightModel || a.LightModel == nil || a.LightModelThreshold == nil {
		return false
	}
	return estimatedTokens <= *a.LightModelThreshold
}
