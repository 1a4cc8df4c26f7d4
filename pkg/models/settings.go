package models

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
)

// LoopingType selects how the remote engine re-runs a workflow.
type LoopingType string

const (
	LoopingTypePolling      LoopingType = "polling"
	LoopingTypeSubscription LoopingType = "subscription"
)

// Settings is forwarded verbatim to the API. Durations are milliseconds.
type Settings struct {
	LoopingType LoopingType `json:"loopingType"       validate:"required,oneof=polling subscription"`
	Period      int64       `json:"period,omitempty"  validate:"required_if=LoopingType polling,gte=0"`
	Timeout     int64       `json:"timeout,omitempty" validate:"required_if=LoopingType subscription,gte=0"`
	Limit       int         `json:"limit"             validate:"gte=0"`
}

var settingsValidator = validator.New(validator.WithRequiredStructEnabled())

// NewPollingSettings re-runs the workflow every period, at most limit times.
func NewPollingSettings(period time.Duration, limit int) *Settings {
	return &Settings{LoopingType: LoopingTypePolling, Period: period.Milliseconds(), Limit: limit}
}

// NewSubscriptionSettings keeps the workflow subscribed for timeout, at most limit executions.
func NewSubscriptionSettings(timeout time.Duration, limit int) *Settings {
	return &Settings{LoopingType: LoopingTypeSubscription, Timeout: timeout.Milliseconds(), Limit: limit}
}

func (s *Settings) Validate() error {
	return settingsValidator.Struct(s)
}

// MarshalJSON emits only the fields of the active looping type.
func (s Settings) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"loopingType": s.LoopingType,
		"limit":       s.Limit,
	}

	switch s.LoopingType {
	case LoopingTypePolling:
		out["period"] = s.Period
	case LoopingTypeSubscription:
		out["timeout"] = s.Timeout
	}

	return json.Marshal(out)
}
