package models

import "time"

// TriggerType distinguishes how the remote engine evaluates a trigger.
type TriggerType int

const (
	TriggerTypeSubscription TriggerType = 0 // Fires on subscribed events
	TriggerTypePolling      TriggerType = 1 // Periodically evaluates a condition
)

// String names the evaluation kind. Any type other than polling subscribes.
func (t TriggerType) String() string {
	if t == TriggerTypePolling {
		return "polling"
	}

	return "subscription"
}

// Parameters only meaningful on polling triggers.
const (
	ParamCondition       = "condition"
	ParamComparisonValue = "comparisonValue"
	ParamInterval        = "interval"
)

// Trigger is a node that starts a workflow.
type Trigger struct {
	nodeBase
}

// NewTrigger builds a trigger from a catalog descriptor.
func NewTrigger(descriptor Descriptor) *Trigger {
	return &Trigger{nodeBase: newNodeBase(descriptor, CategoryTypeTrigger)}
}

// Type returns the evaluation kind of the trigger.
func (t *Trigger) Type() TriggerType {
	return t.descriptor.Type
}

// IsPolling reports whether condition, comparison value and interval apply.
func (t *Trigger) IsPolling() bool {
	return t.descriptor.Type == TriggerTypePolling
}

// SetCondition sets the comparison operator of a polling trigger.
func (t *Trigger) SetCondition(condition string) error {
	if err := t.requirePolling("SetCondition"); err != nil {
		return err
	}

	return t.setParameter("SetCondition", ParamCondition, condition)
}

// SetComparisonValue sets the value the polled result is compared with.
func (t *Trigger) SetComparisonValue(value any) error {
	if err := t.requirePolling("SetComparisonValue"); err != nil {
		return err
	}

	return t.setParameter("SetComparisonValue", ParamComparisonValue, value)
}

// SetInterval sets the polling period, stored in milliseconds.
func (t *Trigger) SetInterval(interval time.Duration) error {
	if err := t.requirePolling("SetInterval"); err != nil {
		return err
	}

	return t.setParameter("SetInterval", ParamInterval, interval.Milliseconds())
}

func (t *Trigger) requirePolling(op string) error {
	if t.IsPolling() {
		return nil
	}

	return &ParameterError{Op: op, Node: t.descriptor.Name, Err: ErrUnsupportedTriggerType}
}
