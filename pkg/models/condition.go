package models

// LogicOperator joins the checks of a condition group.
type LogicOperator string

const (
	LogicAnd LogicOperator = "and"
	LogicOr  LogicOperator = "or"
)

func (l LogicOperator) Valid() bool {
	return l == LogicAnd || l == LogicOr
}

// ConditionCheck compares two values; semantics are evaluated remotely.
type ConditionCheck struct {
	Value1    any    `json:"value1"`
	Condition string `json:"condition"`
	Value2    any    `json:"value2"`
}

// ConditionGroup is a list of checks joined by one logic operator.
type ConditionGroup struct {
	Logic  LogicOperator    `json:"logic"`
	Checks []ConditionCheck `json:"checks"`
}

func NewConditionGroup(logic LogicOperator) *ConditionGroup {
	return &ConditionGroup{Logic: logic, Checks: []ConditionCheck{}}
}

// AddConditionCheck appends a check and returns the group for chaining.
func (g *ConditionGroup) AddConditionCheck(value1 any, condition string, value2 any) *ConditionGroup {
	g.Checks = append(g.Checks, ConditionCheck{Value1: value1, Condition: condition, Value2: value2})

	return g
}

func (g *ConditionGroup) clone() ConditionGroup {
	checks := make([]ConditionCheck, len(g.Checks))
	copy(checks, g.Checks)

	return ConditionGroup{Logic: g.Logic, Checks: checks}
}
