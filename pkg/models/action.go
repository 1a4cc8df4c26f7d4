package models

// Parameters of the generic condition action.
const (
	ParamLogic  = "logic"
	ParamGroups = "groups"
)

// Action is a node executed as part of a workflow.
type Action struct {
	nodeBase
}

// NewAction builds an action from a catalog descriptor.
func NewAction(descriptor Descriptor) *Action {
	return &Action{nodeBase: newNodeBase(descriptor, CategoryTypeAction)}
}

// SetConditionGroups fills the logic and groups parameters of a condition action.
func (a *Action) SetConditionGroups(logic LogicOperator, groups ...*ConditionGroup) error {
	if !logic.Valid() {
		return &ParameterError{Op: "SetConditionGroups", Node: a.descriptor.Name, Key: ParamLogic, Err: ErrInvalidLogicOperator}
	}

	payload := make([]ConditionGroup, 0, len(groups))

	for _, g := range groups {
		if g == nil {
			continue
		}

		if !g.Logic.Valid() {
			return &ParameterError{Op: "SetConditionGroups", Node: a.descriptor.Name, Key: ParamGroups, Err: ErrInvalidLogicOperator}
		}

		payload = append(payload, g.clone())
	}

	// Both parameters are checked before either is written.
	logicParam, err := a.checkParameter("SetConditionGroups", ParamLogic, string(logic))
	if err != nil {
		return err
	}

	groupsParam, err := a.checkParameter("SetConditionGroups", ParamGroups, payload)
	if err != nil {
		return err
	}

	logicParam.Value = string(logic)
	groupsParam.Value = payload

	return nil
}
