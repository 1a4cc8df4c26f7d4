// Package models defines the workflow graph: catalog-backed trigger and action nodes, edges and the workflow aggregate.
package models

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/dukex/otomato/pkg/validation"
)

// CategoryType represents the category of node.
type CategoryType string

const (
	CategoryTypeAction  CategoryType = "action"
	CategoryTypeTrigger CategoryType = "trigger"
)

// Conventional parameter keys.
const (
	ParamChainID         = "chainId"
	ParamContractAddress = "contractAddress"
	abiParamsPrefix      = "abiParams."
)

// Descriptor is an immutable catalog entry a node is built from.
type Descriptor struct {
	ID          int          `json:"id"                    validate:"required,gt=0"`
	Name        string       `json:"name"                  validate:"required"`
	Description string       `json:"description,omitempty"`
	Category    CategoryType `json:"category"              validate:"required,oneof=trigger action"`
	Type        TriggerType  `json:"type,omitempty"`
	Parameters  []Parameter  `json:"parameters"            validate:"dive"`
}

// Position is the 2-D canvas location of a node.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeJSON is the wire representation of a node.
type NodeJSON struct {
	ID         int            `json:"id"                 validate:"required,gt=0"`
	Ref        string         `json:"ref"                validate:"required"`
	Type       CategoryType   `json:"type"               validate:"required,oneof=trigger action"`
	Parameters map[string]any `json:"parameters"`
	Position   *Position      `json:"position,omitempty"`
}

// Node is a trigger or an action placed in a workflow graph.
type Node interface {
	Ref() string
	ID() int
	Name() string
	Description() string
	Category() CategoryType
	Descriptor() Descriptor
	SetParams(key string, value any) error
	SetChainID(chainID int) error
	SetContractAddress(address string) error
	Parameter(key string) (Parameter, bool)
	Parameters() map[string]any
	Position() (Position, bool)
	SetPosition(x, y float64)
	ToJSON() NodeJSON

	base() *nodeBase
}

var refCounter atomic.Uint64

func nextRef() string {
	return "n-" + strconv.FormatUint(refCounter.Add(1), 10)
}

type nodeBase struct {
	descriptor Descriptor
	ref        string
	params     map[string]*Parameter
	keyMap     map[string]string
	position   *Position
}

func newNodeBase(descriptor Descriptor, category CategoryType) nodeBase {
	n := nodeBase{
		ref:    nextRef(),
		params: make(map[string]*Parameter, len(descriptor.Parameters)),
		keyMap: make(map[string]string, len(descriptor.Parameters)),
	}

	schema := make([]Parameter, 0, len(descriptor.Parameters))

	for _, p := range descriptor.Parameters {
		p = p.clone()
		schema = append(schema, p.clone())

		p.Value = nil
		n.params[p.Key] = &p

		if simple := simplifyKey(p.Key); simple != p.Key {
			if _, taken := n.keyMap[simple]; !taken {
				n.keyMap[simple] = p.Key
			}
		}
	}

	descriptor.Parameters = schema
	descriptor.Category = category
	n.descriptor = descriptor

	return n
}

// simplifyKey flattens "abiParams.asset" or "path[0]" style keys to a single identifier.
func simplifyKey(key string) string {
	key = strings.TrimPrefix(key, abiParamsPrefix)

	return strings.Trim(strings.NewReplacer(".", "_", "[", "_", "]", "").Replace(key), "_")
}

func (n *nodeBase) base() *nodeBase { return n }

// Ref returns the graph reference used by edges to address this node.
func (n *nodeBase) Ref() string { return n.ref }

// ID returns the catalog id of the node.
func (n *nodeBase) ID() int { return n.descriptor.ID }

func (n *nodeBase) Name() string { return n.descriptor.Name }

func (n *nodeBase) Description() string { return n.descriptor.Description }

func (n *nodeBase) Category() CategoryType { return n.descriptor.Category }

// Descriptor returns a copy of the catalog entry the node was built from.
func (n *nodeBase) Descriptor() Descriptor {
	d := n.descriptor
	d.Parameters = make([]Parameter, len(n.descriptor.Parameters))

	for i, p := range n.descriptor.Parameters {
		d.Parameters[i] = p.clone()
	}

	return d
}

// SetParams validates and assigns a parameter. The key is matched literally,
// then as an abiParams argument, then by its simplified form.
func (n *nodeBase) SetParams(key string, value any) error {
	return n.setParameter("SetParams", n.resolveKey(key), value)
}

func (n *nodeBase) SetChainID(chainID int) error {
	return n.setParameter("SetChainID", ParamChainID, chainID)
}

func (n *nodeBase) SetContractAddress(address string) error {
	return n.setParameter("SetContractAddress", ParamContractAddress, address)
}

func (n *nodeBase) resolveKey(key string) string {
	if _, ok := n.params[key]; ok {
		return key
	}

	if _, ok := n.params[abiParamsPrefix+key]; ok {
		return abiParamsPrefix + key
	}

	if declared, ok := n.keyMap[key]; ok {
		return declared
	}

	return key
}

// checkParameter returns the declared parameter for key when value fits its type.
func (n *nodeBase) checkParameter(op, key string, value any) (*Parameter, error) {
	p, ok := n.params[key]
	if !ok {
		return nil, &ParameterError{Op: op, Node: n.descriptor.Name, Key: key, Err: ErrParameterNotFound}
	}

	if !validation.ValidateType(p.Type, value) {
		return nil, &ParameterError{Op: op, Node: n.descriptor.Name, Key: key, Type: p.Type, Err: ErrInvalidType}
	}

	return p, nil
}

func (n *nodeBase) setParameter(op, key string, value any) error {
	p, err := n.checkParameter(op, key, value)
	if err != nil {
		return err
	}

	p.Value = value

	return nil
}

// restoreParameter assigns a server-provided value without type checks.
func (n *nodeBase) restoreParameter(key string, value any) bool {
	p, ok := n.params[key]
	if !ok {
		return false
	}

	p.Value = value

	return true
}

// Parameter returns the declared parameter and its current value.
func (n *nodeBase) Parameter(key string) (Parameter, bool) {
	p, ok := n.params[n.resolveKey(key)]
	if !ok {
		return Parameter{}, false
	}

	return p.clone(), true
}

// Parameters returns every declared key with its value, nil when unset.
func (n *nodeBase) Parameters() map[string]any {
	out := make(map[string]any, len(n.params))
	for key, p := range n.params {
		out[key] = p.Value
	}

	return out
}

func (n *nodeBase) Position() (Position, bool) {
	if n.position == nil {
		return Position{}, false
	}

	return *n.position, true
}

func (n *nodeBase) SetPosition(x, y float64) {
	n.position = &Position{X: x, Y: y}
}

func (n *nodeBase) ToJSON() NodeJSON {
	out := NodeJSON{
		ID:         n.descriptor.ID,
		Ref:        n.ref,
		Type:       n.descriptor.Category,
		Parameters: n.Parameters(),
	}

	if n.position != nil {
		pos := *n.position
		out.Position = &pos
	}

	return out
}

// NewNode builds a trigger or an action depending on the descriptor category.
func NewNode(descriptor Descriptor) (Node, error) {
	switch descriptor.Category {
	case CategoryTypeTrigger:
		return NewTrigger(descriptor), nil
	case CategoryTypeAction:
		return NewAction(descriptor), nil
	default:
		return nil, &GraphError{Op: "NewNode", Err: ErrUnknownCategory}
	}
}
