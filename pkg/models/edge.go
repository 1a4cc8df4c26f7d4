package models

// Edge is a directed connection between two nodes, optionally labeled for branching.
type Edge struct {
	ID     string // Assigned by the API once the workflow is created
	Source Node
	Target Node
	Label  string
	Value  any
}

// EdgeJSON is the wire representation of an edge; endpoints are node refs.
type EdgeJSON struct {
	ID     *string `json:"id"`
	Source string  `json:"source"          validate:"required"`
	Target string  `json:"target"          validate:"required"`
	Label  string  `json:"label,omitempty"`
	Value  any     `json:"value,omitempty"`
}

type EdgeOption func(*Edge)

func WithLabel(label string) EdgeOption {
	return func(e *Edge) { e.Label = label }
}

func WithValue(value any) EdgeOption {
	return func(e *Edge) { e.Value = value }
}

func WithEdgeID(id string) EdgeOption {
	return func(e *Edge) { e.ID = id }
}

func NewEdge(source, target Node, opts ...EdgeOption) *Edge {
	e := &Edge{Source: source, Target: target}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// IsSelfLoop reports whether the edge starts and ends on the same node.
func (e *Edge) IsSelfLoop() bool {
	return e.Source != nil && e.Source == e.Target
}

func (e *Edge) ToJSON() EdgeJSON {
	out := EdgeJSON{Label: e.Label, Value: e.Value}

	if e.ID != "" {
		id := e.ID
		out.ID = &id
	}

	if e.Source != nil {
		out.Source = e.Source.Ref()
	}

	if e.Target != nil {
		out.Target = e.Target.Ref()
	}

	return out
}

// EdgeFromJSON resolves the edge endpoints against nodes by ref.
func EdgeFromJSON(data EdgeJSON, nodes []Node) (*Edge, error) {
	source := findByRef(nodes, data.Source)
	if source == nil {
		return nil, &GraphError{Op: "EdgeFromJSON", Ref: data.Source, Err: ErrUnknownRef}
	}

	target := findByRef(nodes, data.Target)
	if target == nil {
		return nil, &GraphError{Op: "EdgeFromJSON", Ref: data.Target, Err: ErrUnknownRef}
	}

	e := NewEdge(source, target, WithLabel(data.Label), WithValue(data.Value))
	if data.ID != nil {
		e.ID = *data.ID
	}

	return e, nil
}

func findByRef(nodes []Node, ref string) Node {
	for _, n := range nodes {
		if n != nil && n.Ref() == ref {
			return n
		}
	}

	return nil
}
