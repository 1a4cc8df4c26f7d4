package models

import (
	"encoding/json"
	"slices"
	"strings"
)

// Workflow states reported by the API. The list is not exhaustive; the
// library never computes a state itself.
const (
	WorkflowStateDraft    = "draft"
	WorkflowStateCreated  = "created"
	WorkflowStateActive   = "active"
	WorkflowStateInactive = "inactive"
	WorkflowStateFailed   = "failed"
	WorkflowStateComplete = "completed"
)

// Workflow is a named graph of nodes and edges managed through the API.
type Workflow struct {
	ID   string
	Name string

	state          string
	settings       *Settings
	nodes          []Node
	edges          []*Edge
	refs           map[string]Node
	allowSelfLoops bool
	validateParams bool
}

// WorkflowJSON is the wire representation of a workflow.
type WorkflowJSON struct {
	ID       string     `json:"id,omitempty"`
	Name     string     `json:"name"`
	State    string     `json:"state,omitempty"`
	Nodes    []NodeJSON `json:"nodes"`
	Edges    []EdgeJSON `json:"edges"`
	Settings *Settings  `json:"settings,omitempty"`
}

type Option func(*Workflow)

// AllowSelfLoops accepts edges whose source and target are the same node.
func AllowSelfLoops() Option {
	return func(w *Workflow) { w.allowSelfLoops = true }
}

// ValidateParameters makes WorkflowFromJSON check every parameter value
// against its declared type and reject keys missing from the schema. Use it
// for local input such as workflow files and drafts.
func ValidateParameters() Option {
	return func(w *Workflow) { w.validateParams = true }
}

// WithSettings attaches looping settings to the workflow.
func WithSettings(settings *Settings) Option {
	return func(w *Workflow) { w.settings = settings }
}

// NewWorkflow builds a workflow from nodes and edges between them.
func NewWorkflow(name string, nodes []Node, edges []*Edge, opts ...Option) (*Workflow, error) {
	w := &Workflow{
		Name:  name,
		refs:  make(map[string]Node),
		nodes: make([]Node, 0, len(nodes)),
		edges: make([]*Edge, 0, len(edges)),
	}

	for _, opt := range opts {
		opt(w)
	}

	if err := w.AddNodes(nodes...); err != nil {
		return nil, err
	}

	if err := w.AddEdges(edges...); err != nil {
		return nil, err
	}

	return w, nil
}

// State returns the last state reported by the API.
func (w *Workflow) State() string { return w.state }

// SetState records a state observed in an API response.
func (w *Workflow) SetState(state string) { w.state = state }

func (w *Workflow) Settings() *Settings { return w.settings }

// SetSettings validates and attaches looping settings; nil clears them.
func (w *Workflow) SetSettings(settings *Settings) error {
	if settings != nil {
		if err := settings.Validate(); err != nil {
			return err
		}
	}

	w.settings = settings

	return nil
}

func (w *Workflow) Nodes() []Node { return slices.Clone(w.nodes) }

func (w *Workflow) Edges() []*Edge { return slices.Clone(w.edges) }

// NodeByRef looks a node up by its graph ref.
func (w *Workflow) NodeByRef(ref string) (Node, bool) {
	n, ok := w.refs[ref]

	return n, ok
}

// Triggers returns the trigger nodes in insertion order.
func (w *Workflow) Triggers() []*Trigger {
	var triggers []*Trigger

	for _, n := range w.nodes {
		if t, ok := n.(*Trigger); ok {
			triggers = append(triggers, t)
		}
	}

	return triggers
}

// Children returns the targets of edges leaving n.
func (w *Workflow) Children(n Node) []Node {
	var out []Node

	for _, e := range w.edges {
		if e.Source == n && !slices.Contains(out, e.Target) {
			out = append(out, e.Target)
		}
	}

	return out
}

// Parents returns the sources of edges entering n.
func (w *Workflow) Parents(n Node) []Node {
	var out []Node

	for _, e := range w.edges {
		if e.Target == n && !slices.Contains(out, e.Source) {
			out = append(out, e.Source)
		}
	}

	return out
}

func (w *Workflow) contains(n Node) bool {
	if n == nil {
		return false
	}

	current, ok := w.refs[n.Ref()]

	return ok && current == n
}

// AddNode adds n to the workflow. A ref already used by another node is
// replaced by a fresh one.
func (w *Workflow) AddNode(n Node) error {
	if n == nil {
		return &GraphError{Op: "AddNode", Err: ErrNodeNil}
	}

	if w.contains(n) {
		return &GraphError{Op: "AddNode", Ref: n.Ref(), Err: ErrDuplicateNode}
	}

	b := n.base()
	for b.ref == "" || w.refs[b.ref] != nil {
		b.ref = nextRef()
	}

	w.nodes = append(w.nodes, n)
	w.refs[b.ref] = n

	return nil
}

func (w *Workflow) AddNodes(nodes ...Node) error {
	for _, n := range nodes {
		if err := w.AddNode(n); err != nil {
			return err
		}
	}

	return nil
}

// AddEdge adds e; both endpoints must already belong to the workflow.
func (w *Workflow) AddEdge(e *Edge) error {
	if e == nil {
		return &GraphError{Op: "AddEdge", Err: ErrEdgeNotFound}
	}

	if err := w.checkEdge("AddEdge", e); err != nil {
		return err
	}

	if slices.Contains(w.edges, e) {
		return &GraphError{Op: "AddEdge", Ref: e.Source.Ref(), Err: ErrDuplicateEdge}
	}

	w.edges = append(w.edges, e)

	return nil
}

func (w *Workflow) AddEdges(edges ...*Edge) error {
	for _, e := range edges {
		if err := w.AddEdge(e); err != nil {
			return err
		}
	}

	return nil
}

func (w *Workflow) checkEdge(op string, e *Edge) error {
	if !w.contains(e.Source) {
		return &GraphError{Op: op, Ref: refOf(e.Source), Err: ErrNodeNotFound}
	}

	if !w.contains(e.Target) {
		return &GraphError{Op: op, Ref: refOf(e.Target), Err: ErrNodeNotFound}
	}

	if e.IsSelfLoop() && !w.allowSelfLoops {
		return &GraphError{Op: op, Ref: e.Source.Ref(), Err: ErrSelfLoop}
	}

	return nil
}

func refOf(n Node) string {
	if n == nil {
		return ""
	}

	return n.Ref()
}

// RemoveEdge drops e from the workflow without touching its nodes.
func (w *Workflow) RemoveEdge(e *Edge) error {
	idx := slices.Index(w.edges, e)
	if idx < 0 {
		return &GraphError{Op: "RemoveEdge", Err: ErrEdgeNotFound}
	}

	w.edges = slices.Delete(w.edges, idx, idx+1)

	return nil
}

// DeleteNode removes n and its edges. When n had a single parent, that
// parent is reconnected to each former child with the child edge metadata.
func (w *Workflow) DeleteNode(n Node) error {
	if !w.contains(n) {
		return &GraphError{Op: "DeleteNode", Ref: refOf(n), Err: ErrNodeNotFound}
	}

	var incoming, outgoing []*Edge

	for _, e := range w.edges {
		switch {
		case e.Target == n && e.Source != n:
			incoming = append(incoming, e)
		case e.Source == n && e.Target != n:
			outgoing = append(outgoing, e)
		}
	}

	w.edges = slices.DeleteFunc(w.edges, func(e *Edge) bool {
		return e.Source == n || e.Target == n
	})

	if len(incoming) == 1 {
		parent := incoming[0].Source

		for _, out := range outgoing {
			if w.hasEdge(parent, out.Target) {
				continue
			}

			w.edges = append(w.edges, NewEdge(parent, out.Target, WithLabel(out.Label), WithValue(out.Value)))
		}
	}

	w.nodes = slices.DeleteFunc(w.nodes, func(candidate Node) bool { return candidate == n })
	delete(w.refs, n.Ref())

	return nil
}

func (w *Workflow) hasEdge(source, target Node) bool {
	return slices.ContainsFunc(w.edges, func(e *Edge) bool {
		return e.Source == source && e.Target == target
	})
}

// InsertNodeAfter places node right after previous: every edge leaving
// previous now leaves node, and an unlabeled previous -> node edge is added.
func (w *Workflow) InsertNodeAfter(node, previous Node) error {
	if !w.contains(previous) {
		return &GraphError{Op: "InsertNodeAfter", Ref: refOf(previous), Err: ErrNodeNotFound}
	}

	if err := w.AddNode(node); err != nil {
		return err
	}

	for _, e := range w.edges {
		if e.Source == previous {
			e.Source = node
		}
	}

	w.edges = append(w.edges, NewEdge(previous, node))

	return nil
}

// InsertNodeBetween splices node into the edge previous -> next. The
// existing edge becomes node -> next and keeps its metadata.
func (w *Workflow) InsertNodeBetween(node, previous, next Node) error {
	idx := slices.IndexFunc(w.edges, func(e *Edge) bool {
		return e.Source == previous && e.Target == next
	})
	if idx < 0 {
		return &GraphError{Op: "InsertNodeBetween", Ref: refOf(previous), Err: ErrEdgeNotFound}
	}

	if err := w.AddNode(node); err != nil {
		return err
	}

	w.edges[idx].Source = node
	w.edges = append(w.edges, NewEdge(previous, node))

	return nil
}

// Reachable returns the refs of every node reachable from the triggers.
func (w *Workflow) Reachable() map[string]bool {
	seen := make(map[string]bool)
	queue := make([]Node, 0, len(w.nodes))

	for _, t := range w.Triggers() {
		queue = append(queue, t)
		seen[t.Ref()] = true
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, child := range w.Children(current) {
			if !seen[child.Ref()] {
				seen[child.Ref()] = true
				queue = append(queue, child)
			}
		}
	}

	return seen
}

// Validate checks the workflow before it is submitted.
func (w *Workflow) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return &GraphError{Op: "Validate", Err: ErrWorkflowNameRequired}
	}

	if w.settings != nil {
		if err := w.settings.Validate(); err != nil {
			return err
		}
	}

	for _, e := range w.edges {
		if err := w.checkEdge("Validate", e); err != nil {
			return err
		}
	}

	return nil
}

// ToJSON returns the wire form. Nodes without a position are emitted with
// their layout position; the nodes themselves are left untouched.
func (w *Workflow) ToJSON() WorkflowJSON {
	positions := w.layout()

	out := WorkflowJSON{
		Name:     w.Name,
		Nodes:    make([]NodeJSON, 0, len(w.nodes)),
		Edges:    make([]EdgeJSON, 0, len(w.edges)),
		Settings: w.settings,
	}

	for _, n := range w.nodes {
		nj := n.ToJSON()
		if pos, ok := positions[n.Ref()]; ok {
			nj.Position = &pos
		}

		out.Nodes = append(out.Nodes, nj)
	}

	for _, e := range w.edges {
		out.Edges = append(out.Edges, e.ToJSON())
	}

	return out
}

func (w *Workflow) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.ToJSON())
}

// DescriptorResolver finds the catalog entry for a node id.
type DescriptorResolver interface {
	Descriptor(category CategoryType, id int) (Descriptor, error)
}

// WorkflowFromJSON rehydrates a workflow returned by the API. Parameter
// values are restored as sent and keys missing from the catalog schema are
// dropped, unless ValidateParameters is given.
func WorkflowFromJSON(data WorkflowJSON, resolver DescriptorResolver, opts ...Option) (*Workflow, error) {
	var cfg Workflow
	for _, opt := range opts {
		opt(&cfg)
	}

	nodes := make([]Node, 0, len(data.Nodes))

	for _, nj := range data.Nodes {
		descriptor, err := resolver.Descriptor(nj.Type, nj.ID)
		if err != nil {
			return nil, err
		}

		n, err := NewNode(descriptor)
		if err != nil {
			return nil, err
		}

		b := n.base()
		if nj.Ref != "" {
			b.ref = nj.Ref
		}

		for key, value := range nj.Parameters {
			if !cfg.validateParams {
				b.restoreParameter(key, value)

				continue
			}

			// Unset parameters are serialized as null.
			if value == nil {
				if _, declared := b.params[key]; declared {
					continue
				}
			}

			if err := b.setParameter("WorkflowFromJSON", key, value); err != nil {
				return nil, err
			}
		}

		if nj.Position != nil {
			n.SetPosition(nj.Position.X, nj.Position.Y)
		}

		nodes = append(nodes, n)
	}

	edges := make([]*Edge, 0, len(data.Edges))

	for _, ej := range data.Edges {
		e, err := EdgeFromJSON(ej, nodes)
		if err != nil {
			return nil, err
		}

		edges = append(edges, e)
	}

	opts = append(opts, WithSettings(data.Settings))

	w, err := NewWorkflow(data.Name, nodes, edges, opts...)
	if err != nil {
		return nil, err
	}

	w.ID = data.ID
	w.state = data.State

	return w, nil
}
