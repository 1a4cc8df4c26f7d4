package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver map[int]Descriptor

func (s staticResolver) Descriptor(category CategoryType, id int) (Descriptor, error) {
	d, ok := s[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("descriptor %d not found", id)
	}

	d.Category = category

	return d, nil
}

func testResolver() staticResolver {
	return staticResolver{
		1:   transferTriggerDescriptor(),
		2:   balanceTriggerDescriptor(),
		100: notifyActionDescriptor(),
		200: conditionActionDescriptor(),
		201: splitActionDescriptor(),
	}
}

func TestEdge_RoundTrip(t *testing.T) {
	source := NewTrigger(transferTriggerDescriptor())
	target := NewAction(notifyActionDescriptor())
	other := NewAction(notifyActionDescriptor())

	edge := NewEdge(source, target, WithLabel("true"), WithValue(1))

	decoded, err := EdgeFromJSON(edge.ToJSON(), []Node{other, target, source})
	require.NoError(t, err)

	assert.Same(t, source, decoded.Source)
	assert.Same(t, target, decoded.Target)
	assert.Equal(t, "true", decoded.Label)
	assert.Equal(t, 1, decoded.Value)
	assert.Empty(t, decoded.ID)
}

func TestEdge_ToJSON(t *testing.T) {
	source := NewTrigger(transferTriggerDescriptor())
	target := NewAction(notifyActionDescriptor())

	raw, err := json.Marshal(NewEdge(source, target).ToJSON())
	require.NoError(t, err)
	assert.JSONEq(t, fmt.Sprintf(`{"id":null,"source":%q,"target":%q}`, source.Ref(), target.Ref()), string(raw))

	raw, err = json.Marshal(NewEdge(source, target, WithEdgeID("e-1"), WithLabel("false")).ToJSON())
	require.NoError(t, err)
	assert.JSONEq(t, fmt.Sprintf(`{"id":"e-1","source":%q,"target":%q,"label":"false"}`, source.Ref(), target.Ref()), string(raw))
}

func TestEdgeFromJSON_UnknownRef(t *testing.T) {
	source := NewTrigger(transferTriggerDescriptor())

	_, err := EdgeFromJSON(EdgeJSON{Source: source.Ref(), Target: "missing"}, []Node{source})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownRef)
	assert.Contains(t, err.Error(), "missing")

	_, err = EdgeFromJSON(EdgeJSON{Source: "missing", Target: source.Ref()}, []Node{source})
	assert.ErrorIs(t, err, ErrUnknownRef)
}

func TestWorkflow_SplitBranches(t *testing.T) {
	trigger := NewTrigger(transferTriggerDescriptor())
	split := NewAction(splitActionDescriptor())
	left := NewAction(notifyActionDescriptor())
	right := NewAction(notifyActionDescriptor())

	w, err := NewWorkflow("split", []Node{trigger, split, left, right}, []*Edge{
		NewEdge(split, left),
		NewEdge(split, right),
	})
	require.NoError(t, err)

	out := w.ToJSON()
	require.Len(t, out.Edges, 2)

	for _, e := range out.Edges {
		assert.Equal(t, split.Ref(), e.Source)
	}

	assert.Len(t, out.Nodes, 4)
	assert.ElementsMatch(t, []Node{left, right}, w.Children(split))
}

func TestWorkflow_ToJSON(t *testing.T) {
	trigger := NewTrigger(transferTriggerDescriptor())
	action := NewAction(notifyActionDescriptor())

	w, err := NewWorkflow("notify", []Node{trigger, action}, []*Edge{NewEdge(trigger, action)},
		WithSettings(NewSubscriptionSettings(time.Hour, 10)))
	require.NoError(t, err)

	raw, err := json.Marshal(w)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "notify", decoded["name"])
	assert.NotContains(t, decoded, "id")
	assert.NotContains(t, decoded, "state")
	assert.Equal(t, map[string]any{"loopingType": "subscription", "timeout": float64(3600000), "limit": float64(10)}, decoded["settings"])

	nodes, ok := decoded["nodes"].([]any)
	require.True(t, ok)
	require.Len(t, nodes, 2)

	first, ok := nodes[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), first["id"])
	assert.Equal(t, "trigger", first["type"])
	assert.Contains(t, first, "position")
}

func TestWorkflow_AddEdgeRequiresMembers(t *testing.T) {
	trigger := NewTrigger(transferTriggerDescriptor())
	stranger := NewAction(notifyActionDescriptor())

	w, err := NewWorkflow("w", []Node{trigger}, nil)
	require.NoError(t, err)

	err = w.AddEdge(NewEdge(trigger, stranger))
	assert.ErrorIs(t, err, ErrNodeNotFound)

	_, err = NewWorkflow("w", []Node{trigger}, []*Edge{NewEdge(trigger, stranger)})
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestWorkflow_SelfLoops(t *testing.T) {
	action := NewAction(notifyActionDescriptor())

	_, err := NewWorkflow("loop", []Node{action}, []*Edge{NewEdge(action, action)})
	assert.ErrorIs(t, err, ErrSelfLoop)

	w, err := NewWorkflow("loop", []Node{action}, []*Edge{NewEdge(action, action)}, AllowSelfLoops())
	require.NoError(t, err)
	assert.Len(t, w.Edges(), 1)
	require.NoError(t, w.Validate())

	// Layout ignores the loop.
	w.PositionNodes()
	_, placed := action.Position()
	assert.True(t, placed)
}

func TestWorkflow_AddNode_Duplicates(t *testing.T) {
	first := NewAction(notifyActionDescriptor())
	w, err := NewWorkflow("w", []Node{first}, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, w.AddNode(first), ErrDuplicateNode)
	assert.ErrorIs(t, w.AddNode(nil), ErrNodeNil)

	second := NewAction(notifyActionDescriptor())
	second.ref = first.Ref()

	require.NoError(t, w.AddNode(second))
	assert.NotEqual(t, first.Ref(), second.Ref())

	got, ok := w.NodeByRef(second.Ref())
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestWorkflow_InsertNodeAfter(t *testing.T) {
	trigger := NewTrigger(transferTriggerDescriptor())
	condition := NewAction(conditionActionDescriptor())
	yes := NewAction(notifyActionDescriptor())
	no := NewAction(notifyActionDescriptor())

	yesEdge := NewEdge(condition, yes, WithLabel("true"), WithValue(true))
	noEdge := NewEdge(condition, no, WithLabel("false"), WithValue(false))

	w, err := NewWorkflow("branches", []Node{trigger, condition, yes, no}, []*Edge{
		NewEdge(trigger, condition),
		yesEdge,
		noEdge,
	})
	require.NoError(t, err)

	before := w.Reachable()

	inserted := NewAction(splitActionDescriptor())
	require.NoError(t, w.InsertNodeAfter(inserted, condition))

	after := w.Reachable()
	delete(after, inserted.Ref())
	assert.Equal(t, before, after)

	assert.Same(t, inserted, yesEdge.Source)
	assert.Same(t, inserted, noEdge.Source)
	assert.Equal(t, "true", yesEdge.Label)
	assert.Equal(t, true, yesEdge.Value)
	assert.Equal(t, "false", noEdge.Label)

	assert.Equal(t, []Node{inserted}, w.Children(condition))
	assert.ElementsMatch(t, []Node{yes, no}, w.Children(inserted))

	var link *Edge

	for _, e := range w.Edges() {
		if e.Source == condition && e.Target == inserted {
			link = e
		}
	}

	require.NotNil(t, link)
	assert.Empty(t, link.Label)
	assert.Nil(t, link.Value)
	assert.Len(t, w.Edges(), 4)
}

func TestWorkflow_InsertNodeAfter_Errors(t *testing.T) {
	trigger := NewTrigger(transferTriggerDescriptor())
	w, err := NewWorkflow("w", []Node{trigger}, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, w.InsertNodeAfter(NewAction(notifyActionDescriptor()), NewAction(notifyActionDescriptor())), ErrNodeNotFound)
	assert.ErrorIs(t, w.InsertNodeAfter(trigger, trigger), ErrDuplicateNode)
}

func TestWorkflow_InsertNodeBetween(t *testing.T) {
	trigger := NewTrigger(transferTriggerDescriptor())
	condition := NewAction(conditionActionDescriptor())
	yes := NewAction(notifyActionDescriptor())
	no := NewAction(notifyActionDescriptor())

	yesEdge := NewEdge(condition, yes, WithLabel("true"))
	noEdge := NewEdge(condition, no, WithLabel("false"))

	w, err := NewWorkflow("between", []Node{trigger, condition, yes, no}, []*Edge{
		NewEdge(trigger, condition), yesEdge, noEdge,
	})
	require.NoError(t, err)

	delay := NewAction(splitActionDescriptor())
	require.NoError(t, w.InsertNodeBetween(delay, condition, yes))

	assert.Same(t, delay, yesEdge.Source)
	assert.Equal(t, "true", yesEdge.Label)
	assert.Same(t, condition, noEdge.Source)
	assert.ElementsMatch(t, []Node{delay, no}, w.Children(condition))
	assert.Equal(t, []Node{yes}, w.Children(delay))

	err = w.InsertNodeBetween(NewAction(splitActionDescriptor()), trigger, yes)
	assert.ErrorIs(t, err, ErrEdgeNotFound)
}

func TestWorkflow_DeleteNode(t *testing.T) {
	trigger := NewTrigger(transferTriggerDescriptor())
	middle := NewAction(splitActionDescriptor())
	left := NewAction(notifyActionDescriptor())
	right := NewAction(notifyActionDescriptor())

	w, err := NewWorkflow("delete", []Node{trigger, middle, left, right}, []*Edge{
		NewEdge(trigger, middle),
		NewEdge(middle, left, WithLabel("a")),
		NewEdge(middle, right, WithLabel("b")),
	})
	require.NoError(t, err)

	require.NoError(t, w.DeleteNode(middle))

	assert.Len(t, w.Nodes(), 3)
	_, ok := w.NodeByRef(middle.Ref())
	assert.False(t, ok)

	edges := w.Edges()
	require.Len(t, edges, 2)

	labels := map[Node]string{}
	for _, e := range edges {
		assert.Same(t, trigger, e.Source)
		labels[e.Target] = e.Label
	}

	assert.Equal(t, "a", labels[left])
	assert.Equal(t, "b", labels[right])

	assert.ErrorIs(t, w.DeleteNode(middle), ErrNodeNotFound)
}

func TestWorkflow_DeleteNode_MultipleParents(t *testing.T) {
	first := NewTrigger(transferTriggerDescriptor())
	second := NewTrigger(transferTriggerDescriptor())
	merge := NewAction(splitActionDescriptor())
	tail := NewAction(notifyActionDescriptor())

	w, err := NewWorkflow("merge", []Node{first, second, merge, tail}, []*Edge{
		NewEdge(first, merge), NewEdge(second, merge), NewEdge(merge, tail),
	})
	require.NoError(t, err)

	require.NoError(t, w.DeleteNode(merge))
	assert.Empty(t, w.Edges())
}

func TestWorkflow_RemoveEdge(t *testing.T) {
	trigger := NewTrigger(transferTriggerDescriptor())
	action := NewAction(notifyActionDescriptor())
	edge := NewEdge(trigger, action)

	w, err := NewWorkflow("w", []Node{trigger, action}, []*Edge{edge})
	require.NoError(t, err)

	assert.ErrorIs(t, w.AddEdge(edge), ErrDuplicateEdge)
	require.NoError(t, w.RemoveEdge(edge))
	assert.Empty(t, w.Edges())
	assert.ErrorIs(t, w.RemoveEdge(edge), ErrEdgeNotFound)
}

func TestWorkflow_Validate(t *testing.T) {
	w, err := NewWorkflow("  ", nil, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, w.Validate(), ErrWorkflowNameRequired)

	w.Name = "ok"
	require.NoError(t, w.Validate())

	assert.Error(t, w.SetSettings(&Settings{LoopingType: "forever"}))
	assert.Nil(t, w.Settings())
	require.NoError(t, w.SetSettings(NewPollingSettings(time.Minute, 5)))
}

func TestWorkflowFromJSON(t *testing.T) {
	raw := `{
		"id": "wf-1",
		"name": "loaded",
		"state": "active",
		"nodes": [
			{"id": 1, "ref": "1", "type": "trigger", "parameters": {"chainId": 8453, "unknown": true}, "position": {"x": 10, "y": 20}},
			{"id": 100, "ref": "2", "type": "action", "parameters": {"webhook": "https://example.com/hook", "message": null}}
		],
		"edges": [{"id": "edge-1", "source": "1", "target": "2", "label": "go"}],
		"settings": {"loopingType": "polling", "period": 60000, "limit": 3}
	}`

	var data WorkflowJSON
	require.NoError(t, json.Unmarshal([]byte(raw), &data))

	w, err := WorkflowFromJSON(data, testResolver())
	require.NoError(t, err)

	assert.Equal(t, "wf-1", w.ID)
	assert.Equal(t, "active", w.State())
	assert.Equal(t, int64(60000), w.Settings().Period)

	nodes := w.Nodes()
	require.Len(t, nodes, 2)

	trigger, ok := nodes[0].(*Trigger)
	require.True(t, ok)
	assert.Equal(t, "1", trigger.Ref())
	assert.Equal(t, float64(8453), trigger.Parameters()["chainId"])
	assert.NotContains(t, trigger.Parameters(), "unknown")

	pos, placed := trigger.Position()
	require.True(t, placed)
	assert.Equal(t, Position{X: 10, Y: 20}, pos)

	edges := w.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "edge-1", edges[0].ID)
	assert.Same(t, nodes[1], edges[0].Target)
	assert.Equal(t, "go", edges[0].Label)
}

func TestWorkflowFromJSON_ValidateParameters(t *testing.T) {
	build := func(params map[string]any) WorkflowJSON {
		return WorkflowJSON{
			Name:  "local",
			Nodes: []NodeJSON{{ID: 100, Ref: "a", Type: CategoryTypeAction, Parameters: params}},
		}
	}

	testCases := []struct {
		name    string
		params  map[string]any
		wantErr error
	}{
		{"valid values", map[string]any{"webhook": "https://example.com/hook", "to": "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"}, nil},
		{"unset values are null", map[string]any{"webhook": "https://example.com/hook", "message": nil}, nil},
		{"invalid address", map[string]any{"to": "not-an-address"}, ErrInvalidType},
		{"unknown key", map[string]any{"unknown": true}, ErrParameterNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w, err := WorkflowFromJSON(build(tc.params), testResolver(), ValidateParameters())
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)

				var paramErr *ParameterError
				require.ErrorAs(t, err, &paramErr)
				assert.Equal(t, "WorkflowFromJSON", paramErr.Op)

				return
			}

			require.NoError(t, err)
			assert.Len(t, w.Nodes(), 1)
		})
	}

	// Without the option API responses are restored as sent.
	w, err := WorkflowFromJSON(build(map[string]any{"to": "not-an-address"}), testResolver())
	require.NoError(t, err)
	assert.Equal(t, "not-an-address", w.Nodes()[0].Parameters()["to"])
}

func TestWorkflowFromJSON_Errors(t *testing.T) {
	_, err := WorkflowFromJSON(WorkflowJSON{
		Name:  "broken",
		Nodes: []NodeJSON{{ID: 1, Ref: "a", Type: CategoryTypeTrigger}},
		Edges: []EdgeJSON{{Source: "a", Target: "b"}},
	}, testResolver())
	assert.ErrorIs(t, err, ErrUnknownRef)

	_, err = WorkflowFromJSON(WorkflowJSON{
		Name:  "unknown",
		Nodes: []NodeJSON{{ID: 999, Ref: "a", Type: CategoryTypeAction}},
	}, testResolver())
	require.Error(t, err)

	var graphErr *GraphError
	assert.False(t, errors.As(err, &graphErr))
}
