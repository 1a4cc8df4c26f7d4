package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/otomato/pkg/client"
	"github.com/dukex/otomato/pkg/models"
	"github.com/dukex/otomato/pkg/registry"
	"github.com/dukex/otomato/pkg/web"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wallet = "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB"

type harness struct {
	t   *testing.T
	api *web.API
	app *fiber.App
	dir string
}

func newHarness(t *testing.T, opts ...web.Option) *harness {
	t.Helper()

	reg, err := registry.Default(slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	api := web.NewAPI(slog.New(slog.DiscardHandler), reg, opts...)

	return &harness{t: t, api: api, app: api.App(), dir: t.TempDir()}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()

	var out bytes.Buffer

	root := rootCommand(web.Transport{App: h.app})
	root.Writer = &out
	root.ErrWriter = io.Discard

	base := []string{"otomato", "--api-url", "http://api.test", "--database-url", "file://" + h.dir, "--log-level", "error"}
	err := root.Run(h.t.Context(), append(base, args...))

	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()

	out, err := h.run(args...)
	require.NoError(h.t, err, out)

	return out
}

// workflowFile writes a trigger to slack workflow and returns its path.
func (h *harness) workflowFile() string {
	h.t.Helper()

	reg, err := registry.Default(slog.New(slog.DiscardHandler))
	require.NoError(h.t, err)

	trigger, err := reg.NewTrigger(1)
	require.NoError(h.t, err)
	require.NoError(h.t, trigger.SetChainID(8453))
	require.NoError(h.t, trigger.SetContractAddress(wallet))

	action, err := reg.NewAction(100)
	require.NoError(h.t, err)
	require.NoError(h.t, action.SetParams("webhook", "https://hooks.slack.com/services/x"))
	require.NoError(h.t, action.SetParams("message", "transfer seen"))

	w, err := models.NewWorkflow("transfer to slack",
		[]models.Node{trigger, action},
		[]*models.Edge{models.NewEdge(trigger, action)},
	)
	require.NoError(h.t, err)

	data, err := json.Marshal(w.ToJSON())
	require.NoError(h.t, err)

	path := filepath.Join(h.t.TempDir(), "workflow.json")
	require.NoError(h.t, os.WriteFile(path, data, 0600))

	return path
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)

	return v
}

func TestCatalog(t *testing.T) {
	h := newHarness(t)

	triggers := decode[[]models.Descriptor](t, h.mustRun("catalog", "triggers", "--json"))
	assert.NotEmpty(t, triggers)

	for _, d := range triggers {
		assert.Equal(t, models.CategoryTypeTrigger, d.Category)
	}

	table := h.mustRun("catalog", "actions")
	assert.Contains(t, table, "ID")
	assert.Contains(t, table, "PARAMETERS")
	assert.Contains(t, table, "webhook:")
	assert.Regexp(t, `(?m)^100\s+Slack message\s+-\s+webhook:url`, table)

	triggerTable := h.mustRun("catalog", "triggers")
	assert.Regexp(t, `(?m)^1\s+ERC20 transfer\s+subscription\s`, triggerTable)
	assert.Regexp(t, `(?m)\s+polling\s+`, triggerTable)
	assert.NotContains(t, triggerTable, "\x00")
	assert.NotContains(t, triggerTable, "\x01")
}

func TestWorkflow_CreateRejectsInvalidParameters(t *testing.T) {
	h := newHarness(t)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"name": "bad",
		"nodes": [{"id": 100, "ref": "1", "type": "action", "parameters": {"webhook": "not a url"}}],
		"edges": []
	}`), 0600))

	_, err := h.run("workflow", "create", path)
	require.ErrorIs(t, err, models.ErrInvalidType)

	_, total := h.api.Store().List(0, 10, "")
	assert.Zero(t, total, "nothing reaches the API")
}

func TestWorkflow_Lifecycle(t *testing.T) {
	h := newHarness(t)

	created := decode[models.WorkflowJSON](t, h.mustRun("workflow", "create", h.workflowFile()))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, models.WorkflowStateCreated, created.State)
	require.Len(t, created.Edges, 1)
	assert.NotNil(t, created.Edges[0].ID)

	fetched := decode[models.WorkflowJSON](t, h.mustRun("workflow", "get", created.ID))
	assert.Equal(t, "transfer to slack", fetched.Name)
	assert.Len(t, fetched.Nodes, 2)

	state := decode[map[string]string](t, h.mustRun("workflow", "run", created.ID))
	assert.Equal(t, models.WorkflowStateActive, state["state"])

	page := decode[client.WorkflowPage](t, h.mustRun("workflow", "list", "--state", models.WorkflowStateActive))
	assert.Equal(t, 1, page.Total)

	state = decode[map[string]string](t, h.mustRun("workflow", "stop", created.ID))
	assert.Equal(t, models.WorkflowStateInactive, state["state"])

	permissions := h.mustRun("workflow", "permissions", created.ID)
	assert.Contains(t, permissions, wallet)

	h.mustRun("edge", "delete", *created.Edges[0].ID)

	fetched = decode[models.WorkflowJSON](t, h.mustRun("workflow", "get", created.ID))
	assert.Empty(t, fetched.Edges)

	h.mustRun("workflow", "delete", created.ID)

	_, err := h.run("workflow", "get", created.ID)
	assert.True(t, client.IsNotFound(err), "got %v", err)
}

func TestWorkflow_MissingID(t *testing.T) {
	h := newHarness(t)

	for _, sub := range []string{"get", "run", "stop", "delete", "permissions"} {
		t.Run(sub, func(t *testing.T) {
			_, err := h.run("workflow", sub)
			assert.ErrorIs(t, err, errMissingID)
		})
	}
}

func TestDraft_SavePush(t *testing.T) {
	h := newHarness(t)

	draft := decode[models.Draft](t, h.mustRun("draft", "save", h.workflowFile()))
	require.NotEmpty(t, draft.ID)
	assert.Equal(t, "transfer to slack", draft.Name)

	drafts := decode[[]models.Draft](t, h.mustRun("draft", "list"))
	require.Len(t, drafts, 1)

	got := decode[models.Draft](t, h.mustRun("draft", "get", draft.ID))
	assert.Equal(t, draft.ID, got.ID)

	pushed := decode[models.WorkflowJSON](t, h.mustRun("draft", "push", draft.ID))
	assert.NotEmpty(t, pushed.ID)

	_, total := h.api.Store().List(0, 10, "")
	assert.Equal(t, 1, total)

	drafts = decode[[]models.Draft](t, h.mustRun("draft", "list"))
	assert.Empty(t, drafts)
}

func TestAuth_SavedTokenIsUsed(t *testing.T) {
	h := newHarness(t, web.WithAuthRequired())

	_, err := h.run("workflow", "list")
	require.True(t, client.IsUnauthorized(err), "got %v", err)

	payload := h.mustRun("auth", "payload", "--address", wallet)

	payloadFile := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(payloadFile, []byte(payload), 0600))

	h.mustRun("auth", "token", "--payload", payloadFile, "--signature", "0xsigned")

	page := decode[client.WorkflowPage](t, h.mustRun("workflow", "list"))
	assert.Equal(t, 0, page.Total)

	verified := decode[client.VerifyTokenResponse](t, h.mustRun("auth", "verify"))
	assert.True(t, verified.Valid)
	assert.Equal(t, wallet, verified.Address)

	h.mustRun("auth", "logout")

	_, err = h.run("workflow", "list")
	assert.True(t, client.IsUnauthorized(err), "got %v", err)
}

func TestEvents_WatchRequiresBus(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("events", "watch")
	assert.ErrorIs(t, err, errNoEventBus)
}
