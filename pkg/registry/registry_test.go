package registry

import (
	"log/slog"
	"testing"

	"github.com/dukex/otomato/pkg/models"
	"github.com/dukex/otomato/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestDefault_LoadsBuiltinCatalog(t *testing.T) {
	r, err := Default(testLogger())
	require.NoError(t, err)

	triggers := r.Triggers()
	actions := r.Actions()

	require.NotEmpty(t, triggers)
	require.NotEmpty(t, actions)

	for i := 1; i < len(actions); i++ {
		assert.Less(t, actions[i-1].ID, actions[i].ID)
	}

	for _, d := range triggers {
		assert.Equal(t, models.CategoryTypeTrigger, d.Category)
	}

	for _, d := range actions {
		assert.Equal(t, models.CategoryTypeAction, d.Category)
	}
}

func TestRegistry_NewNodes(t *testing.T) {
	r, err := Default(testLogger())
	require.NoError(t, err)

	balance, err := r.NewTrigger(2)
	require.NoError(t, err)
	assert.True(t, balance.IsPolling())
	require.NoError(t, balance.SetCondition(">="))

	slack, err := r.NewAction(100)
	require.NoError(t, err)
	assert.Equal(t, "Slack message", slack.Name())
	require.NoError(t, slack.SetParams("webhook", "https://hooks.slack.com/services/T/B/X"))

	_, err = r.NewTrigger(100)
	assert.ErrorIs(t, err, ErrDescriptorNotFound)

	_, err = r.NewAction(999)
	assert.ErrorIs(t, err, ErrDescriptorNotFound)
}

func TestRegistry_DescriptorReturnsCopy(t *testing.T) {
	r, err := Default(testLogger())
	require.NoError(t, err)

	d, err := r.Descriptor(models.CategoryTypeAction, 100)
	require.NoError(t, err)

	d.Parameters[0].Key = "changed"

	again, err := r.Descriptor(models.CategoryTypeAction, 100)
	require.NoError(t, err)
	assert.Equal(t, "webhook", again.Parameters[0].Key)
}

func TestRegistry_FindByName(t *testing.T) {
	r, err := Default(testLogger())
	require.NoError(t, err)

	d, err := r.FindByName(models.CategoryTypeAction, "split")
	require.NoError(t, err)
	assert.Equal(t, 201, d.ID)

	_, err = r.FindByName(models.CategoryTypeTrigger, "split")
	assert.ErrorIs(t, err, ErrDescriptorNotFound)
}

func TestRegistry_Load(t *testing.T) {
	testCases := []struct {
		name    string
		catalog string
		err     error
	}{
		{
			name:    "valid",
			catalog: `{"triggers":[{"id":1,"name":"t","parameters":[{"key":"chainId","type":"int256"}]}],"actions":[]}`,
		},
		{
			name:    "missing actions",
			catalog: `{"triggers":[]}`,
			err:     ErrInvalidCatalog,
		},
		{
			name:    "bad trigger type",
			catalog: `{"triggers":[{"id":1,"name":"t","type":7,"parameters":[]}],"actions":[]}`,
			err:     ErrInvalidCatalog,
		},
		{
			name:    "unknown parameter type",
			catalog: `{"triggers":[],"actions":[{"id":1,"name":"a","parameters":[{"key":"x","type":"int7"}]}]}`,
			err:     ErrUnknownParamType,
		},
		{
			name:    "duplicate id",
			catalog: `{"triggers":[],"actions":[{"id":1,"name":"a","parameters":[]},{"id":1,"name":"b","parameters":[]}]}`,
			err:     ErrDuplicateID,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := NewRegistry(testLogger()).Load([]byte(tc.catalog))
			if tc.err == nil {
				assert.NoError(t, err)

				return
			}

			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry(testLogger())

	err := r.Register(models.Descriptor{ID: 5, Name: "custom", Category: models.CategoryTypeAction, Parameters: []models.Parameter{
		{Key: "amount", Type: validation.TypeUint256},
	}})
	require.NoError(t, err)

	err = r.Register(models.Descriptor{ID: 0, Name: "bad", Category: models.CategoryTypeAction})
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	// Same id in the other category is fine.
	require.NoError(t, r.Register(models.Descriptor{ID: 5, Name: "trigger", Category: models.CategoryTypeTrigger}))
}

func TestBuiltinCatalog_ParameterTypesAreKnown(t *testing.T) {
	r, err := Default(testLogger())
	require.NoError(t, err)

	for _, d := range append(r.Triggers(), r.Actions()...) {
		for _, p := range d.Parameters {
			assert.True(t, p.Type.Known(), "%s.%s", d.Name, p.Key)
		}
	}
}
