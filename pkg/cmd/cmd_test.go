package cmd

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/otomato/pkg/channels/kafka"
	"github.com/dukex/otomato/pkg/models"
	"github.com/dukex/otomato/pkg/persistence/file"
	"github.com/dukex/otomato/pkg/persistence/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePersistenceProvider(t *testing.T) {
	testCases := []struct {
		url      string
		expected string
		wantErr  bool
	}{
		{"/tmp/otomato", "file", false},
		{"file:///tmp/otomato", "file", false},
		{"postgres://u:p@localhost/db", "postgres", false},
		{"postgresql://localhost/db", "postgresql", false},
		{"redis://localhost:6379/0", "redis", false},
		{"sqlite://./otomato.db", "sqlite", false},
		{"mongodb://localhost", "mongodb", false},
		{"cassandra://localhost", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			provider, err := parsePersistenceProvider(tc.url)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedPersistence)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, provider)
		})
	}
}

func TestNewPersistence_File(t *testing.T) {
	dir := t.TempDir()

	p, err := NewPersistence(t.Context(), slog.New(slog.DiscardHandler), "file://"+dir)
	require.NoError(t, err)
	assert.IsType(t, &file.Persistence{}, p)
	assert.NoError(t, p.HealthCheck(t.Context()))
}

func TestNewPersistence_SQLite(t *testing.T) {
	p, err := NewPersistence(t.Context(), slog.New(slog.DiscardHandler), "sqlite://"+filepath.Join(t.TempDir(), "otomato.db"))
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Persistence{}, p)
	assert.NoError(t, p.HealthCheck(t.Context()))
	assert.NoError(t, p.Close(t.Context()))
}

func TestNewEventBus(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	bus, err := NewEventBus("", "", logger)
	require.NoError(t, err)
	assert.Nil(t, bus)

	bus, err = NewEventBus("gochannel", "", logger)
	require.NoError(t, err)
	require.NotNil(t, bus)
	assert.NoError(t, bus.Close())

	_, err = NewEventBus("kafka", "", logger)
	assert.ErrorIs(t, err, kafka.ErrNoBrokers)

	_, err = NewEventBus("nats", "", logger)
	assert.ErrorIs(t, err, ErrUnsupportedEventBus)
}

func TestNewRegistry(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	reg, err := NewRegistry(logger, "")
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Triggers())

	extra := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(extra, []byte(`{
		"triggers": [],
		"actions": [{"id": 900, "name": "Discord message", "parameters": [{"key": "webhook", "type": "url"}]}]
	}`), 0600))

	reg, err = NewRegistry(logger, extra)
	require.NoError(t, err)

	d, err := reg.Descriptor(models.CategoryTypeAction, 900)
	require.NoError(t, err)
	assert.Equal(t, "Discord message", d.Name)

	_, err = NewRegistry(logger, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestNewClient(t *testing.T) {
	c := NewClient("http://api.test/", "token", &http.Client{Timeout: time.Second}, slog.New(slog.DiscardHandler))
	assert.Equal(t, "http://api.test", c.BaseURL())
}
