// ABOUTME: Tests for application wiring
// ABOUTME: Covers degraded startup and state publishing
package cli

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/backhaul/bridge"
	"github.com/harperreed/backhaul/config"
	"github.com/harperreed/backhaul/models"
	"github.com/harperreed/backhaul/state"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.SnapshotPath = filepath.Join(dir, "synthetic.json")
	cfg.JournalDir = filepath.Join(dir, "journal")
	cfg.ClientCount = 5
	return cfg
}

func TestNewAppSyntheticOnly(t *testing.T) {
	app, err := NewApp(testConfig(t), nil)
	require.NoError(t, err)
	defer app.Close()

	env := app.Router.ListClients(context.Background())
	require.True(t, env.Success)
	assert.Equal(t, bridge.ModeSynthetic, env.Mode)
	assert.Len(t, env.Data.([]models.Client), 5)
}

func TestNewAppJournalRecordsOperations(t *testing.T) {
	app, err := NewApp(testConfig(t), nil)
	require.NoError(t, err)
	defer app.Close()

	require.NotNil(t, app.Journal)
	app.Router.ListClients(context.Background())

	entries, err := app.Journal.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, bridge.OpListClients, entries[0].Op)
	assert.True(t, entries[0].Success)
}

func TestNewAppJournalDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.JournalDir = ""

	app, err := NewApp(cfg, nil)
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.Journal)
	env := app.Router.ListClients(context.Background())
	assert.True(t, env.Success)
}

func TestNewAppBadBackendDegrades(t *testing.T) {
	cfg := testConfig(t)
	cfg.BackendAddr = "://not a host"

	app, err := NewApp(cfg, nil)
	require.NoError(t, err)
	defer app.Close()

	env := app.Router.ListClients(context.Background())
	require.True(t, env.Success)
	assert.Equal(t, bridge.ModeSynthetic, env.Mode)
}

func TestPublishFeedsState(t *testing.T) {
	app, err := NewApp(testConfig(t), nil)
	require.NoError(t, err)
	defer app.Close()

	var seen []state.Event
	app.State.Subscribe(bridge.OpListClients, "test", false, func(ev state.Event) {
		seen = append(seen, ev)
	})

	env := app.Router.ListClients(context.Background())
	require.True(t, env.Success)

	assert.True(t, app.Publish(bridge.OpListClients, env))
	assert.False(t, app.Publish(bridge.OpListClients, env), "identical data should dedup")

	require.Len(t, seen, 1)
	assert.Equal(t, string(bridge.ModeSynthetic), seen[0].Source)
}

func TestPublishRejectsFailedEnvelope(t *testing.T) {
	app, err := NewApp(testConfig(t), nil)
	require.NoError(t, err)
	defer app.Close()

	env := bridge.Envelope{Success: false, Error: "boom", Mode: bridge.ModeLive, Timestamp: float64(time.Now().Unix())}
	assert.False(t, app.Publish("some_key", env))
	assert.Zero(t, app.State.Version("some_key"))
}
