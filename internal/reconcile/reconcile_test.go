package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-site/internal/models"
)

func localWithUnsavedStory() *models.Configuration {
	cfg := models.DefaultConfiguration()
	cfg.BrideName = "Anna"
	cfg.Story = []models.StoryEntry{{Title: "How we met", Text: "half-typed sentence"}}
	cfg.GuestList = []models.GuestEntry{{Name: "Old", Guests: "1", Attending: models.AttendingYes, Timestamp: "a"}}
	return cfg
}

func remoteSnapshot(t *testing.T, cfg *models.Configuration) models.Snapshot {
	t.Helper()
	snap, err := models.DocumentSnapshot(cfg)
	require.NoError(t, err)
	return snap
}

func withoutGuestList(t *testing.T, cfg *models.Configuration) models.Document {
	t.Helper()
	doc, err := models.DocumentOf(cfg)
	require.NoError(t, err)
	delete(doc, models.FieldGuestList)
	return doc
}

func TestReconcile_FirstSnapshotIsFullMergeEvenWhenPrivileged(t *testing.T) {
	subset := models.Snapshot{Kind: models.SnapshotDocument, Document: models.Document{
		"groomName": json.RawMessage(`"Ben"`),
	}}

	for _, privileged := range []bool{false, true} {
		res, err := Reconcile(Input{
			Local:      localWithUnsavedStory(),
			Defaults:   models.DefaultConfiguration(),
			Snapshot:   subset,
			Privileged: privileged,
		})
		require.NoError(t, err)
		assert.Equal(t, FullMerge, res.Mode)
		assert.True(t, res.HasEverSynced)

		want := models.DefaultConfiguration()
		want.GroomName = "Ben"
		assert.Equal(t, docOf(t, want), docOf(t, res.Config))
	}
}

func TestReconcile_NotPrivilegedAlwaysFullMerge(t *testing.T) {
	remote := models.DefaultConfiguration()
	remote.BrideName = "Remote Anna"

	res, err := Reconcile(Input{
		Local:         localWithUnsavedStory(),
		Defaults:      models.DefaultConfiguration(),
		Snapshot:      remoteSnapshot(t, remote),
		HasEverSynced: true,
	})
	require.NoError(t, err)
	assert.Equal(t, FullMerge, res.Mode)
	assert.Equal(t, "Remote Anna", res.Config.BrideName)
	assert.Empty(t, res.Config.Story)
}

func TestReconcile_PartialMergeOnlyTouchesGuestList(t *testing.T) {
	local := localWithUnsavedStory()
	before := withoutGuestList(t, local)

	remote := models.DefaultConfiguration()
	remote.BrideName = "Someone Else"
	remote.Story = []models.StoryEntry{{Title: "Remote story", Text: "overwritten?"}}
	remote.SyncID = "123"
	remote.GuestList = []models.GuestEntry{
		{Name: "Old", Guests: "1", Attending: models.AttendingYes, Timestamp: "a"},
		{Name: "Jane Doe", Guests: "1", Attending: models.AttendingYes, Timestamp: "b"},
	}

	res, err := Reconcile(Input{
		Local:         local,
		Defaults:      models.DefaultConfiguration(),
		Snapshot:      remoteSnapshot(t, remote),
		HasEverSynced: true,
		Privileged:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, PartialMerge, res.Mode)
	assert.Equal(t, remote.GuestList, res.Config.GuestList)

	after := withoutGuestList(t, res.Config)
	assert.Equal(t, before, after)
	for field, raw := range before {
		assert.Equal(t, string(raw), string(after[field]), field)
	}

	// The input local state is left alone.
	assert.Len(t, local.GuestList, 1)
}

func TestReconcile_NotFound(t *testing.T) {
	local := localWithUnsavedStory()
	snap := models.Snapshot{Kind: models.SnapshotNotFound}

	res, err := Reconcile(Input{Local: local, Defaults: models.DefaultConfiguration(), Snapshot: snap})
	require.NoError(t, err)
	assert.Equal(t, FullMerge, res.Mode)
	assert.True(t, res.HasEverSynced)
	assert.Equal(t, docOf(t, models.DefaultConfiguration()), docOf(t, res.Config))

	res, err = Reconcile(Input{Local: local, Defaults: models.DefaultConfiguration(), Snapshot: snap, HasEverSynced: true})
	require.NoError(t, err)
	assert.Equal(t, Unchanged, res.Mode)
	assert.Same(t, local, res.Config)
}

func TestReconcile_Errors(t *testing.T) {
	local := localWithUnsavedStory()

	res, err := Reconcile(Input{Local: local, Defaults: models.DefaultConfiguration(),
		Snapshot: models.ErrorSnapshot(models.ReasonPermissionDenied, "rules")})
	require.NoError(t, err)
	assert.True(t, res.PermissionDenied)
	assert.Equal(t, Unchanged, res.Mode)
	assert.False(t, res.HasEverSynced)
	assert.Same(t, local, res.Config)

	res, err = Reconcile(Input{Local: local, Defaults: models.DefaultConfiguration(),
		Snapshot: models.ErrorSnapshot(models.ReasonUnavailable, "offline")})
	require.NoError(t, err)
	assert.False(t, res.PermissionDenied)
	assert.Error(t, res.Err)
	assert.Equal(t, Unchanged, res.Mode)
}

func TestReconcile_NoData(t *testing.T) {
	local := localWithUnsavedStory()
	res, err := Reconcile(Input{Local: local, Defaults: models.DefaultConfiguration(), Snapshot: models.Snapshot{}})
	require.NoError(t, err)
	assert.Equal(t, Unchanged, res.Mode)
	assert.Same(t, local, res.Config)
}

func docOf(t *testing.T, cfg *models.Configuration) models.Document {
	t.Helper()
	doc, err := models.DocumentOf(cfg)
	require.NoError(t, err)
	return doc
}
