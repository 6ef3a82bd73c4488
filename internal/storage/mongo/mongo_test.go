package mongo

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-site/internal/models"
	"wedding-site/internal/storage"
)

func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	addr := os.Getenv("MONGODB_ADDR")
	if addr == "" {
		t.Skip("MONGODB_ADDR not set")
	}

	b := make([]byte, 4)
	_, err := rand.Read(b)
	require.NoError(t, err)
	db := "test-" + hex.EncodeToString(b)

	ctx := context.Background()
	s, err := New(ctx, "mongodb://"+addr, db, "", "")
	require.NoError(t, err)
	defer func() {
		_ = s.collection.Database().Drop(ctx)
		_ = s.Close()
	}()

	_, err = s.Read(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Write(ctx, &models.Configuration{BrideName: "Anna"}))
	require.NoError(t, s.Append(ctx, models.FieldGuestbook, models.GuestbookMessage{ID: "m", Name: "X", Message: "hi", Reactions: map[string]int{"❤️": 2}}))
	require.NoError(t, s.Patch(ctx, models.Patch{models.FieldSyncID: "5"}))

	doc, err := s.Read(ctx)
	require.NoError(t, err)
	cfg, err := doc.Decode()
	require.NoError(t, err)
	assert.Equal(t, "Anna", cfg.BrideName)
	assert.Equal(t, "5", cfg.SyncID)
	require.Len(t, cfg.Guestbook, 1)
	assert.Equal(t, 2, cfg.Guestbook[0].Reactions["❤️"])
}

func TestNormalizeUsesJSONNames(t *testing.T) {
	v, err := normalize(models.GuestEntry{Name: "Jane", Guests: "1", ExtraGuestNames: []string{}})
	require.NoError(t, err)
	m, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Jane", m["name"])
	assert.Equal(t, "1", m["guests"])
}

func TestPlainKeepsClearedFields(t *testing.T) {
	doc, err := models.DocumentOf(&models.Configuration{Colors: []string{}})
	require.NoError(t, err)

	fields, err := plain(doc)
	require.NoError(t, err)
	assert.Equal(t, []any{}, fields["colors"])
	assert.Equal(t, []any{}, fields["sectionOrder"])
	assert.Equal(t, "", fields["theme"])
}
