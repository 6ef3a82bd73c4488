package client

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-site/internal/broadcast"
	"wedding-site/internal/guests"
	"wedding-site/internal/media"
	"wedding-site/internal/models"
	"wedding-site/internal/reconcile"
	"wedding-site/internal/storage"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

var fixedNow = time.Date(2026, 6, 20, 15, 4, 5, 0, time.UTC)

type flag struct{ open atomic.Bool }

func (f *flag) IsOpen() bool { return f.open.Load() }

func admin() *flag {
	f := &flag{}
	f.open.Store(true)
	return f
}

func seededHub(t *testing.T) *storage.Hub {
	t.Helper()
	hub := storage.NewHub(storage.NewMemoryStore(), zerolog.Nop())
	_, err := hub.SeedIfMissing(context.Background(), models.SeededConfiguration(models.Seed{BrideName: "Anna", GroomName: "Ben"}))
	require.NoError(t, err)
	t.Cleanup(func() { hub.Close() })
	return hub
}

func run(t *testing.T, c *Client) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, func() bool { return c.State().HasEverSynced }, waitFor, tick)
}

func hasGuest(cfg *models.Configuration, name string) bool {
	for _, g := range cfg.GuestList {
		if g.Name == name {
			return true
		}
	}
	return false
}

func TestAdminEditsSurviveVisitorRSVP(t *testing.T) {
	hub := seededHub(t)
	adminClient := New(hub, WithPrivilege(admin()))
	visitor := New(hub)
	run(t, adminClient)
	run(t, visitor)

	story := []models.StoryEntry{{Title: "How we met", Text: "unsaved draft"}}
	require.NoError(t, adminClient.Edit(func(cfg *models.Configuration) {
		cfg.Story = story
		cfg.Hashtag = "#AnnaAndBen"
	}))

	_, err := visitor.SubmitRSVP(context.Background(), guests.Form{Name: "Jane Doe", Guests: 1, Attending: models.AttendingYes})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hasGuest(adminClient.Config(), "Jane Doe") }, waitFor, tick)
	cfg := adminClient.Config()
	assert.Equal(t, story, cfg.Story)
	assert.Equal(t, "#AnnaAndBen", cfg.Hashtag)
	assert.Equal(t, "Anna", cfg.BrideName)

	// The draft never reached the shared document.
	doc, err := hub.Read(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(doc["story"]))
}

func TestSavedEmptyFieldsStayEmpty(t *testing.T) {
	ctx := context.Background()
	hub := seededHub(t)
	adminClient := New(hub, WithPrivilege(admin()))
	run(t, adminClient)

	require.NoError(t, adminClient.Edit(func(cfg *models.Configuration) {
		cfg.Colors = []string{}
		cfg.Theme = ""
		cfg.SectionOrder = []string{}
	}))
	require.NoError(t, adminClient.Save(ctx))

	visitor := New(hub)
	run(t, visitor)
	cfg := visitor.Config()
	assert.Equal(t, "Anna", cfg.BrideName)
	assert.Empty(t, cfg.Colors)
	assert.Empty(t, cfg.Theme)
	assert.Empty(t, cfg.SectionOrder)
}

func TestVisitorTakesFullMerges(t *testing.T) {
	hub := seededHub(t)
	adminClient := New(hub, WithPrivilege(admin()))
	visitor := New(hub)
	run(t, adminClient)
	run(t, visitor)

	require.NoError(t, adminClient.Edit(func(cfg *models.Configuration) { cfg.Location = "Lisbon" }))
	require.NoError(t, adminClient.Save(context.Background()))

	require.Eventually(t, func() bool { return visitor.Config().Location == "Lisbon" }, waitFor, tick)
	assert.NotEmpty(t, visitor.Config().LastSaved)
}

func TestBroadcastReloadsEachViewerOnce(t *testing.T) {
	hub := seededHub(t)

	var adminReloads, visitorReloads atomic.Int32
	adminClient := New(hub,
		WithPrivilege(admin()),
		WithClock(func() time.Time { return fixedNow }),
		WithScheduler(func(time.Duration, func()) { adminReloads.Add(1) }),
	)

	tokens := &broadcast.MemoryTokenStore{}
	require.NoError(t, tokens.Store("1000"))
	visitor := New(hub,
		WithTokenStore(tokens),
		WithScheduler(func(_ time.Duration, f func()) {
			visitorReloads.Add(1)
			f()
		}),
	)
	run(t, adminClient)
	run(t, visitor)

	token, err := adminClient.Broadcast(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, "1000", token)

	require.Eventually(t, func() bool {
		last, _ := tokens.Load()
		return last == token && visitor.Config().SyncID == token
	}, waitFor, tick)
	assert.Never(t, func() bool { return visitorReloads.Load() > 1 }, 100*time.Millisecond, tick)
	assert.EqualValues(t, 1, visitorReloads.Load())
	assert.Zero(t, adminReloads.Load())
}

func TestSubmitRSVP_ValidationLeavesStateAlone(t *testing.T) {
	hub := seededHub(t)
	c := New(hub)

	_, err := c.SubmitRSVP(context.Background(), guests.Form{Name: " "})
	assert.ErrorIs(t, err, guests.ErrValidation)

	_, err = c.SubmitRSVP(context.Background(), guests.Form{Name: "Ann", Guests: 2})
	assert.ErrorIs(t, err, guests.ErrValidation)

	assert.Empty(t, c.Config().GuestList)
	doc, err := hub.Read(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(doc[models.FieldGuestList]))
}

func TestAdminOperationsRequirePrivilege(t *testing.T) {
	ctx := context.Background()
	c := New(seededHub(t))
	target := models.GuestEntry{Name: "Jane"}

	assert.ErrorIs(t, c.Edit(func(*models.Configuration) {}), ErrNotPrivileged)
	assert.ErrorIs(t, c.Save(ctx), ErrNotPrivileged)
	assert.ErrorIs(t, c.Reset(ctx, true), ErrNotPrivileged)
	assert.ErrorIs(t, c.SetAdminStatus(ctx, target, models.AdminApproved), ErrNotPrivileged)
	assert.ErrorIs(t, c.RejectIndividual(ctx, target, "Tom"), ErrNotPrivileged)
	assert.ErrorIs(t, c.DeleteGuest(ctx, target, true), ErrNotPrivileged)
	assert.ErrorIs(t, c.AddOrUpdateGuest(guests.Form{Name: "X"}, ""), ErrNotPrivileged)
	assert.ErrorIs(t, c.Reply(ctx, "id", "thanks"), ErrNotPrivileged)
	assert.ErrorIs(t, c.AddGalleryImage("https://example.com/a.jpg"), ErrNotPrivileged)
	_, err := c.Broadcast(ctx)
	assert.ErrorIs(t, err, ErrNotPrivileged)
}

func TestGuestRegistryRoundTrip(t *testing.T) {
	ctx := context.Background()
	hub := seededHub(t)
	// No subscription: local state only moves with the operations below.
	c := New(hub, WithPrivilege(admin()), WithClock(func() time.Time { return fixedNow }))

	entry, err := c.SubmitRSVP(ctx, guests.Form{Name: "Anna", Email: "anna@example.com", Guests: 3, ExtraGuestNames: []string{"Tom", "Lia"}})
	require.NoError(t, err)
	require.Len(t, c.Config().GuestList, 1)

	require.NoError(t, c.RejectIndividual(ctx, entry, "Tom"))
	require.NoError(t, c.SetAdminStatus(ctx, entry, models.AdminRejected))
	require.NoError(t, c.SetAdminStatus(ctx, entry, models.AdminUndecided))

	doc, err := hub.Read(ctx)
	require.NoError(t, err)
	stored, err := doc.Decode()
	require.NoError(t, err)
	require.Len(t, stored.GuestList, 1)
	g := stored.GuestList[0]
	assert.Equal(t, models.AdminPending, g.AdminStatus)
	assert.Equal(t, "2", g.Guests)
	assert.Equal(t, []string{"Tom"}, g.RejectedIndividuals)
	assert.Equal(t, models.Timestamp(fixedNow), stored.LastSaved)

	assert.Equal(t, guests.Stats{Submissions: 1, TotalHeads: 3, PendingHeads: 2, RejectedHeads: 1}, c.Stats())

	require.NoError(t, c.RestoreIndividual(ctx, entry, "Tom"))
	assert.Equal(t, "3", c.Config().GuestList[0].Guests)

	assert.ErrorIs(t, c.DeleteGuest(ctx, entry, false), ErrConfirmationRequired)
	require.NoError(t, c.DeleteGuest(ctx, entry, true))
	assert.Empty(t, c.Config().GuestList)
	doc, err = hub.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(doc[models.FieldGuestList]))
}

func TestDeleteGuestKeepsUnmergedRSVPs(t *testing.T) {
	ctx := context.Background()
	hub := seededHub(t)
	c := New(hub, WithPrivilege(admin()), WithClock(func() time.Time { return fixedNow }))

	entry, err := c.SubmitRSVP(ctx, guests.Form{Name: "Anna"})
	require.NoError(t, err)

	// Lands after the admin's last view of the list.
	late := New(hub, WithClock(func() time.Time { return fixedNow.Add(time.Minute) }))
	_, err = late.SubmitRSVP(ctx, guests.Form{Name: "Late Larry"})
	require.NoError(t, err)
	require.False(t, hasGuest(c.Config(), "Late Larry"))

	require.NoError(t, c.DeleteGuest(ctx, entry, true))

	doc, err := hub.Read(ctx)
	require.NoError(t, err)
	stored, err := doc.Decode()
	require.NoError(t, err)
	require.Len(t, stored.GuestList, 1)
	assert.Equal(t, "Late Larry", stored.GuestList[0].Name)
	assert.True(t, hasGuest(c.Config(), "Late Larry"))
	assert.False(t, hasGuest(c.Config(), "Anna"))
}

func TestAddOrUpdateGuestIsLocalUntilSave(t *testing.T) {
	ctx := context.Background()
	hub := seededHub(t)
	c := New(hub, WithPrivilege(admin()), WithClock(func() time.Time { return fixedNow }))

	require.NoError(t, c.AddOrUpdateGuest(guests.Form{Name: "Walk In", Guests: 1, Attending: models.AttendingNo}, ""))
	require.Len(t, c.Config().GuestList, 1)

	doc, err := hub.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(doc[models.FieldGuestList]))

	require.NoError(t, c.AddOrUpdateGuest(guests.Form{Name: "Walk In", Guests: 1, Attending: models.AttendingYes}, models.Timestamp(fixedNow)))
	require.NoError(t, c.Save(ctx))

	doc, err = hub.Read(ctx)
	require.NoError(t, err)
	stored, err := doc.Decode()
	require.NoError(t, err)
	require.Len(t, stored.GuestList, 1)
	assert.Equal(t, models.AttendingYes, stored.GuestList[0].Attending)
}

func TestGuestbookPostReactReply(t *testing.T) {
	ctx := context.Background()
	hub := seededHub(t)
	visitor := New(hub)
	adminClient := New(hub, WithPrivilege(admin()))
	run(t, visitor)
	run(t, adminClient)

	msg, err := visitor.PostGuestbook(ctx, "  ", "Congratulations!")
	require.NoError(t, err)
	assert.Equal(t, models.AnonymousName, msg.Name)
	assert.NotEmpty(t, msg.ID)

	_, err = visitor.PostGuestbook(ctx, "Jo", " ")
	assert.ErrorIs(t, err, guests.ErrValidation)

	require.NoError(t, visitor.React(ctx, msg.ID, "❤️"))
	require.NoError(t, visitor.React(ctx, msg.ID, "❤️"))
	require.NoError(t, adminClient.Reply(ctx, msg.ID, "Thank you!"))

	require.Eventually(t, func() bool {
		book := visitor.Config().Guestbook
		return len(book) == 1 && book[0].Reactions["❤️"] == 2 && book[0].Reply == "Thank you!"
	}, waitFor, tick)
}

func TestGalleryImageBound(t *testing.T) {
	c := New(seededHub(t), WithPrivilege(admin()), WithMaxImageBytes(4))

	assert.ErrorIs(t, c.AddGalleryImage("data:image/png;base64,QUJDREVGR0g="), media.ErrTooLarge)
	assert.ErrorIs(t, c.AddGalleryImage("data:text/plain;base64,QQ=="), media.ErrNotImage)
	require.NoError(t, c.AddGalleryImage("data:image/png;base64,QUI="))
	require.NoError(t, c.AddGalleryImage("https://example.com/a.jpg"))
	assert.Len(t, c.Config().Gallery, 2)

	require.NoError(t, c.RemoveGalleryImage(0))
	assert.Equal(t, []string{"https://example.com/a.jpg"}, c.Config().Gallery)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	hub := seededHub(t)
	c := New(hub, WithPrivilege(admin()))

	assert.ErrorIs(t, c.Reset(ctx, false), ErrConfirmationRequired)
	require.NoError(t, c.Reset(ctx, true))
	assert.Empty(t, c.Config().BrideName)
	assert.Equal(t, "classic", c.Config().Theme)
}

type failingRemote struct {
	Remote
}

func (failingRemote) Append(context.Context, string, any) error {
	return errors.New("network down")
}

func TestFailedRSVP_KeepsOptimisticEntryByDefault(t *testing.T) {
	c := New(failingRemote{Remote: seededHub(t)})

	_, err := c.SubmitRSVP(context.Background(), guests.Form{Name: "Jane Doe"})
	require.Error(t, err)
	assert.True(t, hasGuest(c.Config(), "Jane Doe"))

	select {
	case n := <-c.Notices():
		assert.Equal(t, NoticeError, n.Kind)
		assert.Contains(t, n.Message, "network down")
	default:
		t.Fatal("expected an error notice")
	}
}

func TestFailedRSVP_RollsBackWhenEnabled(t *testing.T) {
	c := New(failingRemote{Remote: seededHub(t)}, WithRollback(true))

	_, err := c.SubmitRSVP(context.Background(), guests.Form{Name: "Jane Doe"})
	require.Error(t, err)
	assert.False(t, hasGuest(c.Config(), "Jane Doe"))
}

type patchFailingRemote struct {
	Remote
}

func (patchFailingRemote) Patch(context.Context, models.Patch) error {
	return errors.New("network down")
}

func replyTrail(c *Client, id string) *[]string {
	var trail []string
	c.OnUpdate(func(cfg *models.Configuration, _ reconcile.Mode) {
		reply := "-"
		if i := models.FindGuestbookMessage(cfg.Guestbook, id); i >= 0 {
			reply = cfg.Guestbook[i].Reply
		}
		trail = append(trail, reply)
	})
	return &trail
}

func TestFailedReply_RollsBackRewrittenGuestbook(t *testing.T) {
	ctx := context.Background()
	hub := seededHub(t)
	msg, err := New(hub).PostGuestbook(ctx, "Jo", "Congratulations!")
	require.NoError(t, err)

	c := New(patchFailingRemote{Remote: hub}, WithPrivilege(admin()), WithRollback(true))
	trail := replyTrail(c, msg.ID)

	require.Error(t, c.Reply(ctx, msg.ID, "Thank you!"))
	assert.Equal(t, []string{"-", "Thank you!", "-"}, *trail)
	assert.Empty(t, c.Config().Guestbook)
}

func TestFailedReply_KeepsRewrittenGuestbookByDefault(t *testing.T) {
	ctx := context.Background()
	hub := seededHub(t)
	msg, err := New(hub).PostGuestbook(ctx, "Jo", "Congratulations!")
	require.NoError(t, err)

	c := New(patchFailingRemote{Remote: hub}, WithPrivilege(admin()))
	trail := replyTrail(c, msg.ID)

	require.Error(t, c.Reply(ctx, msg.ID, "Thank you!"))
	assert.Equal(t, []string{"-", "Thank you!"}, *trail)
	require.Len(t, c.Config().Guestbook, 1)
	assert.Equal(t, "Thank you!", c.Config().Guestbook[0].Reply)
}

type deniedRemote struct {
	Remote
}

func (deniedRemote) Subscribe(context.Context) <-chan models.Snapshot {
	ch := make(chan models.Snapshot, 1)
	ch <- models.ErrorSnapshot(models.ReasonPermissionDenied, "read access denied")
	return ch
}

func TestPermissionDeniedStopsSync(t *testing.T) {
	c := New(deniedRemote{}, WithDefaults(models.SeededConfiguration(models.Seed{BrideName: "Anna"})))

	require.NoError(t, c.Run(context.Background()))
	assert.True(t, c.State().SyncDisabled)
	assert.Equal(t, "Anna", c.Config().BrideName)

	n := <-c.Notices()
	assert.Equal(t, NoticeError, n.Kind)
}
