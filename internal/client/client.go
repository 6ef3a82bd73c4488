// Package client keeps a local copy of the shared document in sync with the
// remote one and applies every visitor and admin operation to it.
//
// Local state is updated optimistically before the remote operation
// resolves. Incoming snapshots are merged with reconcile.Reconcile, so an
// admin's unsaved edits survive concurrent RSVPs.
package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wedding-site/internal/broadcast"
	"wedding-site/internal/models"
	"wedding-site/internal/reconcile"
)

var (
	// ErrNotPrivileged is returned by admin operations while the admin
	// surface is closed.
	ErrNotPrivileged = errors.New("admin session required")
	// ErrConfirmationRequired is returned by destructive operations called
	// without confirmation.
	ErrConfirmationRequired = errors.New("confirmation required")
)

// Remote is the shared document as a client sees it. *storage.Hub and
// *HTTPRemote satisfy it.
type Remote interface {
	Subscribe(ctx context.Context) <-chan models.Snapshot
	Read(ctx context.Context) (models.Document, error)
	Write(ctx context.Context, cfg *models.Configuration) error
	Patch(ctx context.Context, p models.Patch) error
	Append(ctx context.Context, field string, value any) error
}

// Reactor is implemented by remotes that increment guestbook reactions on
// the server side.
type Reactor interface {
	React(ctx context.Context, messageID, emoji string) error
}

// Privilege reports whether the admin edit surface is open.
// *session.Gate satisfies it.
type Privilege interface {
	IsOpen() bool
}

type closed struct{}

func (closed) IsOpen() bool { return false }

// NoticeKind classifies a Notice.
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeSuccess
	NoticeError
)

// Notice is a user-visible, non-blocking message.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// State describes the sync status.
type State struct {
	HasEverSynced bool
	SyncDisabled  bool
	Saving        bool
	LastMode      reconcile.Mode
}

// Client owns the local Configuration.
type Client struct {
	remote    Remote
	defaults  *models.Configuration
	privilege Privilege
	tokens    broadcast.TokenStore
	delay     time.Duration
	scheduler broadcast.Scheduler
	observer  *broadcast.Observer
	rollback  bool
	maxImage  int
	log       zerolog.Logger
	now       func() time.Time

	notices chan Notice
	reloads chan struct{}

	mu        sync.Mutex
	local     *models.Configuration
	state     State
	listeners []func(cfg *models.Configuration, mode reconcile.Mode)
}

// Option configures a Client.
type Option func(*Client)

// WithDefaults sets the configuration every full merge starts from.
func WithDefaults(cfg *models.Configuration) Option {
	return func(c *Client) { c.defaults = cfg.Clone() }
}

// WithPrivilege wires the admin gate.
func WithPrivilege(p Privilege) Option {
	return func(c *Client) { c.privilege = p }
}

// WithTokenStore sets where the last seen sync token is kept.
func WithTokenStore(ts broadcast.TokenStore) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithReloadDelay overrides broadcast.DefaultReloadDelay.
func WithReloadDelay(d time.Duration) Option {
	return func(c *Client) { c.delay = d }
}

// WithScheduler replaces time.AfterFunc for reload scheduling.
func WithScheduler(s broadcast.Scheduler) Option {
	return func(c *Client) { c.scheduler = s }
}

// WithRollback reverts an optimistic local change when its remote operation
// fails. Off by default: failed changes stay visible locally.
func WithRollback(enabled bool) Option {
	return func(c *Client) { c.rollback = enabled }
}

// WithMaxImageBytes bounds inline gallery images.
func WithMaxImageBytes(n int) Option {
	return func(c *Client) { c.maxImage = n }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a Client over remote.
func New(remote Remote, options ...Option) *Client {
	c := &Client{
		remote:    remote,
		defaults:  models.DefaultConfiguration(),
		privilege: closed{},
		tokens:    &broadcast.MemoryTokenStore{},
		delay:     broadcast.DefaultReloadDelay,
		log:       zerolog.Nop(),
		now:       time.Now,
		notices:   make(chan Notice, 16),
		reloads:   make(chan struct{}, 1),
	}
	for _, option := range options {
		option(c)
	}
	c.log = c.log.With().Str("component", "client").Logger()

	obsOpts := []broadcast.Option{broadcast.WithDelay(c.delay)}
	if c.scheduler != nil {
		obsOpts = append(obsOpts, broadcast.WithScheduler(c.scheduler))
	}
	c.observer = broadcast.NewObserver(c.tokens, c.requestReload, obsOpts...)
	c.local = c.defaults.Clone()
	return c
}

// Notices delivers user-visible messages. Messages are dropped when nobody
// reads them.
func (c *Client) Notices() <-chan Notice {
	return c.notices
}

// OnUpdate registers f to run after every change to local state. Local
// operations report reconcile.Unchanged as their mode.
func (c *Client) OnUpdate(f func(cfg *models.Configuration, mode reconcile.Mode)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, f)
}

// Config returns a copy of the local configuration.
func (c *Client) Config() *models.Configuration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local.Clone()
}

// State returns the sync status.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Privileged reports whether the admin surface is open.
func (c *Client) Privileged() bool {
	return c.privilege.IsOpen()
}

// Run attaches the subscription and applies snapshots until ctx is done or
// a read is denied. A broadcast reload drops local state and attaches a
// fresh subscription, as a page reload would.
func (c *Client) Run(ctx context.Context) error {
	for {
		subCtx, cancel := context.WithCancel(ctx)
		c.mu.Lock()
		c.state.HasEverSynced = false
		c.mu.Unlock()

		reload := c.consume(ctx, c.remote.Subscribe(subCtx))
		cancel()
		if !reload {
			return nil
		}

		c.mu.Lock()
		c.local = c.defaults.Clone()
		c.mu.Unlock()
		c.log.Info().Msg("Reloading after broadcast")
	}
}

func (c *Client) consume(ctx context.Context, snapshots <-chan models.Snapshot) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-c.reloads:
			return true
		case snap, ok := <-snapshots:
			if !ok {
				return false
			}
			if !c.apply(snap) {
				return false
			}
		}
	}
}

// apply reconciles one snapshot and reports whether syncing continues.
func (c *Client) apply(snap models.Snapshot) bool {
	privileged := c.Privileged()

	c.mu.Lock()
	res, err := reconcile.Reconcile(reconcile.Input{
		Local:         c.local,
		Defaults:      c.defaults,
		Snapshot:      snap,
		HasEverSynced: c.state.HasEverSynced,
		Privileged:    privileged,
	})
	if err != nil {
		c.mu.Unlock()
		c.log.Error().Err(err).Str("kind", snap.Kind.String()).Msg("Failed to reconcile snapshot")
		return true
	}
	c.local = res.Config
	c.state.HasEverSynced = res.HasEverSynced
	c.state.LastMode = res.Mode
	if res.PermissionDenied {
		c.state.SyncDisabled = true
	}
	c.mu.Unlock()

	switch {
	case res.PermissionDenied:
		c.log.Warn().Str("detail", snap.Detail).Msg("Read permission denied, live sync stopped")
		c.notify(NoticeError, "Permission denied: showing the last known content")
		return false
	case res.Err != nil:
		c.log.Warn().Err(res.Err).Msg("Subscription error")
		return true
	}

	if res.Mode != reconcile.Unchanged {
		c.changed(res.Mode)
	}
	if snap.Kind == models.SnapshotDocument {
		scheduled, err := c.observer.Observe(snap.SyncID(), privileged)
		if err != nil {
			c.log.Warn().Err(err).Msg("Failed to track sync token")
		}
		if scheduled {
			c.notify(NoticeInfo, "A new version was published, refreshing")
		}
	}
	return true
}

func (c *Client) requestReload() {
	select {
	case c.reloads <- struct{}{}:
	default:
	}
}

func (c *Client) notify(kind NoticeKind, msg string) {
	select {
	case c.notices <- Notice{Kind: kind, Message: msg}:
	default:
	}
}

func (c *Client) changed(mode reconcile.Mode) {
	c.mu.Lock()
	cfg := c.local
	listeners := append([]func(*models.Configuration, reconcile.Mode){}, c.listeners...)
	c.mu.Unlock()
	for _, f := range listeners {
		f(cfg, mode)
	}
}

// update replaces local state with fn applied to a copy and returns the
// previous and new values for rollback.
func (c *Client) update(fn func(cfg *models.Configuration) error) (before, after *models.Configuration, err error) {
	c.mu.Lock()
	before = c.local
	next := before.Clone()
	if err := fn(next); err != nil {
		c.mu.Unlock()
		return nil, nil, err
	}
	c.local = next
	c.mu.Unlock()

	c.changed(reconcile.Unchanged)
	return before, next, nil
}

// settle reports the outcome of a remote operation that followed an
// optimistic update.
func (c *Client) settle(op string, before, after *models.Configuration, err error, success string) error {
	if err == nil {
		if success != "" {
			c.notify(NoticeSuccess, success)
		}
		return nil
	}
	c.log.Error().Err(err).Str("op", op).Msg("Remote operation failed")
	c.notify(NoticeError, op+" failed: "+err.Error())

	if c.rollback {
		c.mu.Lock()
		// Only undo when nothing has replaced our change in the meantime.
		reverted := c.local == after
		if reverted {
			c.local = before
		}
		c.mu.Unlock()
		if reverted {
			c.changed(reconcile.Unchanged)
		}
	}
	return err
}

func (c *Client) requirePrivilege() error {
	if !c.Privileged() {
		return ErrNotPrivileged
	}
	return nil
}
