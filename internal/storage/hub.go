package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"wedding-site/internal/models"
)

// subscriberBuffer is how many snapshots a slow subscriber may fall behind
// before the oldest queued one is dropped.
const subscriberBuffer = 8

// Op names the kind of mutation a Change reports.
type Op string

const (
	OpWrite  Op = "write"
	OpPatch  Op = "patch"
	OpAppend Op = "append"
	OpReact  Op = "react"
)

// Change describes one successful mutation.
type Change struct {
	Op     Op
	Fields []string
	// Value is the appended element for OpAppend.
	Value any
}

// ChangeHook runs after every successful mutation.
type ChangeHook func(ctx context.Context, c Change)

// Hub wraps a Store with live subscriptions. Mutations are serialized and
// each one is followed by a fresh read that is delivered to every
// subscriber, so subscribers always see whole documents in commit order.
type Hub struct {
	store Store
	log   zerolog.Logger

	mu sync.Mutex

	subMu sync.Mutex
	subs  map[chan models.Snapshot]struct{}

	hookMu sync.RWMutex
	hooks  []ChangeHook
}

// NewHub creates a Hub over store.
func NewHub(store Store, log zerolog.Logger) *Hub {
	return &Hub{
		store: store,
		log:   log.With().Str("component", "hub").Logger(),
		subs:  make(map[chan models.Snapshot]struct{}),
	}
}

// OnChange registers a hook.
func (h *Hub) OnChange(hook ChangeHook) {
	h.hookMu.Lock()
	defer h.hookMu.Unlock()
	h.hooks = append(h.hooks, hook)
}

// Read returns the current document.
func (h *Hub) Read(ctx context.Context) (models.Document, error) {
	return h.store.Read(ctx)
}

// Write replaces the whole document.
func (h *Hub) Write(ctx context.Context, cfg *models.Configuration) error {
	return h.mutate(ctx, Change{Op: OpWrite}, func() error {
		return h.store.Write(ctx, cfg)
	})
}

// Patch replaces individual fields.
func (h *Hub) Patch(ctx context.Context, p models.Patch) error {
	if err := ValidatePatch(p); err != nil {
		return err
	}
	return h.mutate(ctx, Change{Op: OpPatch, Fields: p.Fields()}, func() error {
		return h.store.Patch(ctx, p)
	})
}

// Append adds one element to an array field.
func (h *Hub) Append(ctx context.Context, field string, value any) error {
	if err := models.CheckElement(field, value); err != nil {
		return err
	}
	return h.mutate(ctx, Change{Op: OpAppend, Fields: []string{field}, Value: value}, func() error {
		return h.store.Append(ctx, field, value)
	})
}

// React increments one emoji counter on a guestbook message. Counters only
// ever go up, so the read-modify-write is safe under the hub's lock.
func (h *Hub) React(ctx context.Context, messageID, emoji string) error {
	if emoji == "" {
		return fmt.Errorf("%w: empty emoji", models.ErrFieldType)
	}
	return h.mutate(ctx, Change{Op: OpReact, Fields: []string{models.FieldGuestbook}}, func() error {
		doc, err := h.store.Read(ctx)
		if err != nil {
			return err
		}
		cfg, err := doc.Decode()
		if err != nil {
			return err
		}
		i := models.FindGuestbookMessage(cfg.Guestbook, messageID)
		if i < 0 {
			return fmt.Errorf("guestbook message %q: %w", messageID, ErrNotFound)
		}
		msg := &cfg.Guestbook[i]
		if msg.Reactions == nil {
			msg.Reactions = map[string]int{}
		}
		msg.Reactions[emoji]++
		return h.store.Patch(ctx, models.Patch{models.FieldGuestbook: cfg.Guestbook})
	})
}

// SeedIfMissing writes cfg when no document exists yet.
func (h *Hub) SeedIfMissing(ctx context.Context, cfg *models.Configuration) (bool, error) {
	h.mu.Lock()
	_, err := h.store.Read(ctx)
	if err == nil || !errors.Is(err, ErrNotFound) {
		h.mu.Unlock()
		return false, err
	}
	if err := h.store.Write(ctx, cfg); err != nil {
		h.mu.Unlock()
		return false, err
	}
	h.publish(ctx)
	h.mu.Unlock()

	h.runHooks(ctx, Change{Op: OpWrite})
	return true, nil
}

// Refresh re-reads the store and delivers the result to every subscriber.
// It is how changes made by another process become visible here.
func (h *Hub) Refresh(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publish(ctx)
}

// Subscribe delivers the current state immediately and then one snapshot
// per change until ctx is done, when the channel is closed.
func (h *Hub) Subscribe(ctx context.Context) <-chan models.Snapshot {
	ch := make(chan models.Snapshot, subscriberBuffer)

	h.mu.Lock()
	snap := h.snapshot(ctx)
	h.subMu.Lock()
	h.subs[ch] = struct{}{}
	ch <- snap
	h.subMu.Unlock()
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.subMu.Lock()
		delete(h.subs, ch)
		close(ch)
		h.subMu.Unlock()
	}()
	return ch
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	return len(h.subs)
}

// Close closes the underlying store.
func (h *Hub) Close() error {
	return h.store.Close()
}

func (h *Hub) mutate(ctx context.Context, c Change, apply func() error) error {
	h.mu.Lock()
	if err := apply(); err != nil {
		h.mu.Unlock()
		return err
	}
	h.publish(ctx)
	h.mu.Unlock()

	h.runHooks(ctx, c)
	return nil
}

// publish reads the store and fans the snapshot out. Callers hold mu.
func (h *Hub) publish(ctx context.Context) {
	snap := h.snapshot(ctx)

	h.subMu.Lock()
	defer h.subMu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
			h.log.Warn().Msg("Subscriber is behind, dropped oldest snapshot")
		}
	}
}

func (h *Hub) snapshot(ctx context.Context) models.Snapshot {
	doc, err := h.store.Read(context.WithoutCancel(ctx))
	switch {
	case err == nil:
		return models.Snapshot{Kind: models.SnapshotDocument, Document: doc}
	case errors.Is(err, ErrNotFound):
		return models.Snapshot{Kind: models.SnapshotNotFound}
	case errors.Is(err, ErrPermissionDenied):
		return models.ErrorSnapshot(models.ReasonPermissionDenied, err.Error())
	default:
		h.log.Error().Err(err).Msg("Failed to read document for subscribers")
		return models.ErrorSnapshot(models.ReasonUnavailable, err.Error())
	}
}

func (h *Hub) runHooks(ctx context.Context, c Change) {
	h.hookMu.RLock()
	hooks := append([]ChangeHook(nil), h.hooks...)
	h.hookMu.RUnlock()

	ctx = context.WithoutCancel(ctx)
	for _, hook := range hooks {
		hook(ctx, c)
	}
}
