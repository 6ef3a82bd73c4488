package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"wedding-site/internal/guests"
	"wedding-site/internal/models"
	"wedding-site/internal/storage"
)

// PostGuestbook appends a visitor message. An empty name is stored as
// models.AnonymousName.
func (c *Client) PostGuestbook(ctx context.Context, name, message string) (models.GuestbookMessage, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return models.GuestbookMessage{}, &guests.ValidationError{Field: "message", Message: "message is required"}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = models.AnonymousName
	}
	id, err := uuid.NewV7()
	if err != nil {
		return models.GuestbookMessage{}, fmt.Errorf("generate message id: %w", err)
	}
	msg := models.GuestbookMessage{
		ID:        id.String(),
		Name:      name,
		Message:   message,
		Timestamp: models.Timestamp(c.now()),
	}

	before, after, err := c.update(func(cfg *models.Configuration) error {
		cfg.Guestbook = append(cfg.Guestbook, msg)
		return nil
	})
	if err != nil {
		return models.GuestbookMessage{}, err
	}
	err = c.remote.Append(ctx, models.FieldGuestbook, msg)
	return msg, c.settle("Guestbook post", before, after, err, "Thank you for your message!")
}

// React adds one emoji reaction to a message. Remotes that implement Reactor
// increment on the server, others get the guestbook field rewritten from
// its current remote value.
func (c *Client) React(ctx context.Context, messageID, emoji string) error {
	if emoji == "" {
		return &guests.ValidationError{Field: "emoji", Message: "emoji is required"}
	}
	bump := func(book []models.GuestbookMessage) {
		i := models.FindGuestbookMessage(book, messageID)
		if i < 0 {
			return
		}
		m := &book[i]
		if m.Reactions == nil {
			m.Reactions = make(map[string]int)
		}
		m.Reactions[emoji]++
	}
	before, after, err := c.update(func(cfg *models.Configuration) error {
		bump(cfg.Guestbook)
		return nil
	})
	if err != nil {
		return err
	}
	if r, ok := c.remote.(Reactor); ok {
		err = r.React(ctx, messageID, emoji)
	} else {
		after, err = c.rewriteGuestbook(ctx, after, bump)
	}
	return c.settle("Reaction", before, after, err, "")
}

// Reply sets the admin reply on a message, replacing any earlier one.
func (c *Client) Reply(ctx context.Context, messageID, reply string) error {
	if err := c.requirePrivilege(); err != nil {
		return err
	}
	reply = strings.TrimSpace(reply)
	set := func(book []models.GuestbookMessage) {
		if i := models.FindGuestbookMessage(book, messageID); i >= 0 {
			book[i].Reply = reply
		}
	}
	before, after, err := c.update(func(cfg *models.Configuration) error {
		set(cfg.Guestbook)
		return nil
	})
	if err != nil {
		return err
	}
	after, err = c.rewriteGuestbook(ctx, after, set)
	return c.settle("Reply", before, after, err, "Reply saved")
}

// rewriteGuestbook applies fn to the remote guestbook, installs the result
// locally and patches it back. The admin's local copy is not refreshed by
// partial merges, so it cannot be the source of the patch. It returns the
// local state it installed, or current when the read failed.
func (c *Client) rewriteGuestbook(ctx context.Context, current *models.Configuration, fn func([]models.GuestbookMessage)) (*models.Configuration, error) {
	book, err := remoteList[models.GuestbookMessage](ctx, c.remote, models.FieldGuestbook)
	if err != nil {
		return current, err
	}
	fn(book)

	_, after, err := c.update(func(cfg *models.Configuration) error {
		cfg.Guestbook = book
		return nil
	})
	if err != nil {
		return current, err
	}
	return after, c.remote.Patch(ctx, models.Patch{models.FieldGuestbook: book})
}

// remoteList reads the current remote value of an array field. A missing
// field or document reads as empty.
func remoteList[T any](ctx context.Context, r Remote, field string) ([]T, error) {
	doc, err := r.Read(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	var out []T
	if raw, ok := doc[field]; ok {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode %s: %w", field, err)
		}
	}
	return out, nil
}
