package whatsapp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wedding-site/internal/export"
	"wedding-site/internal/models"
	"wedding-site/internal/storage"
)

const sendTimeout = 30 * time.Second

// Sender delivers a text message. *Service satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, phoneNumber, message string) error
}

// Notifier tells the admin about new RSVPs and guestbook posts. Sending is
// asynchronous and best effort.
type Notifier struct {
	sender     Sender
	adminPhone string
	log        zerolog.Logger
	wg         sync.WaitGroup
}

// NewNotifier creates a Notifier that messages adminPhone.
func NewNotifier(sender Sender, adminPhone string, log zerolog.Logger) *Notifier {
	return &Notifier{
		sender:     sender,
		adminPhone: adminPhone,
		log:        log.With().Str("component", "notifier").Logger(),
	}
}

// Hook turns appends to the guest list and guestbook into notifications.
func (n *Notifier) Hook() storage.ChangeHook {
	return func(ctx context.Context, c storage.Change) {
		if c.Op != storage.OpAppend {
			return
		}
		switch v := c.Value.(type) {
		case models.GuestEntry:
			n.send(ctx, RSVPText(v))
		case models.GuestbookMessage:
			n.send(ctx, GuestbookText(v))
		}
	}
}

// Wait blocks until every pending message has been attempted.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) send(ctx context.Context, text string) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		defer cancel()
		if err := n.sender.SendMessage(ctx, n.adminPhone, text); err != nil {
			n.log.Warn().Err(err).Msg("Failed to send notification")
		}
	}()
}

// RSVPText formats a new RSVP.
func RSVPText(g models.GuestEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💌 *New RSVP*\n\n%s\n", export.PartyName(g))
	fmt.Fprintf(&b, "Attending: %s\nGuests: %d\n", g.Attending, g.HeadCount())
	if g.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", g.Email)
	}
	if g.Message != "" {
		fmt.Fprintf(&b, "\n\"%s\"\n", g.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

// GuestbookText formats a new guestbook post.
func GuestbookText(m models.GuestbookMessage) string {
	return fmt.Sprintf("📖 *New guestbook message* from %s\n\n\"%s\"", m.Name, m.Message)
}
