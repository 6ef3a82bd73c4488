package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"wedding-site/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Subscribe handles GET /api/config/subscribe. The connection receives one
// JSON snapshot frame per change, starting with the current state. A denied
// read is reported as an error frame before the socket closes, so clients
// can tell it apart from a network failure.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	if !h.publicRead && !h.isAdmin(r) {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteJSON(models.ErrorSnapshot(models.ReasonPermissionDenied, "read access denied"))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "permission-denied"))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The read side only exists to notice the peer going away.
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	snapshots := h.hub.Subscribe(ctx)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	h.log.Debug().Int("subscribers", h.hub.Subscribers()).Msg("Subscriber attached")
	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				h.log.Debug().Err(err).Msg("Subscriber write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
