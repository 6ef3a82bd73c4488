// Package pubsub fans document change notifications out across server
// instances that share one backing store.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/rs/zerolog"

	"wedding-site/internal/storage"
)

type message struct {
	Instance string     `json:"instance"`
	Op       storage.Op `json:"op"`
	Fields   []string   `json:"fields,omitempty"`
}

// Relay publishes local changes on a Redis channel and calls back when
// another instance reports one.
type Relay struct {
	client   *redis.Client
	channel  string
	instance string
	log      zerolog.Logger
	ready    chan struct{}
}

// NewRelay connects to the Redis server at addr.
func NewRelay(addr, password, appID string, log zerolog.Logger) *Relay {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return NewRelayWithClient(client, appID, log)
}

// NewRelayWithClient wires an existing client.
func NewRelayWithClient(client *redis.Client, appID string, log zerolog.Logger) *Relay {
	id := uuid.NewString()
	return &Relay{
		client:   client,
		channel:  appID + ":document:changes",
		instance: id,
		log:      log.With().Str("component", "relay").Str("instance", id).Logger(),
		ready:    make(chan struct{}, 1),
	}
}

// Publish announces a local change.
func (r *Relay) Publish(ctx context.Context, c storage.Change) error {
	data, err := json.Marshal(message{Instance: r.instance, Op: c.Op, Fields: c.Fields})
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Hook adapts Publish to a storage.ChangeHook; failures are only logged.
func (r *Relay) Hook() storage.ChangeHook {
	return func(ctx context.Context, c storage.Change) {
		if err := r.Publish(ctx, c); err != nil {
			r.log.Warn().Err(err).Str("op", string(c.Op)).Msg("Failed to publish change")
		}
	}
}

// Run receives remote changes until ctx is done, reconnecting with
// exponential backoff. onRemote runs once per change from another instance.
func (r *Relay) Run(ctx context.Context, onRemote func(ctx context.Context)) {
	delay := &backoff.Backoff{Min: 100 * time.Millisecond, Max: time.Minute}

	for {
		err := r.recv(ctx, delay, onRemote)
		if ctx.Err() != nil {
			return
		}
		d := delay.Duration()
		r.log.Warn().Err(err).Dur("retry_in", d).Msg("Relay receive failed")
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return
		}
	}
}

// Close closes the Redis client.
func (r *Relay) Close() error {
	return r.client.Close()
}

func (r *Relay) recv(ctx context.Context, delay *backoff.Backoff, onRemote func(ctx context.Context)) error {
	ps := r.client.Subscribe(ctx, r.channel)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.log.Info().Str("channel", r.channel).Msg("Relay subscribed")
	delay.Reset()
	select {
	case r.ready <- struct{}{}:
	default:
	}

	for {
		msg, err := ps.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		if r.isRemote([]byte(msg.Payload)) {
			onRemote(ctx)
		}
	}
}

// isRemote reports whether payload is a change from another instance.
func (r *Relay) isRemote(payload []byte) bool {
	var m message
	if err := json.Unmarshal(payload, &m); err != nil {
		r.log.Warn().Err(err).Msg("Ignoring malformed relay message")
		return false
	}
	return m.Instance != r.instance
}
