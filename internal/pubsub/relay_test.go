package pubsub

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-site/internal/storage"
)

func TestIsRemote(t *testing.T) {
	r := NewRelayWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "test", zerolog.Nop())
	defer r.Close()

	assert.True(t, r.isRemote([]byte(`{"instance":"someone-else","op":"patch"}`)))
	assert.False(t, r.isRemote([]byte(`{"instance":"`+r.instance+`","op":"patch"}`)))
	assert.False(t, r.isRemote([]byte(`not json`)))
}

func TestRelayIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := NewRelay(addr, "", "relay-test", zerolog.Nop())
	b := NewRelay(addr, "", "relay-test", zerolog.Nop())
	defer a.Close()
	defer b.Close()

	got := make(chan struct{}, 4)
	go b.Run(ctx, func(context.Context) { got <- struct{}{} })
	go a.Run(ctx, func(context.Context) { t.Error("an instance must not hear itself") })

	for _, r := range []*Relay{a, b} {
		select {
		case <-r.ready:
		case <-time.After(5 * time.Second):
			t.Fatal("relay did not subscribe")
		}
	}

	require.NoError(t, a.Publish(ctx, storage.Change{Op: storage.OpAppend, Fields: []string{"guestList"}}))
	select {
	case <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("remote change not delivered")
	}
}
