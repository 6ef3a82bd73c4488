// Package broadcast implements the forced-refresh signal: the admin writes
// a fresh sync token into the shared document and every other viewer
// reloads once when it sees a token it has not seen before.
package broadcast

import (
	"fmt"
	"time"
)

// DefaultReloadDelay leaves time for a just-shown notice to be read.
const DefaultReloadDelay = time.Second

// Scheduler runs f after d. time.AfterFunc satisfies it.
type Scheduler func(d time.Duration, f func())

// Observer compares incoming tokens against the persisted one.
type Observer struct {
	tokens   TokenStore
	reload   func()
	delay    time.Duration
	schedule Scheduler
}

// Option configures an Observer.
type Option func(*Observer)

// WithDelay overrides DefaultReloadDelay.
func WithDelay(d time.Duration) Option {
	return func(o *Observer) { o.delay = d }
}

// WithScheduler replaces time.AfterFunc.
func WithScheduler(s Scheduler) Option {
	return func(o *Observer) { o.schedule = s }
}

// NewObserver creates an Observer that calls reload when a new token shows up.
func NewObserver(tokens TokenStore, reload func(), options ...Option) *Observer {
	o := &Observer{
		tokens: tokens,
		reload: reload,
		delay:  DefaultReloadDelay,
		schedule: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
	for _, option := range options {
		option(o)
	}
	return o
}

// Observe handles the token of one snapshot and reports whether a reload was
// scheduled. The token is persisted before the reload is scheduled, so a
// reloaded client sees it as already handled. The admin surface records the
// token without reloading. A client with no stored token adopts the current
// one silently: it has just loaded the latest content anyway.
func (o *Observer) Observe(token string, privileged bool) (bool, error) {
	if token == "" {
		return false, nil
	}
	last, err := o.tokens.Load()
	if err != nil {
		return false, fmt.Errorf("load sync token: %w", err)
	}
	if token == last {
		return false, nil
	}
	if err := o.tokens.Store(token); err != nil {
		return false, fmt.Errorf("store sync token: %w", err)
	}
	if privileged || last == "" {
		return false, nil
	}
	o.schedule(o.delay, o.reload)
	return true, nil
}
