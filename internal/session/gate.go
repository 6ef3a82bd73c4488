package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Authenticator exchanges the admin password for a session token.
// *Authority and the HTTP client both satisfy it.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (Token, error)
}

// DefaultErrorDisplay is how long a failed login message stays visible.
const DefaultErrorDisplay = 3 * time.Second

// Gate is the client side of the admin login. While open, the privileged
// edit surface is considered open.
type Gate struct {
	auth       Authenticator
	email      string
	clearAfter time.Duration
	now        func() time.Time

	mu       sync.Mutex
	token    Token
	open     bool
	errMsg   string
	errGen   int
	onChange []func(open bool)
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithErrorDisplay overrides DefaultErrorDisplay.
func WithErrorDisplay(d time.Duration) GateOption {
	return func(g *Gate) { g.clearAfter = d }
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) { g.now = now }
}

// NewGate creates a Gate for the fixed admin email.
func NewGate(auth Authenticator, email string, options ...GateOption) *Gate {
	g := &Gate{auth: auth, email: email, clearAfter: DefaultErrorDisplay, now: time.Now}
	for _, option := range options {
		option(g)
	}
	return g
}

// OnChange registers f to run whenever the gate opens or closes.
func (g *Gate) OnChange(f func(open bool)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onChange = append(g.onChange, f)
}

// Unlock tries the password. On failure the gate stays closed and an
// inline error is shown until it clears itself.
func (g *Gate) Unlock(ctx context.Context, password string) error {
	tok, err := g.auth.Login(ctx, g.email, password)
	if err != nil {
		g.mu.Lock()
		if errors.Is(err, ErrInvalidCredentials) {
			g.errMsg = "Incorrect password"
		} else {
			g.errMsg = "Login failed: " + err.Error()
		}
		g.errGen++
		gen := g.errGen
		g.mu.Unlock()

		time.AfterFunc(g.clearAfter, func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			if g.errGen == gen {
				g.errMsg = ""
			}
		})
		return err
	}

	g.mu.Lock()
	g.token = tok
	g.open = true
	g.errMsg = ""
	g.errGen++
	hooks := append([]func(bool){}, g.onChange...)
	g.mu.Unlock()

	for _, h := range hooks {
		h(true)
	}
	return nil
}

// Lock closes the admin surface and forgets the token.
func (g *Gate) Lock() {
	g.mu.Lock()
	wasOpen := g.open
	g.open = false
	g.token = Token{}
	hooks := append([]func(bool){}, g.onChange...)
	g.mu.Unlock()

	if wasOpen {
		for _, h := range hooks {
			h(false)
		}
	}
}

// IsOpen reports whether the admin surface is open with an unexpired token.
func (g *Gate) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		return false
	}
	return g.token.ExpiresAt.IsZero() || g.now().Before(g.token.ExpiresAt)
}

// Token returns the current session token, or "".
func (g *Gate) Token() string {
	if !g.IsOpen() {
		return ""
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token.Value
}

// Error returns the inline login error, or "".
func (g *Gate) Error() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.errMsg
}
