package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"github.com/rs/zerolog"

	"wedding-site/internal/models"
	"wedding-site/internal/session"
	"wedding-site/internal/storage"
)

// HTTPRemote talks to a wedding-server over its HTTP API and websocket
// subscription.
type HTTPRemote struct {
	base   string
	client *resty.Client
	dialer *websocket.Dialer
	token  func() string
	log    zerolog.Logger
}

// HTTPOption configures an HTTPRemote.
type HTTPOption func(*HTTPRemote)

// WithToken sets the source of the admin session token. It is consulted on
// every request, so a session.Gate's Token method can be passed directly.
func WithToken(token func() string) HTTPOption {
	return func(r *HTTPRemote) { r.token = token }
}

// WithHTTPLogger sets the logger.
func WithHTTPLogger(log zerolog.Logger) HTTPOption {
	return func(r *HTTPRemote) { r.log = log }
}

// NewHTTPRemote creates a remote for the server at baseURL.
func NewHTTPRemote(baseURL string, options ...HTTPOption) *HTTPRemote {
	base := strings.TrimRight(baseURL, "/")
	r := &HTTPRemote{
		base: base,
		client: resty.New().
			SetBaseURL(base).
			SetHeader("Content-Type", "application/json").
			SetTimeout(30 * time.Second),
		dialer: websocket.DefaultDialer,
		token:  func() string { return "" },
		log:    zerolog.Nop(),
	}
	for _, option := range options {
		option(r)
	}
	r.log = r.log.With().Str("component", "http_remote").Logger()
	return r
}

func (r *HTTPRemote) request(ctx context.Context) *resty.Request {
	req := r.client.R().SetContext(ctx)
	if tok := r.token(); tok != "" {
		req.SetAuthToken(tok)
	}
	return req
}

// Login exchanges the admin credentials for a session token.
func (r *HTTPRemote) Login(ctx context.Context, email, password string) (session.Token, error) {
	var tok session.Token
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&tok).
		Post("/api/session")
	if err != nil {
		return session.Token{}, fmt.Errorf("login: %w", err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return session.Token{}, session.ErrInvalidCredentials
	}
	if err := statusError(resp); err != nil {
		return session.Token{}, fmt.Errorf("login: %w", err)
	}
	return tok, nil
}

// Read fetches the current document.
func (r *HTTPRemote) Read(ctx context.Context) (models.Document, error) {
	var doc models.Document
	resp, err := r.request(ctx).SetResult(&doc).Get("/api/config")
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if err := statusError(resp); err != nil {
		return nil, err
	}
	return doc, nil
}

// Write replaces the whole document.
func (r *HTTPRemote) Write(ctx context.Context, cfg *models.Configuration) error {
	resp, err := r.request(ctx).SetBody(cfg).Put("/api/config")
	if err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return statusError(resp)
}

// Patch sets the named fields.
func (r *HTTPRemote) Patch(ctx context.Context, p models.Patch) error {
	resp, err := r.request(ctx).SetBody(p).Patch("/api/config")
	if err != nil {
		return fmt.Errorf("patch document: %w", err)
	}
	return statusError(resp)
}

// Append atomically appends value to an array field.
func (r *HTTPRemote) Append(ctx context.Context, field string, value any) error {
	resp, err := r.request(ctx).
		SetBody(value).
		Post("/api/config/" + url.PathEscape(field) + "/append")
	if err != nil {
		return fmt.Errorf("append to %s: %w", field, err)
	}
	return statusError(resp)
}

// React increments a guestbook reaction on the server.
func (r *HTTPRemote) React(ctx context.Context, messageID, emoji string) error {
	resp, err := r.request(ctx).
		SetBody(map[string]string{"emoji": emoji}).
		Post("/api/guestbook/" + url.PathEscape(messageID) + "/reactions")
	if err != nil {
		return fmt.Errorf("react: %w", err)
	}
	return statusError(resp)
}

// ExportCSV downloads the guest list as CSV.
func (r *HTTPRemote) ExportCSV(ctx context.Context) ([]byte, error) {
	resp, err := r.request(ctx).Get("/api/guests/export.csv")
	if err != nil {
		return nil, fmt.Errorf("export guests: %w", err)
	}
	if err := statusError(resp); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// Subscribe streams snapshots until ctx is done. Dropped connections are
// redialed with backoff. A permission-denied frame is delivered and then
// the channel is closed, since retrying cannot succeed.
func (r *HTTPRemote) Subscribe(ctx context.Context) <-chan models.Snapshot {
	out := make(chan models.Snapshot, 1)
	go func() {
		defer close(out)
		delay := &backoff.Backoff{Min: 200 * time.Millisecond, Max: 30 * time.Second}
		for {
			denied, err := r.stream(ctx, out, delay)
			if denied || ctx.Err() != nil {
				return
			}
			d := delay.Duration()
			r.log.Warn().Err(err).Dur("retry_in", d).Msg("Subscription dropped")
			select {
			case out <- models.ErrorSnapshot(models.ReasonUnavailable, err.Error()):
			case <-ctx.Done():
				return
			}
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// stream runs one websocket connection and reports whether it ended on a
// permission denial.
func (r *HTTPRemote) stream(ctx context.Context, out chan<- models.Snapshot, delay *backoff.Backoff) (bool, error) {
	wsURL, err := r.subscribeURL()
	if err != nil {
		return false, err
	}
	conn, _, err := r.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return false, fmt.Errorf("dial subscription: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var snap models.Snapshot
		_, data, err := conn.ReadMessage()
		if err != nil {
			return false, fmt.Errorf("read subscription: %w", err)
		}
		if err := json.Unmarshal(data, &snap); err != nil {
			r.log.Warn().Err(err).Msg("Skipping malformed snapshot frame")
			continue
		}
		delay.Reset()

		select {
		case out <- snap:
		case <-ctx.Done():
			return false, ctx.Err()
		}
		if snap.Kind == models.SnapshotError && snap.Reason == models.ReasonPermissionDenied {
			return true, nil
		}
	}
}

func (r *HTTPRemote) subscribeURL() (string, error) {
	u, err := url.Parse(r.base + "/api/config/subscribe")
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	if tok := r.token(); tok != "" {
		q := u.Query()
		q.Set("token", tok)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// statusError maps an API error status onto the storage and session
// sentinels.
func statusError(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	var body struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(resp.Body(), &body)
	detail := body.Message
	if detail == "" {
		detail = resp.Status()
	}
	switch resp.StatusCode() {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", storage.ErrNotFound, detail)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", storage.ErrPermissionDenied, detail)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", session.ErrUnauthorized, detail)
	default:
		return fmt.Errorf("server returned %d: %s", resp.StatusCode(), detail)
	}
}
