// Package handler exposes the shared document over HTTP and websockets.
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"wedding-site/internal/export"
	"wedding-site/internal/guests"
	"wedding-site/internal/media"
	"wedding-site/internal/models"
	"wedding-site/internal/session"
	"wedding-site/internal/storage"
)

const maxBodyBytes = 8 << 20

// Options wires a Handler.
type Options struct {
	Hub *storage.Hub
	// Auth is nil when no admin password is configured; admin paths then
	// answer 403.
	Auth *session.Authority
	// Uploader is nil when S3 uploads are not configured.
	Uploader      *media.Uploader
	MaxImageBytes int
	PublicRead    bool
	Log           zerolog.Logger
	// CheckOrigin is the websocket origin policy. Nil accepts any origin.
	CheckOrigin func(r *http.Request) bool
	Now         func() time.Time
}

// Handler serves the document API.
type Handler struct {
	hub           *storage.Hub
	auth          *session.Authority
	uploader      *media.Uploader
	maxImageBytes int
	publicRead    bool
	log           zerolog.Logger
	upgrader      websocket.Upgrader
	now           func() time.Time
}

// New creates a Handler.
func New(opts Options) *Handler {
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		hub:           opts.Hub,
		auth:          opts.Auth,
		uploader:      opts.Uploader,
		maxImageBytes: opts.MaxImageBytes,
		publicRead:    opts.PublicRead,
		log:           opts.Log.With().Str("component", "http").Logger(),
		upgrader:      websocket.Upgrader{CheckOrigin: checkOrigin},
		now:           now,
	}
}

// Router registers every route.
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()

	router.Use(hlog.NewHandler(h.log))
	router.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("url", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	}))
	router.Use(recoverPanics)

	router.HandleFunc("/api/health", h.Health).Methods("GET")
	router.HandleFunc("/api/session", h.Login).Methods("POST")

	router.HandleFunc("/api/config", h.GetConfig).Methods("GET")
	router.HandleFunc("/api/config", h.admin(h.PutConfig)).Methods("PUT")
	router.HandleFunc("/api/config", h.admin(h.PatchConfig)).Methods("PATCH")
	router.HandleFunc("/api/config/subscribe", h.Subscribe).Methods("GET")
	router.HandleFunc("/api/config/{field}/append", h.Append).Methods("POST")

	router.HandleFunc("/api/guestbook/{id}/reactions", h.React).Methods("POST")
	router.HandleFunc("/api/guests/export.csv", h.admin(h.ExportCSV)).Methods("GET")
	router.HandleFunc("/api/gallery/upload-url", h.admin(h.UploadURL)).Methods("POST")

	return router
}

// bearer extracts the session token from the Authorization header or, for
// websocket handshakes that cannot set headers, the token query parameter.
func bearer(r *http.Request) string {
	if v := r.Header.Get("Authorization"); strings.HasPrefix(v, "Bearer ") {
		return strings.TrimPrefix(v, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func (h *Handler) isAdmin(r *http.Request) bool {
	if h.auth == nil {
		return false
	}
	_, err := h.auth.Verify(bearer(r))
	return err == nil
}

func (h *Handler) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.auth == nil {
			writeError(w, http.StatusForbidden, "admin access is not configured")
			return
		}
		if _, err := h.auth.Verify(bearer(r)); err != nil {
			writeError(w, http.StatusUnauthorized, "admin session required")
			return
		}
		next(w, r)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// Health handles GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"timestamp":   h.now().Format(time.RFC3339),
		"subscribers": h.hub.Subscribers(),
	})
}

// Login handles POST /api/session
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeError(w, http.StatusForbidden, "admin access is not configured")
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	tok, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		hlog.FromRequest(r).Warn().Str("email", req.Email).Msg("Failed admin login")
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

// GetConfig handles GET /api/config
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	if !h.publicRead && !h.isAdmin(r) {
		writeError(w, http.StatusForbidden, "read access denied")
		return
	}
	doc, err := h.hub.Read(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// PutConfig handles PUT /api/config, a full overwrite.
func (h *Handler) PutConfig(w http.ResponseWriter, r *http.Request) {
	var raw map[string]json.RawMessage
	if !decodeBody(w, r, &raw) {
		return
	}
	p, err := models.DecodePatch(raw)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	cfg := &models.Configuration{}
	if err := cfg.Apply(p); err != nil {
		writeErr(w, r, err)
		return
	}
	if err := h.checkGallery(cfg.Gallery); err != nil {
		writeErr(w, r, err)
		return
	}
	if err := h.hub.Write(r.Context(), cfg); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PatchConfig handles PATCH /api/config
func (h *Handler) PatchConfig(w http.ResponseWriter, r *http.Request) {
	var raw map[string]json.RawMessage
	if !decodeBody(w, r, &raw) {
		return
	}
	p, err := models.DecodePatch(raw)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if gallery, ok := p["gallery"].([]string); ok {
		if err := h.checkGallery(gallery); err != nil {
			writeErr(w, r, err)
			return
		}
	}
	if err := h.hub.Patch(r.Context(), p); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Append handles POST /api/config/{field}/append. Visitors may append to
// the guest list and guestbook; every other array field is admin only.
func (h *Handler) Append(w http.ResponseWriter, r *http.Request) {
	field := mux.Vars(r)["field"]
	admin := h.isAdmin(r)
	if field != models.FieldGuestList && field != models.FieldGuestbook && !admin {
		if h.auth == nil {
			writeError(w, http.StatusForbidden, "admin access is not configured")
		} else {
			writeError(w, http.StatusUnauthorized, "admin session required")
		}
		return
	}

	var raw json.RawMessage
	if !decodeBody(w, r, &raw) {
		return
	}
	value, err := models.DecodeElement(field, raw)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	switch v := value.(type) {
	case models.GuestEntry:
		value, err = h.prepareGuest(v, admin)
	case models.GuestbookMessage:
		value, err = h.prepareGuestbook(v, admin)
	case string:
		if field == "gallery" {
			err = h.checkGallery([]string{v})
		}
	}
	if err != nil {
		writeErr(w, r, err)
		return
	}

	if err := h.hub.Append(r.Context(), field, value); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, value)
}

func (h *Handler) prepareGuest(g models.GuestEntry, admin bool) (models.GuestEntry, error) {
	if err := guests.FormOf(g).Validate(); err != nil {
		return g, err
	}
	if g.Attending == "" {
		g.Attending = models.AttendingYes
	}
	if !admin {
		g.AdminStatus = models.AdminPending
		g.RejectedIndividuals = nil
	}
	if g.Timestamp == "" {
		g.Timestamp = models.Timestamp(h.now())
	}
	return g, nil
}

func (h *Handler) prepareGuestbook(m models.GuestbookMessage, admin bool) (models.GuestbookMessage, error) {
	if strings.TrimSpace(m.Message) == "" {
		return m, &guests.ValidationError{Field: "message", Message: "message is required"}
	}
	if strings.TrimSpace(m.Name) == "" {
		m.Name = models.AnonymousName
	}
	if m.ID == "" {
		m.ID = uuid.Must(uuid.NewV7()).String()
	}
	if m.Timestamp == "" {
		m.Timestamp = models.Timestamp(h.now())
	}
	if !admin {
		m.Reactions = nil
		m.Reply = ""
	}
	return m, nil
}

func (h *Handler) checkGallery(images []string) error {
	for i, img := range images {
		if err := media.CheckDataURL(img, h.maxImageBytes); err != nil {
			return fmt.Errorf("gallery[%d]: %w", i, err)
		}
	}
	return nil
}

// React handles POST /api/guestbook/{id}/reactions
func (h *Handler) React(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Emoji string `json:"emoji"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.hub.React(r.Context(), mux.Vars(r)["id"], req.Emoji); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportCSV handles GET /api/guests/export.csv
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	doc, err := h.hub.Read(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	cfg, err := doc.Decode()
	if err != nil {
		writeErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="guests.csv"`)
	if err := export.WriteCSV(w, cfg.GuestList); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Failed to write CSV")
	}
}

// UploadURL handles POST /api/gallery/upload-url
func (h *Handler) UploadURL(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		writeError(w, http.StatusServiceUnavailable, "uploads are not configured")
		return
	}
	var req struct {
		FileName string `json:"fileName"`
		FileType string `json:"fileType"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	up, err := h.uploader.UploadURL(r.Context(), req.FileName, req.FileType)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, up)
}
