package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"wedding-site/internal/config"
	"wedding-site/internal/handler"
	"wedding-site/internal/logger"
	"wedding-site/internal/media"
	"wedding-site/internal/models"
	"wedding-site/internal/pubsub"
	"wedding-site/internal/session"
	"wedding-site/internal/storage"
	"wedding-site/internal/whatsapp"
)

func main() {
	log := logger.New("wedding-server", os.Getenv("WEDDING_LOG_LEVEL"))
	zlog.Logger = log

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// -------- Document store ---------------
	store, err := newStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Document store unavailable")
	}
	hub := storage.NewHub(store, log)
	defer hub.Close()

	if cfg.SeedDefaults {
		seeded, err := hub.SeedIfMissing(ctx, models.SeededConfiguration(cfg.Seed()))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to seed document")
		}
		if seeded {
			log.Info().Str("document_id", cfg.DocumentID).Msg("Seeded default document")
		}
	}

	// -------- Optional collaborators -------
	var auth *session.Authority
	if cfg.AdminEnabled() {
		auth, err = session.NewAuthority(cfg.AdminEmail, cfg.AdminPasswordHash, cfg.JWTSecret, cfg.SessionTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid admin credentials")
		}
	} else {
		log.Warn().Msg("No admin password configured, admin endpoints are disabled")
	}

	var uploader *media.Uploader
	if cfg.S3Bucket != "" {
		uploader, err = media.NewUploader(ctx, cfg.AWSRegion, cfg.S3Bucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to configure S3 uploads")
		}
	}

	if cfg.RedisAddr != "" {
		relay := pubsub.NewRelay(cfg.RedisAddr, cfg.RedisPassword, "wedding-site:"+cfg.DocumentID, log)
		defer relay.Close()
		hub.OnChange(relay.Hook())
		go relay.Run(ctx, hub.Refresh)
	}

	if cfg.WhatsAppEnabled {
		svc, notifier := startWhatsApp(ctx, cfg, log)
		defer svc.Disconnect()
		defer notifier.Wait()
		hub.OnChange(notifier.Hook())
	}

	// -------- Router & Server --------------
	h := handler.New(handler.Options{
		Hub:           hub,
		Auth:          auth,
		Uploader:      uploader,
		MaxImageBytes: cfg.MaxImageBytes,
		PublicRead:    cfg.PublicRead,
		Log:           log,
	})
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(h.Router())

	server := &http.Server{
		Addr:         cfg.GetHTTPAddr(),
		Handler:      corsHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("Shutting down server…")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

func startWhatsApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*whatsapp.Service, *whatsapp.Notifier) {
	svc, err := whatsapp.NewService(ctx, whatsapp.Config{DataDir: cfg.WhatsAppDataDir}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize WhatsApp service")
	}
	fmt.Println("Connecting to WhatsApp...")
	if err := svc.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to WhatsApp")
	}
	notifier := whatsapp.NewNotifier(svc, cfg.WhatsAppAdminPhone, log)
	return svc, notifier
}
