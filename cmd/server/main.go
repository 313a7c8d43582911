package main

import (
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"careops/internal/auth"
	"careops/internal/config"
	"careops/internal/database"
	"careops/internal/logging"
	"careops/internal/notify"
	"careops/internal/redisx"
	"careops/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logOutput := io.Writer(os.Stdout)
	if cfg.LogFile != "" {
		fileWriter, err := logging.NewRotatingFileWriter(cfg.LogFile, 20<<20, 3)
		if err != nil {
			log.Fatalf("log setup error: %v", err)
		}
		defer fileWriter.Close()
		logOutput = io.MultiWriter(os.Stdout, fileWriter)
	}
	log.SetOutput(logOutput)
	log.SetFlags(log.LstdFlags | log.LUTC | log.Lshortfile)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}
	defer db.Close()

	redisClient, err := redisx.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis error: %v", err)
	}
	defer redisClient.Close()

	users := auth.NewUserRepository(db)
	hasher := auth.NewBcryptHasher()
	tokens := auth.NewTokenCodec(cfg.TokenSecret)
	totpSvc := auth.NewTOTPService(cfg.TOTPIssuer)
	rateLimiter := &auth.RateLimiter{Redis: redisClient}

	gateway := notify.NewDispatcher(
		notify.NewSMSClient(cfg.SMS),
		notify.NewMailer(cfg.Email),
		cfg.BaseURL,
		cfg.NotifyTimeout,
	)

	codes := &auth.TwoFactorService{
		Store:    users,
		Notifier: gateway,
		TTL:      cfg.CodeTTL,
	}
	invites := &auth.InviteService{
		Store:      users,
		Notifier:   gateway,
		Hasher:     hasher,
		Tokens:     tokens,
		TTL:        cfg.InvitationTTL,
		SessionTTL: cfg.SessionTTL,
	}
	authSvc := &auth.AuthService{
		Store:               users,
		Hasher:              hasher,
		Codes:               codes,
		TOTP:                totpSvc,
		Tokens:              tokens,
		SessionTTL:          cfg.SessionTTL,
		TwoFactorSessionTTL: cfg.TwoFactorSessionTTL,
	}

	api := server.NewServer(cfg, authSvc, invites, codes, totpSvc, users, rateLimiter)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("Listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
