package server

import (
	"log"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"careops/internal/auth"
	"careops/internal/config"
)

type Server struct {
	Auth        *auth.AuthService
	Invites     *auth.InviteService
	Codes       *auth.TwoFactorService
	TOTP        auth.TOTPVerifier
	Users       *auth.UserRepository
	RateLimiter *auth.RateLimiter
	Config      config.Config

	trustedProxies []net.IPNet
}

func NewServer(cfg config.Config, authSvc *auth.AuthService, invites *auth.InviteService, codes *auth.TwoFactorService, totp auth.TOTPVerifier, users *auth.UserRepository, rl *auth.RateLimiter) *Server {
	return &Server{
		Auth:           authSvc,
		Invites:        invites,
		Codes:          codes,
		TOTP:           totp,
		Users:          users,
		RateLimiter:    rl,
		Config:         cfg,
		trustedProxies: parseProxyCIDRs(cfg.TrustedProxies),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	formatter := &middleware.DefaultLogFormatter{
		Logger:  log.New(log.Writer(), "", log.Flags()),
		NoColor: true,
	}
	r.Use(middleware.RequestLogger(formatter))
	r.Use(middleware.Recoverer)
	r.Use(secureHeaders)

	r.Post("/api/auth/login", s.handleLogin)
	r.Post("/api/auth/change-password", s.handleChangePassword)

	r.Post("/api/2fa/send-code", s.handleSendCode)
	r.Post("/api/2fa/verify-code", s.handleVerifyCode)

	r.Get("/api/registration/validate/{token}", s.handleValidateInvitation)
	r.Post("/api/registration/complete", s.handleCompleteRegistration)

	r.Group(func(pr chi.Router) {
		pr.Use(s.requireAuth)

		pr.Get("/api/auth/me", s.handleMe)
		pr.Post("/api/workers/invite", s.handleInviteWorker)

		pr.Post("/api/2fa/setup-start", s.handleTwoFactorSetupStart)
		pr.Post("/api/2fa/setup-finalize", s.handleTwoFactorSetupFinalize)
		pr.Post("/api/2fa/disable", s.handleTwoFactorDisable)
	})

	return r
}
