package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/wellness-api/internal/application/account"
	"github.com/wellness-api/internal/application/mood"
	"github.com/wellness-api/internal/application/otp"
	"github.com/wellness-api/internal/application/registration"
	"github.com/wellness-api/internal/application/wallet"
	"github.com/wellness-api/internal/config"
	jwtinfra "github.com/wellness-api/internal/infrastructure/jwt"
	"github.com/wellness-api/internal/metrics"
	"github.com/wellness-api/internal/transport/http/handler"
	appmiddleware "github.com/wellness-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	OTPs        OTPRepository
	Accounts    AccountRepository
	Moods       MoodRepository
	Wallets     WalletRepository
	Dispatcher  otp.Dispatcher
	JWTProvider *jwtinfra.Provider

	// Optional; zero values select production defaults.
	Now        func() time.Time
	BcryptCost int
}

// NewRouter builds and returns the application router. ctx bounds the
// rate limiter's background sweeper.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(metrics.InstrumentHandler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)

	// Applied to the public sign-up and login endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	moodSvc := mood.NewService(mood.ServiceDeps{Store: deps.Moods, Engine: cfg.Engine})
	otpSvc := otp.NewService(otp.ServiceDeps{
		OTPs:       deps.OTPs,
		Accounts:   deps.Accounts,
		Dispatcher: deps.Dispatcher,
		Engine:     cfg.Engine,
		Now:        deps.Now,
	})
	registrationSvc := registration.NewService(registration.ServiceDeps{
		Tokens:     deps.OTPs,
		Accounts:   deps.Accounts,
		Engine:     cfg.Engine,
		Now:        deps.Now,
		BcryptCost: deps.BcryptCost,
	})
	accountSvc := account.NewService(account.ServiceDeps{
		Store:     deps.Accounts,
		Timezones: moodSvc,
		Signer:    deps.JWTProvider,
	})
	walletSvc := wallet.NewService(wallet.ServiceDeps{Store: deps.Wallets, Engine: cfg.Engine, Now: deps.Now})

	healthH := handler.NewHealthHandler()
	registrationH := handler.NewRegistrationHandler(otpSvc, registrationSvc, accountSvc)
	sessionH := handler.NewSessionHandler(accountSvc)
	meH := handler.NewMeHandler(accountSvc)
	moodH := handler.NewMoodHandler(moodSvc, deps.Now)
	walletH := handler.NewWalletHandler(walletSvc)

	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/registration/otp", registrationH.RequestCode)
		r.With(sensitiveRL.Limit).Post("/registration/otp/verify", registrationH.VerifyCode)
		r.With(sensitiveRL.Limit).Post("/registration", registrationH.Register)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/me", meH.Get)
			r.Put("/me/settings", meH.UpdateSettings)
			r.Post("/me/mood", moodH.Record)
			r.Get("/me/mood/history", moodH.History)
			r.Get("/me/wallet", walletH.Get)
			r.Post("/me/wallet/recharge", walletH.Recharge)
			r.Post("/me/wallet/debit", walletH.Debit)
			r.Get("/me/wallet/transactions", walletH.Transactions)
		})
	})

	return r
}
