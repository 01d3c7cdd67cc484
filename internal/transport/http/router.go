package http

import (
	"net/http"

	"github.com/go-chat-otp/internal/application/auth"
	"github.com/go-chat-otp/internal/config"
	"github.com/go-chat-otp/internal/infrastructure/metrics"
	"github.com/go-chat-otp/internal/transport/http/handler"
	appmiddleware "github.com/go-chat-otp/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const maxBodyBytes = 1 << 20

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:     deps.UserRepo,
		OtpRepo:      deps.OtpRepo,
		Notifier:     deps.Notifier,
		Validator:    deps.Validator,
		OtpTTL:       cfg.OtpTTL,
		StoreTimeout: cfg.StoreTimeout,
		MailTimeout:  cfg.MailTimeout,
	})

	healthH := handler.NewHealthHandler()
	accountH := handler.NewAccountHandler(authSvc)

	r.Get("/health", healthH.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", healthH.Index)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.RequestSize(maxBodyBytes))
			r.Use(appmiddleware.RequireJSON)

			r.Post("/register", accountH.Register)
			r.Post("/login", accountH.Login)
			r.Post("/otp/verify", accountH.VerifyOtp)
		})
	})

	return r
}
