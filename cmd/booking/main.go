// Package main runs the interview booking verification service: signed-link
// validation, one-time code issuance, and single-use booking tokens.
//
// Set BOOKING_PERSISTENCE=inmem to run without a database. All data is lost
// when the server stops; a demo candidate and a signed link are seeded and
// logged at startup.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jinzhu/copier"

	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/audit"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/bookingtoken"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/config"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/notice"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/notification"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/otp"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/ratelimit"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/signedlink"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/subject"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/sweeper"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/verification"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/verification/api"
)

func main() {
	cfg := config.Config{}
	cleanenv.ReadEnv(&cfg)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	inmem := cfg.DbConfig.Persistence == "inmem"

	secret := cfg.SignedLinkConfig.Secret
	if secret == "" {
		if !inmem {
			slog.Error("SIGNED_LINK_SECRET is required")
			os.Exit(-1)
		}
		secret = "inmem-dev-secret-change-in-production"
	}

	codec := signedlink.NewCodec(secret,
		signedlink.WithMaxAge(cfg.SignedLinkConfig.MaxAge()),
		signedlink.WithClockSkewTolerance(cfg.SignedLinkConfig.ClockSkew()),
	)

	var (
		otpRepo   otp.Repository
		tokenRepo bookingtoken.Repository
		directory verification.CandidateDirectory
		resolver  verification.BookingResolver
	)

	if inmem {
		slog.Info("Running with in-memory repositories (no database)")
		memDirectory := verification.NewInMemDirectory()
		memResolver := verification.NewInMemResolver()
		seedDemoData(codec, memDirectory, memResolver, cfg.BookingBaseURL)

		otpRepo = otp.NewInMemRepository()
		tokenRepo = bookingtoken.NewInMemRepository()
		directory = memDirectory
		resolver = memResolver
	} else {
		pool, err := pgxpool.New(context.Background(), cfg.DbConfig.DSN())
		if err != nil {
			slog.Error("Failed creating dbpool",
				"db", cfg.DbConfig.Database,
				"host", cfg.DbConfig.Host,
				"port", cfg.DbConfig.Port,
				"user", cfg.DbConfig.User,
				"error", err,
			)
			os.Exit(-1)
		}
		defer pool.Close()

		otpRepo = otp.NewPostgresRepository(pool)
		tokenRepo = bookingtoken.NewPostgresRepository(pool)
		directory = verification.NewPostgresDirectory(pool)
		resolver = verification.NewPostgresResolver(pool)
	}

	otpEngine := otp.NewEngine(otpRepo,
		otp.WithCodeExpiry(cfg.OtpConfig.Expiry()),
		otp.WithMaxAttempts(int32(cfg.OtpConfig.MaxAttempts)),
	)
	tokenEngine := bookingtoken.NewEngine(tokenRepo,
		bookingtoken.WithTokenTTL(cfg.BookingTokenConfig.TTL()),
	)

	var smtpConfig notification.SMTPConfig
	copier.Copy(&smtpConfig, &cfg.SmtpConfig)
	notificationManager, err := notice.NewNotificationManager(smtpConfig)
	if err != nil {
		slog.Error("Failed creating notification manager", "error", err)
		os.Exit(-1)
	}

	service := verification.NewService(
		codec,
		directory,
		resolver,
		otpEngine,
		tokenEngine,
		verification.WithNotificationManager(notificationManager),
		verification.WithAuditSink(audit.NewSlogSink()),
		verification.WithBookingBaseURL(cfg.BookingBaseURL),
	)

	handler := api.NewHandler(service)

	requestLogger := httplog.NewLogger("booking", httplog.Options{
		LogLevel: slog.LevelInfo,
		Concise:  true,
	})

	limits := ratelimit.DefaultConfig()
	limits.EndpointLimits = map[string]ratelimit.EndpointLimit{
		"POST /verify/code":   {Capacity: 10, RefillRate: 10.0 / 60.0},
		"POST /verify/resend": {Capacity: 3, RefillRate: 1.0 / 60.0},
	}
	limiter := ratelimit.NewMiddleware(limits)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(httplog.RequestLogger(requestLogger))
	r.Use(limiter.Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, http.StatusText(http.StatusOK))
	})
	r.Get("/healthz/ready", func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, http.StatusText(http.StatusOK))
	})

	r.Group(handler.Routes)

	tokenAuth := jwtauth.New("HS256", []byte(cfg.AdminConfig.JwtSecret), nil)
	r.Route("/admin", func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator(tokenAuth))
		handler.AdminRoutes(r)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sweep := sweeper.New(otpEngine, tokenEngine, cfg.SweeperConfig.Interval())
	go sweep.Run(ctx)

	addr := cfg.AppConfig.Addr()
	slog.Info("Starting booking verification service", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(-1)
	}
}

// seedDemoData registers one candidate and destination and logs a ready-made
// signed link so the in-memory mode is usable out of the box.
func seedDemoData(codec *signedlink.Codec, directory *verification.InMemDirectory, resolver *verification.InMemResolver, baseURL string) {
	key := subject.New("demo@example.com", "northline", "deckhand")

	directory.Add(key, &verification.Candidate{
		Email:         key.Email,
		FullName:      "Demo Candidate",
		ResolutionKey: "northline-deckhand-2026",
	})
	resolver.Set("northline-deckhand-2026", &verification.Destination{
		URL:       "https://calendar.example.com/northline/deckhand",
		Recruiter: "recruiter@example.com",
	})

	link := codec.Sign(key, time.Now().UTC())
	slog.Info("Seeded demo candidate",
		"email", key.Email,
		"brand", key.Brand,
		"position", key.Position,
	)
	slog.Info("Demo verification link",
		"url", fmt.Sprintf("%s/verify?email=%s&brand=%s&position=%s&ts=%d&sig=%s",
			baseURL, key.Email, key.Brand, key.Position, link.Timestamp, link.Signature),
	)
}
