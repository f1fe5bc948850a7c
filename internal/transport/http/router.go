package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/payfone/prefill-verify/internal/application/verification"
	"github.com/payfone/prefill-verify/internal/config"
	"github.com/payfone/prefill-verify/internal/transport/http/handler"
	appmiddleware "github.com/payfone/prefill-verify/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to the public token endpoint.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	svc := verification.NewService(verification.ServiceDeps{
		Records:     deps.RecordRepo,
		Snapshots:   deps.SnapshotRepo,
		Prove:       deps.ProveClient,
		SMS:         deps.SMSSender,
		JWTProvider: deps.JWTProvider,
		Audit:       deps.AuditStore,
		AppEnv:      cfg.AppEnv,
		Caps: verification.Caps{
			SMSResend:         cfg.SMSResendCap,
			SMSResendInterval: cfg.SMSResendInterval,
			OwnershipCheck:    cfg.OwnershipCheckCap,
		},
		FinalTargetURL: cfg.FinalTargetURL,
		Now:            func() time.Time { return time.Now().UTC() },
	})

	healthH := handler.NewHealthHandler()
	verifyH := handler.NewVerificationHandler(svc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/echo", healthH.Echo)
		r.Post("/echo", healthH.Echo)
		r.With(sensitiveRL.Limit).Post("/token", verifyH.CreateToken)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/auth-url", verifyH.SubmitPhone)
			r.Post("/resend-sms", verifyH.ResendSMS)
			r.Post("/instant-link", verifyH.VerifyInstantLink)
			r.Post("/eligibility", verifyH.CheckEligibility)
			r.Post("/identity", verifyH.GetIdentity)
			r.Post("/identity/confirm", verifyH.ConfirmIdentity)
			r.Get("/status", verifyH.Status)
		})
	})

	return r
}
