package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"checkout-payments/internal/usecase"
)

// Server serves the payment verification endpoint the success page
// polls, plus the authenticated dashboard read API.
type Server struct {
	verifyUC usecase.VerifyUseCase
	adminUC  usecase.AdminUseCase

	auth          *AuthManager
	adminPassword string

	allowedOrigins []string
	log            *zerolog.Logger
}

func NewServer(
	verifyUC usecase.VerifyUseCase,
	adminUC usecase.AdminUseCase,
	auth *AuthManager,
	adminPassword string,
	allowedOrigins []string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		verifyUC:       verifyUC,
		adminUC:        adminUC,
		auth:           auth,
		adminPassword:  adminPassword,
		allowedOrigins: allowedOrigins,
		log:            logger,
	}
}

func (s *Server) RegisterRoutes(r *chi.Mux) {
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// The browser polls this from the checkout success page; it must
	// stay public (the buyer has no session yet).
	r.Post("/api/v1/payment/verify", s.handleVerify)

	r.Post("/api/v1/admin/login", s.handleLogin)
	r.Post("/api/v1/admin/logout", s.handleLogout)
	r.Group(func(pr chi.Router) {
		pr.Use(s.requireAdmin)
		pr.Get("/api/v1/admin/payments", s.handleListPayments)
		pr.Get("/api/v1/admin/orders", s.handleListOrders)
	})
}

// Handler builds a ready-to-serve router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.RegisterRoutes(r)
	return r
}

// requireAdmin guards the dashboard read endpoints with the session
// JWT minted at login.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			s.log.Error().Msg("admin auth is not configured")
			writeError(w, http.StatusForbidden, "admin API disabled")
			return
		}
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
