package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"analysis-gateway/internal/infra/api"
	"analysis-gateway/internal/infra/logging"
	"analysis-gateway/internal/infra/metrics"
	"analysis-gateway/internal/usecase"
)

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

type Deps struct {
	Analysis usecase.AnalysisUseCase
	Quota    usecase.QuotaUseCase
	Users    usecase.UserUseCase
	Auth     usecase.AuthUseCase
	Tokens   TokenVerifier

	SubscriptionAPIKey string
	CORSOrigin         string
	RequestTimeout     time.Duration
}

type Server struct {
	d   Deps
	log *zerolog.Logger
}

func NewServer(d Deps, logger *zerolog.Logger) *Server {
	if d.CORSOrigin == "" {
		d.CORSOrigin = "*"
	}
	return &Server{d: d, log: logger}
}

// Routes builds the public router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		api.TraceID(),
		api.RequestLog(s.log),
		api.Recover(s.log),
		s.cors,
	)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, "Not Found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, "Method Not Allowed", nil)
	})

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(api.Timeout(s.d.RequestTimeout))

		r.Post("/auth", s.handleAuth)
		r.Post("/user/plan", s.handleUserPlan)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)
			r.Post("/analyze", s.handleAnalyze)
			r.Get("/quota", s.handleQuota)
		})
	})
	return r
}

// cors decorates every response and answers preflight requests on any path.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.d.CORSOrigin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireUser verifies the bearer token and puts the user id into the request context.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearerToken(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, "Unauthorized - Invalid auth header", nil)
			return
		}
		userID, err := s.d.Tokens.Verify(tok)
		if err != nil {
			logging.With(r.Context(), s.log).Debug().Err(err).Msg("token rejected")
			writeError(w, err)
			return
		}
		ctx := logging.WithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
