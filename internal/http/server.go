package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"tally/internal/cache"
	"tally/internal/config"
	"tally/internal/middleware/ratelimit"
	"tally/internal/middleware/trace"
	"tally/internal/services"
)

type Server struct {
	http.Server
	service *services.ExpenseService
	limiter *ratelimit.Limiter

	// Cached summary responses, keyed per owner and query. Mutations bump
	// the owner's generation so stale entries stop being reachable and
	// age out through the LRU.
	summaryCache *cache.LRUCache[summaryResponse]
	cacheManager *cache.Manager

	genMu       sync.Mutex
	generations map[string]uint64

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. Shutdown must be called to stop the cache and rate limiter
// housekeeping goroutines.
func NewServer(cfg *config.Config, service *services.ExpenseService) *Server {
	s := &Server{
		service: service,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
		}),
		summaryCache: cache.NewLRUCache[summaryResponse](cfg.SummaryCacheSize, cfg.SummaryCacheTTL),
		cacheManager: cache.NewManager(),
		generations:  make(map[string]uint64),
	}
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(cfg.SummaryCacheTTL)

	tracer := trace.NewMiddleware(clientIP)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(tracer.Middleware)
	r.Use(secureHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RequireAuth(cfg.JWTSecret))

		limited := s.limiter.Middleware(clientIP, nil)

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", s.handleListExpenses)
			r.Get("/summary", s.handleSummary)
			r.With(limited).Post("/", s.handleCreateExpense)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetExpense)
				r.With(limited).Patch("/", s.handleUpdateExpense)
				r.With(limited).Delete("/", s.handleDeleteExpense)
			})
		})

		r.Get("/categories", s.handleCategories)
	})

	s.Server = http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	return s
}

// Shutdown stops the housekeeping goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// clientIP resolves the caller's address, trusting proxy headers when set.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func (s *Server) summaryCacheKey(ownerID string, in services.SummaryInput) string {
	s.genMu.Lock()
	gen := s.generations[ownerID]
	s.genMu.Unlock()

	key := ownerID + "|" + strconv.FormatUint(gen, 10) + "|" + string(in.GroupBy)
	if !in.From.IsZero() {
		key += "|f=" + in.From.UTC().Format("2006-01-02T15:04:05")
	}
	if !in.To.IsZero() {
		key += "|t=" + in.To.UTC().Format("2006-01-02T15:04:05")
	}
	return key
}

// invalidateSummaries retires every cached summary for the owner.
func (s *Server) invalidateSummaries(ownerID string) {
	s.genMu.Lock()
	s.generations[ownerID]++
	s.genMu.Unlock()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
