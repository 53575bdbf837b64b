package http

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/compress"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	appweb "fintrack/web"

	"github.com/andybalholm/brotli"
)

// Reports is the read side of the ledger the dashboard renders.
type Reports interface {
	Summary(ctx context.Context, month string) (core.Summary, error)
	MonthlyTrends(ctx context.Context) ([]core.MonthlyTrend, error)
	CategoryTotals(ctx context.Context, flow core.Flow) ([]core.CategoryTotal, error)
	ListTransactions(ctx context.Context, filter core.TransactionFilter) ([]core.Transaction, error)
	Categories(ctx context.Context) ([]string, error)
	ExportCSV(ctx context.Context, w io.Writer) (int, error)
	Ping(ctx context.Context) error
}

type Config struct {
	Addr           string
	CacheTTL       time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	Logger         *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	reports   Reports
	logger    *log.Logger
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware

	summaryCache    *cache.TTLCache[core.Summary]
	trendsCache     *cache.TTLCache[[]core.MonthlyTrend]
	categoriesCache *cache.TTLCache[[]core.CategoryTotal]

	shutdownOnce sync.Once
}

// queryTimeout bounds every storage read made on behalf of a request.
const queryTimeout = 7 * time.Second

// NewServer parses the embedded templates and wires routes and middleware.
func NewServer(cfg Config, reports Reports) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates:       t,
		reports:         reports,
		logger:          logger,
		detector:        security.NewDetector(),
		summaryCache:    cache.NewTTL[core.Summary](cfg.CacheTTL),
		trendsCache:     cache.NewTTL[[]core.MonthlyTrend](cfg.CacheTTL),
		categoriesCache: cache.NewTTL[[]core.CategoryTotal](cfg.CacheTTL),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		}),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()

	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/trends", s.handleTrends)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/transactions", s.handleTransactions)
	mux.HandleFunc("GET /export.csv", s.handleExport)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	var h http.Handler = mux
	h = compress.Middleware(brotli.DefaultCompression)(h)
	h = s.limiter.Middleware(s.detector.ExtractClientIP, nil)(h)
	h = s.rejectProbes(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Flushers exposes the report caches so import events can invalidate them.
func (s *Server) Flushers() []cache.Flusher {
	return []cache.Flusher{s.summaryCache, s.trendsCache, s.categoriesCache}
}

// rejectProbes answers scanner traffic with 404 before it reaches a handler.
func (s *Server) rejectProbes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(),
				"Suspicious request rejected",
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.detector.ExtractClientIP(r))
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.reports.Ping(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err.Error())
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("storage unavailable"))
		return
	}
	_, _ = w.Write([]byte("ready"))
}
