// Package api provides the HTTP server for the top10 dashboard.
//
// It serves the server-held dashboard page and its assets, the control
// endpoints behind the page buttons, the websocket that pushes live patches,
// health and Prometheus metrics, and optionally proxies /api/* to the
// backend so the page's same-origin API path resolves.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goubera/top10/internal/apiclient"
	"github.com/goubera/top10/internal/config"
	"github.com/goubera/top10/internal/dashboard"
	"github.com/goubera/top10/internal/infra"
	"github.com/goubera/top10/pkg/utils"
	"github.com/goubera/top10/web"
)

// Server is the dashboard HTTP server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	log     *zap.Logger
	version string

	client *apiclient.Client // feeds the page; failures are toasted
	lookup *apiclient.Client // ad-hoc token lookups behind a breaker; failures stay off the page
	view   *dashboard.View
	loader *dashboard.Loader
	sched  *dashboard.Scheduler
	wsHub  *WSHub
	proxy  http.Handler
}

// NewServer builds the dashboard and every route. Nothing runs until
// ListenAndServe (or Start) is called.
func NewServer(cfg *config.Config, log *zap.Logger, version string) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if version == "" {
		version = "dev"
	}

	view, err := dashboard.NewView(web.Page(), log.Named("view"))
	if err != nil {
		return nil, fmt.Errorf("dashboard setup failed: %w", err)
	}
	toast := dashboard.NewToaster(view, cfg.Dashboard.ToastDuration)
	loading := dashboard.NewLoading(view)

	client := apiclient.New(cfg.Backend, cfg.Dashboard.PageHost,
		apiclient.WithLogger(log.Named("apiclient")),
		apiclient.WithNotifier(toast),
		apiclient.WithUserAgent("top10/"+version),
	)
	lookup := apiclient.New(cfg.Backend, cfg.Dashboard.PageHost,
		apiclient.WithLogger(log.Named("lookup")),
		apiclient.WithBreaker(cfg.Breaker),
		apiclient.WithUserAgent("top10/"+version),
	)
	loader := dashboard.NewLoader(client, view, toast, loading, cfg.Dashboard, log.Named("loader"))

	srv := &Server{
		cfg:     cfg,
		log:     log,
		version: version,
		client:  client,
		lookup:  lookup,
		view:    view,
		loader:  loader,
		sched:   dashboard.NewScheduler(loader, cfg.Dashboard.RefreshInterval, log.Named("scheduler")),
		wsHub:   NewWSHub(log.Named("ws")),
	}
	view.SetPublisher(srv.wsHub)

	if cfg.Backend.Upstream != "" {
		srv.proxy, err = newBackendProxy(cfg.Backend.Upstream, log.Named("proxy"))
		if err != nil {
			return nil, err
		}
	}

	srv.router = srv.buildRouter()
	return srv, nil
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Start runs the websocket hub and the refresh scheduler until ctx ends.
func (s *Server) Start(ctx context.Context) {
	go s.wsHub.Run(ctx)
	go func() {
		if err := s.sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("scheduler stopped", zap.Error(err))
		}
	}()
}

// ListenAndServe starts the HTTP server with graceful shutdown on
// SIGINT/SIGTERM.
func (s *Server) ListenAndServe(addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("dashboard listening", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(infra.RequestLogger(s.log.Named("http")))
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Page
	r.Get("/", s.handleIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.StaticFS())))

	// Health & metrics
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// Page controls
	r.Route("/dashboard", func(r chi.Router) {
		r.Post("/refresh", s.handleRefresh)
		r.Post("/collect", s.handleCollect)
		r.Get("/export", s.handleExport)
		r.Get("/state", s.handleState)
	})

	// Live patches
	r.Get("/ws", s.handleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/config", s.handleGetConfig)
		r.Get("/token/{address}", s.handleToken)
	})

	// Same-origin backend API
	if s.proxy != nil {
		r.Handle(s.cfg.Backend.APIPath+"/*", s.proxy)
	}

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ActionResponse acknowledges a background dashboard action.
type ActionResponse struct {
	Action string `json:"action"`
	Status string `json:"status"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	html, err := s.view.HTML()
	if err != nil {
		s.log.Error("render dashboard", zap.Error(err))
		http.Error(w, "dashboard not available", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html)) //nolint:errcheck
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	loc := utils.LoadLocation(s.cfg.Dashboard.Timezone)
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":            "ok",
			"version":           s.version,
			"backend":           s.client.BaseURL(),
			"websocket_clients": s.wsHub.ClientCount(),
			"time":              utils.FormatTimestamp(time.Now(), loc),
		},
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.trigger(w, dashboard.ActionRefresh)
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	s.trigger(w, dashboard.ActionCollect)
}

func (s *Server) trigger(w http.ResponseWriter, a dashboard.Action) {
	if !s.sched.Trigger(a) {
		writeError(w, http.StatusServiceUnavailable, "dashboard is shutting down")
		return
	}
	writeJSON(w, http.StatusAccepted, APIResponse{
		Success: true,
		Data:    ActionResponse{Action: string(a), Status: "accepted"},
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.loader.ExportURL(), http.StatusFound)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.view.State()})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	address, err := utils.NormalizeAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	detail := s.lookup.TokenDetail(r.Context(), address)
	if detail == nil {
		writeError(w, http.StatusBadGateway, "token lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: detail})
}

// ============================================================
// Helpers
// ============================================================

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{Success: false, Error: msg})
}
