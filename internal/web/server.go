package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/chefai/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer creates and configures the HTTP server for the browser UI.
func NewServer(o *ops.Orchestrator, version, bind string, port int, log *zap.Logger) *http.Server {
	if log == nil {
		log = zap.NewNop()
	}

	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		log.Fatal("failed to create template sub-FS", zap.Error(err))
	}

	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Fatal("failed to create static sub-FS", zap.Error(err))
	}

	h := &Handlers{
		o:        o,
		renderer: NewRenderer(templateSub, version, log),
		log:      log,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, pathWelcome, http.StatusFound)
	})
	mux.HandleFunc("GET /welcome", h.HandleWelcome)
	mux.HandleFunc("GET /sign_in", h.HandleSignInPage)
	mux.HandleFunc("POST /sign_in", h.HandleSignIn)
	mux.HandleFunc("GET /sign_up", h.HandleSignUpPage)
	mux.HandleFunc("POST /sign_up", h.HandleSignUp)
	mux.HandleFunc("POST /logout", h.HandleLogout)
	mux.HandleFunc("GET /main_page", h.HandleMain)
	mux.HandleFunc("POST /main_page/generate", h.HandleGenerate)
	mux.HandleFunc("GET /history_page", h.HandleHistory)
	mux.HandleFunc("POST /recipe/nutrition", h.HandleRecalculate)
	mux.HandleFunc("POST /recipe/export", h.HandleExport)

	// Static file server
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           securityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'none'; style-src 'self'; form-action 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info("chefai UI running", zap.String("url", "http://"+srv.Addr))

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
