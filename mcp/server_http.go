package mcp

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/lukman83/carizon/internal/api"
	"github.com/lukman83/carizon/internal/logger"
	"github.com/lukman83/carizon/internal/market"
)

const shutdownTimeout = 10 * time.Second

// NewHTTPHandler serves MCP on /mcp, the REST API under /api/ and an
// unauthenticated /healthz. A non-empty apiKey guards /mcp and /api/ with
// Bearer auth.
func NewHTTPHandler(svc *market.Service, apiKey string, log logger.Logger) http.Handler {
	mcpServer := server.NewStreamableHTTPServer(newMCPServer(svc), server.WithStateLess(true))

	rest := http.NewServeMux()
	api.New(svc, log).Register(rest)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	var mcpHandler http.Handler = mcpServer
	var restHandler http.Handler = rest
	if apiKey != "" {
		mcpHandler = bearerAuth(apiKey, mcpHandler)
		restHandler = bearerAuth(apiKey, restHandler)
	}
	mux.Handle("/mcp", mcpHandler)
	mux.Handle("/api/", restHandler)
	return mux
}

// ServeHTTP runs the HTTP server until ctx is done, then shuts it down
// gracefully.
func ServeHTTP(ctx context.Context, addr, apiKey string, svc *market.Service, log logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      NewHTTPHandler(svc, apiKey, log),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("carizon HTTP server listening",
			logger.String("addr", addr),
			logger.String("source", svc.SourceName()),
			logger.Bool("auth", apiKey != ""),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func bearerAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="carizon"`)
			http.Error(w, `{"error":"missing Authorization header"}`, http.StatusUnauthorized)
			return
		}
		token, found := strings.CutPrefix(auth, "Bearer ")
		if !found || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="carizon", error="invalid_token"`)
			http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
