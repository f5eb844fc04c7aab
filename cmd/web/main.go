package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"slabdesk/internal/config"
	"slabdesk/pkg/logger"
	"slabdesk/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	appLogger := logger.New(cfg.Environment)
	defer appLogger.Sync()

	absDir, err := filepath.Abs(cfg.WebDir)
	if err != nil {
		appLogger.Fatal("Failed to resolve web directory", zap.String("dir", cfg.WebDir), zap.Error(err))
	}
	if _, err := os.Stat(absDir); os.IsNotExist(err) {
		appLogger.Fatal("Web directory does not exist", zap.String("dir", absDir))
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	handler, err := newHandler(absDir, cfg.APIURL, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to build web handler", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.WebPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("🚀 Starting Slabdesk web console",
			zap.String("dir", absDir),
			zap.String("url", "http://localhost:"+cfg.WebPort),
			zap.String("api", cfg.APIURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Web console exited")
}

// newHandler serves dir as static files and forwards /api/v1/* to apiURL.
func newHandler(dir, apiURL string, log *zap.Logger) (http.Handler, error) {
	proxy, err := newProxy(apiURL, log)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RecoveryHandler(log))

	router.Any("/api/v1/*path", gin.WrapH(proxy))
	router.NoRoute(gin.WrapH(http.FileServer(http.Dir(dir))))
	return router, nil
}

// newProxy keeps the incoming path and query untouched; only the scheme
// and host are rewritten.
func newProxy(apiURL string, log *zap.Logger) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(apiURL)
	if err != nil {
		return nil, err
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, errors.New("api url must be absolute: " + apiURL)
	}

	proxy := &httputil.ReverseProxy{
		Director: func(req *http.Request) {
			req.URL.Scheme = target.Scheme
			req.URL.Host = target.Host
			req.Host = target.Host
			if _, ok := req.Header["User-Agent"]; !ok {
				req.Header.Set("User-Agent", "")
			}
			log.Debug("proxy",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("query", req.URL.RawQuery),
			)
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Warn("API unreachable", zap.String("path", r.URL.Path), zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"UpstreamError","message":"API unreachable"}`))
		},
	}
	// The API sets its own CORS headers; drop them so the browser sees one set.
	proxy.ModifyResponse = func(resp *http.Response) error {
		for _, h := range []string{
			"Access-Control-Allow-Origin",
			"Access-Control-Allow-Methods",
			"Access-Control-Allow-Headers",
			"Access-Control-Expose-Headers",
			"Access-Control-Max-Age",
		} {
			resp.Header.Del(h)
		}
		return nil
	}
	return proxy, nil
}
