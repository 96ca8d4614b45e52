package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/tradelog_backend/config"
	"bitbucket.org/mmdatafocus/tradelog_backend/handlers"
	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"bitbucket.org/mmdatafocus/tradelog_backend/repository"
	"bitbucket.org/mmdatafocus/tradelog_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("tradelog-backend")

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// readinessGate answers /healthz at once and 503 for everything else until
// the application router is installed.
type readinessGate struct {
	app atomic.Pointer[http.Handler]
}

func (g *readinessGate) ready(h http.Handler) {
	g.app.Store(&h)
}

func (g *readinessGate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/healthz" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	app := g.app.Load()
	if app == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"service starting"}`))
		return
	}
	(*app).ServeHTTP(w, r)
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start listening before dependencies are ready; the gate returns 503 meanwhile.
	gate := &readinessGate{}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           gate,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	store, sessions, ledgerOpts, closeDeps := connectDependencies(logger)
	defer closeDeps()

	ledger := workflow.NewLedger(store, logger, config.LoadLedgerSettings(), append(ledgerOpts, workflow.WithTracer(tracer))...)
	accounts := workflow.NewAccounts(store, sessions, logger)
	h := handlers.New(ledger, accounts, logger)

	var extra []gin.HandlerFunc
	if rl := rateLimiterFromEnv(); rl != nil {
		extra = append(extra, rl.RateLimitMiddleware)
	}
	gate.ready(handlers.NewRouter(h, accounts, extra...))

	logger.WithFields(logrus.Fields{
		"info":   "Connection Established",
		"driver": config.StoreDriver(),
	}).Info("listening on :", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}

// connectDependencies picks the store by STORE_DRIVER. The mysql driver
// blocks until MySQL and Redis answer, then migrates unless SKIP_MIGRATIONS
// is set. The sqlite driver runs without Redis and keeps sessions in memory.
func connectDependencies(logger *logrus.Logger) (repository.Store, workflow.SessionStore, []workflow.LedgerOption, func()) {
	if config.StoreDriver() == config.StoreDriverSqlite {
		path := config.SqlitePath()
		db, err := config.OpenSqlite(path)
		if err != nil {
			logger.WithFields(logrus.Fields{"field": "store", "path": path}).Fatal(err.Error())
		}
		if err := models.MigrateTable(db); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err.Error())
		}
		logger.WithFields(logrus.Fields{"field": "store", "path": path}).Warn("STORE_DRIVER=sqlite; single connection, no row locks, sessions lost on restart")
		closeDeps := func() {
			if sqlDB, err := db.DB(); err == nil && sqlDB != nil {
				_ = sqlDB.Close()
			}
		}
		return repository.NewGormStore(db), workflow.NewMemorySessionStore(), nil, closeDeps
	}

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	if !config.SkipMigrations() {
		if err := models.MigrateTable(db); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	closeDeps := func() {
		if sqlDB, err := db.DB(); err == nil && sqlDB != nil {
			_ = sqlDB.Close()
		}
		if rdb := config.GetRedisDB(); rdb != nil {
			_ = rdb.Close()
		}
	}
	opts := []workflow.LedgerOption{workflow.WithOwnerLocker(config.GetRedisLock())}
	return repository.NewGormStore(db), workflow.NewRedisSessionStore(), opts, closeDeps
}

// rateLimiterFromEnv enables rate limiting when RATE_LIMIT_ENABLED=true.
// - RATE_LIMIT_WINDOW_SECONDS=60
// - RATE_LIMIT_MAX_REQUESTS=600
func rateLimiterFromEnv() *RateLimiter {
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		return nil
	}
	client := config.GetRedisDB()
	if client == nil {
		return nil
	}
	limit := int64(600)
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}
	windowSec := int64(60)
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			windowSec = n
		}
	}
	return NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Middleware function to check rate limits.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := "ratelimit:" + c.ClientIP()

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if count == 1 {
		if err := rl.client.Expire(c.Request.Context(), key, rl.window).Err(); err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}
