package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/pitix_pos/config"
	"github.com/mmdatafocus/pitix_pos/models"
	"github.com/mmdatafocus/pitix_pos/pos"
	"github.com/mmdatafocus/pitix_pos/possync"
	"github.com/mmdatafocus/pitix_pos/utils"
	"github.com/sirupsen/logrus"
)

const defaultPort = "7680"

func main() {
	port := os.Getenv("POS_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	db := config.OpenDatabaseWithRetry()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	if !utils.EnvBoolDefault("SKIP_MIGRATIONS", false) {
		if err := models.MigrateTables(db); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err)
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	remote, err := possync.NewHTTPRemote()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "remote"}).Fatal(err)
	}

	monitor := possync.NewMonitor(remote, logger, utils.DurationFromEnvSeconds("POS_PROBE_INTERVAL_SECONDS", 10*time.Second))
	online := monitor.Probe(sigCtx)

	service := pos.NewService(db, remote, logger)
	if err := service.Bootstrap(sigCtx, online); err != nil {
		logger.WithFields(logrus.Fields{"field": "bootstrap"}).Fatal(err)
	}

	driver := possync.NewDriver(db, remote, monitor, logger)
	if _, lockClient := config.OpenRedis(sigCtx); lockClient != nil {
		driver.UseLocker(possync.NewRedisLocker(lockClient, logger))
	}

	go monitor.Run(sigCtx)
	go driver.Run(sigCtx)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if allowedOrigins != "" {
		corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
	} else {
		// till UI is served from the same box; keep dev setups friction-free
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	r.Use(cors.New(corsConfig))
	r.Use(requestLogger(logger))
	r.Use(gin.Recovery())

	handlers := pos.NewHandlers(service, driver, monitor, db, logger)
	handlers.Register(r)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	logger.WithFields(logrus.Fields{
		"port":   port,
		"online": online,
	}).Info("pos terminal ready")

	select {
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.WithFields(logrus.Fields{"field": "server"}).Error(err)
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		logger.WithFields(logrus.Fields{
			"status":         c.Writer.Status(),
			"method":         c.Request.Method,
			"path":           c.Request.URL.Path,
			"latency":        latency.String(),
			"correlation_id": cid,
		}).Info("request")
	}
}
