package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"faceattend/internal/attendance"
	"faceattend/internal/config"
	"faceattend/internal/faceclient"
	"faceattend/internal/facedetect"
	"faceattend/internal/httpapi"
	"faceattend/internal/httpmiddleware"
	"faceattend/internal/metrics"
	"faceattend/internal/queue"
	"faceattend/internal/sqlstore"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := sqlstore.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	if err := db.SeedDepartments(ctx); err != nil {
		return err
	}
	if cfg.DefaultAdminPassword != "" {
		created, err := httpapi.EnsureAdmin(ctx, db, "admin", cfg.DefaultAdminPassword)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		if created {
			log.Println("created default admin account \"admin\"")
		}
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		// Nothing drains this in-process; once full, publishes fail fast and
		// the capture is answered without waiting.
		q = queue.NewInMemory(64)
	} else {
		redisClient := queue.NewRedisClient(cfg.RedisAddr)
		defer redisClient.Close()
		q = queue.NewRedisQueue(redisClient, cfg.QueueKey)
	}

	m := metrics.New(nil)
	faces, err := newFaceCounter(ctx, cfg)
	if err != nil {
		return err
	}
	faces = m.InstrumentCounter(faces)

	rec := attendance.NewRecorder(faces, db, attendance.Options{
		AllowArbitrarySelection: cfg.AllowAnonymousCapture,
		Location:                loc,
	})
	if rec.AllowsArbitrarySelection() {
		log.Println("WARNING: anonymous capture enabled; captures without a roll number are attributed to the first registered user")
	}

	h := httpapi.New(rec, faces, db, q, m, httpapi.Config{
		JWTIssuer:     cfg.JWTIssuer,
		JWTSigningKey: cfg.JWTSigningKey,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		MaxImageBytes: cfg.MaxImageBytes,
		Location:      loc,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	limiter := httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	h.Register(r, limiter.GinMiddleware())

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s (db=%s, faces=%s, queue=%s)", cfg.HTTPPort, db.Driver(), cfg.FaceBackend, cfg.QueueBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

func newFaceCounter(ctx context.Context, cfg config.App) (attendance.FaceCounter, error) {
	if cfg.FaceBackend == "remote" {
		fc := faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip)
		if cfg.FaceSkip {
			log.Println("WARNING: FACE_SKIP set, every image counts as one face")
			return fc, nil
		}
		if err := fc.Health(ctx); err != nil {
			log.Printf("WARNING: Face service not available: %v", err)
		} else {
			log.Println("Face service connected")
		}
		return fc, nil
	}

	p := facedetect.DefaultParams()
	p.ScaleFactor = cfg.FaceScaleFactor
	p.MinNeighbors = cfg.FaceMinNeighbors
	p.MinSize = cfg.FaceMinSize
	d, err := facedetect.Load(cfg.FaceCascadePath, p)
	if err != nil {
		return nil, fmt.Errorf("face detector: %w", err)
	}
	log.Printf("Face detector loaded from %s", cfg.FaceCascadePath)
	return d, nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
