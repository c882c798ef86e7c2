// Package httpapi exposes the attendance system over HTTP with gin.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"faceattend/internal/attendance"
	"faceattend/internal/auth"
	"faceattend/internal/metrics"
	"faceattend/internal/model"
	"faceattend/internal/queue"
)

// Store is the persistence the handlers need beyond the recorder.
type Store interface {
	Ping(ctx context.Context) error
	RegisterUser(ctx context.Context, u *model.User) error
	ListUsers(ctx context.Context) ([]model.User, error)
	ListDepartments(ctx context.Context) ([]model.Department, error)
	Stats(ctx context.Context, date string) (model.Stats, error)
	AttendanceOn(ctx context.Context, date string) ([]model.AttendanceRecord, error)
	DeleteAttendance(ctx context.Context, rollNumber, date string) error
	DeleteAllAttendance(ctx context.Context, date string) (int64, error)
	AdminStore
}

// AdminStore persists console principals.
type AdminStore interface {
	CreateAdmin(ctx context.Context, a *model.Admin) error
	FindAdmin(ctx context.Context, username string) (*model.Admin, error)
}

// Config carries the settings handlers read per request.
type Config struct {
	JWTIssuer     string
	JWTSigningKey string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	MaxImageBytes int64
	// Location and Now must match the recorder's so "today" agrees.
	Location *time.Location
	Now      func() time.Time
}

// Handler serves the HTTP API.
type Handler struct {
	recorder *attendance.Recorder
	faces    attendance.FaceCounter
	store    Store
	queue    queue.Queue
	metrics  *metrics.Metrics
	cfg      Config
}

// New builds a Handler. q and m may be nil.
func New(rec *attendance.Recorder, faces attendance.FaceCounter, store Store, q queue.Queue, m *metrics.Metrics, cfg Config) *Handler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 10 << 20
	}
	return &Handler{recorder: rec, faces: faces, store: store, queue: q, metrics: m, cfg: cfg}
}

// Register mounts every route on r. captureLimit guards the capture
// endpoints and may be nil.
func (h *Handler) Register(r gin.IRouter, captureLimit gin.HandlerFunc) {
	if captureLimit == nil {
		captureLimit = func(c *gin.Context) { c.Next() }
	}

	r.GET("/healthz", h.Healthz)

	v1 := r.Group("/v1")
	v1.GET("/stats", h.Stats)
	v1.GET("/departments", h.ListDepartments)
	v1.POST("/users", h.RegisterUser)
	v1.POST("/captures", captureLimit, h.Capture)
	v1.POST("/admin/login", h.Login)
	v1.POST("/admin/refresh", h.Refresh)

	admin := v1.Group("/admin", auth.AdminAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))
	admin.POST("/captures", captureLimit, h.AdminCapture)
	admin.POST("/admins", h.CreateAdmin)
	admin.GET("/users", h.ListUsers)
	admin.GET("/attendance/today", h.TodayAttendance)
	admin.DELETE("/attendance/:roll_number", h.DeleteAttendance)
	admin.DELETE("/attendance", h.DeleteAllAttendance)
}

func (h *Handler) today() string {
	return h.cfg.Now().In(h.cfg.Location).Format("2006-01-02")
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Healthz reports database and queue reachability.
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbHealthy := h.store.Ping(ctx) == nil
	queueHealthy := true
	if p, ok := h.queue.(pinger); ok {
		queueHealthy = p.Ping(ctx) == nil
	}

	status := http.StatusOK
	if !dbHealthy || !queueHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "db": dbHealthy, "queue": queueHealthy})
}

// Stats serves the landing page counters.
func (h *Handler) Stats(c *gin.Context) {
	st, err := h.store.Stats(c.Request.Context(), h.today())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

// ListDepartments serves the department picker.
func (h *Handler) ListDepartments(c *gin.Context) {
	depts, err := h.store.ListDepartments(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"departments": depts})
}
