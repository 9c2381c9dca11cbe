// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/saathi-labs/companion-api/internal/config"
	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/ledger"
	"github.com/saathi-labs/companion-api/internal/middleware"
)

// Elevator upgrades the caller's session to an admin session and returns
// the new cookie value.
type Elevator interface {
	ElevateAdmin(ctx context.Context, current *middleware.Identity) (string, error)
}

type CookieSetter interface {
	Set(w http.ResponseWriter, value string)
}

type Crediter interface {
	Credit(ctx context.Context, userID string, amount int, source string) (int, error)
}

type Handler struct {
	credentials config.AdminConfig
	elevator    Elevator
	cookies     CookieSetter
	analytics   AnalyticsRepository
	credits     Crediter
	dbStats     func() sql.DBStats
	redisStats  func() *redis.PoolStats
	redisPing   func(ctx context.Context) error
	dbPing      func(ctx context.Context) error
	validator   *validator.Validate
	logger      *slog.Logger
}

type HandlerConfig struct {
	Credentials config.AdminConfig
	Elevator    Elevator
	Cookies     CookieSetter
	Analytics   AnalyticsRepository
	Credits     Crediter
	DBStats     func() sql.DBStats
	RedisStats  func() *redis.PoolStats
	RedisPing   func(ctx context.Context) error
	DBPing      func(ctx context.Context) error
	Logger      *slog.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		credentials: cfg.Credentials,
		elevator:    cfg.Elevator,
		cookies:     cfg.Cookies,
		analytics:   cfg.Analytics,
		credits:     cfg.Credits,
		dbStats:     cfg.DBStats,
		redisStats:  cfg.RedisStats,
		redisPing:   cfg.RedisPing,
		dbPing:      cfg.DBPing,
		validator:   validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger,
	}
}

// RegisterRoutes mounts /admin. hostGuard and session run for every admin
// route; everything except login also needs the admin flag. mounts add
// other packages' admin endpoints to the guarded group.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	hostGuard, session func(http.Handler) http.Handler,
	mounts ...func(chi.Router),
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(hostGuard)
		r.Use(session)

		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Get("/analytics", h.GetAnalytics)
			r.Post("/add-coins", h.AddCoins)
			r.Get("/stats", h.GetSystemStats)
			r.Get("/stats/db", h.GetDatabaseStats)
			r.Get("/stats/redis", h.GetRedisStats)
			r.Get("/stats/runtime", h.GetRuntimeStats)

			for _, mount := range mounts {
				mount(r)
			}
		})
	})
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	if !h.checkCredentials(req.Username, req.Password) {
		h.logger.WarnContext(r.Context(), "admin login rejected",
			"host", r.Host,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		core.Unauthorized(w, "Invalid credentials")
		return
	}

	cookie, err := h.elevator.ElevateAdmin(r.Context(), middleware.GetSession(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	h.cookies.Set(w, cookie)
	core.OK(w, map[string]string{"message": "Admin login successful"})
}

// checkCredentials compares both fields in full so the response time does
// not reveal which one was wrong. Unset credentials disable admin login.
func (h *Handler) checkCredentials(username, password string) bool {
	if h.credentials.Username == "" || h.credentials.Password == "" {
		return false
	}
	userOK := core.SecureCompare(username, h.credentials.Username)
	passOK := core.SecureCompare(password, h.credentials.Password)
	return userOK && passOK
}

func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.analytics.Analytics(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, a)
}

type AddCoinsRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
	Coins  int    `json:"coins"  validate:"required,gt=0"`
}

type AddCoinsResponse struct {
	OldCoins int `json:"oldCoins"`
	NewCoins int `json:"newCoins"`
	Added    int `json:"added"`
}

func (h *Handler) AddCoins(w http.ResponseWriter, r *http.Request) {
	var req AddCoinsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	balance, err := h.credits.Credit(r.Context(), req.UserID, req.Coins, ledger.SourceAdmin)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "user")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "admin credited coins",
		"user_id", req.UserID,
		"coins", req.Coins,
	)

	core.OK(w, AddCoinsResponse{
		OldCoins: balance - req.Coins,
		NewCoins: balance,
		Added:    req.Coins,
	})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbHealthy := h.dbPing == nil || h.dbPing(ctx) == nil
	redisHealthy := h.redisPing == nil || h.redisPing(ctx) == nil

	core.OK(w, SystemStatsResponse{
		Database: DatabaseStatus{Healthy: dbHealthy, Stats: h.getDBStats()},
		Redis:    RedisStatus{Healthy: redisHealthy, Stats: h.getRedisStats()},
		Runtime:  readRuntimeStats(),
	})
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.getDBStats())
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.getRedisStats())
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, readRuntimeStats())
}

func readRuntimeStats() RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     mem.Alloc,
		MemSys:       mem.Sys,
		NumGC:        mem.NumGC,
	}
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	s := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: s.MaxOpenConnections,
		OpenConnections:    s.OpenConnections,
		InUse:              s.InUse,
		Idle:               s.Idle,
		WaitCount:          s.WaitCount,
		WaitDuration:       s.WaitDuration.String(),
		MaxIdleClosed:      s.MaxIdleClosed,
		MaxLifetimeClosed:  s.MaxLifetimeClosed,
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	s := h.redisStats()
	return &RedisPoolStats{
		Hits:       s.Hits,
		Misses:     s.Misses,
		Timeouts:   s.Timeouts,
		TotalConns: s.TotalConns,
		IdleConns:  s.IdleConns,
	}
}

type SystemStatsResponse struct {
	Database DatabaseStatus `json:"database"`
	Redis    RedisStatus    `json:"redis"`
	Runtime  RuntimeStats   `json:"runtime"`
}

type DatabaseStatus struct {
	Healthy bool         `json:"healthy"`
	Stats   *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"maxOpenConnections"`
	OpenConnections    int    `json:"openConnections"`
	InUse              int    `json:"inUse"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"waitCount"`
	WaitDuration       string `json:"waitDuration"`
	MaxIdleClosed      int64  `json:"maxIdleClosed"`
	MaxLifetimeClosed  int64  `json:"maxLifetimeClosed"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"totalConns"`
	IdleConns  uint32 `json:"idleConns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
	NumCPU       int    `json:"numCpu"`
	MemAlloc     uint64 `json:"memAllocBytes"`
	MemSys       uint64 `json:"memSysBytes"`
	NumGC        uint32 `json:"numGc"`
}
