package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"ipcheck-tools/internal"
	appipdistance "ipcheck-tools/internal/application/ipdistance"
	domain "ipcheck-tools/internal/domain/ipdistance"
	"ipcheck-tools/internal/infrastructure/config"
	"ipcheck-tools/internal/infrastructure/external/geocode"
	"ipcheck-tools/internal/infrastructure/persistence/postgres"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

const (
	errCodeBadRequest  = "BAD_REQUEST"
	errCodeNotFound    = "NOT_FOUND"
	errCodeUpstream    = "UPSTREAM_ERROR"
	errCodeUnavailable = "SERVICE_UNAVAILABLE"
	errCodeInternal    = "INTERNAL_ERROR"
)

// Geocoder 反查座標對應的地址與時區。
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (geocode.Result, error)
}

// StatsReader 讀取已完成比對的統計。
type StatsReader interface {
	Stats(ctx context.Context, since time.Time) (postgres.Stats, error)
	TopCountryPairs(ctx context.Context, limit int) ([]postgres.CountryPair, error)
}

// Deps 為 Server 需要的外部依賴；Stats 與 DB 可為 nil。
type Deps struct {
	Sessions     *appipdistance.Service
	Resolver     domain.Resolver
	Geocoder     Geocoder
	Stats        StatsReader
	DB           *sql.DB
	StoreBackend string
}

// Server 封裝 HTTP 路由與依賴。
type Server struct {
	cfg          config.Config
	engine       *gin.Engine
	handler      http.Handler
	sessions     *appipdistance.Service
	resolver     domain.Resolver
	geocoder     Geocoder
	stats        StatsReader
	db           *sql.DB
	storeBackend string
	startedAt    time.Time
}

// NewServer 建立 API 伺服器。
func NewServer(cfg config.Config, deps Deps) *Server {
	cfg = config.ApplyDefaults(cfg)
	if internal.IsNil(deps.Stats) {
		deps.Stats = nil
	}
	s := &Server{
		cfg:          cfg,
		sessions:     deps.Sessions,
		resolver:     deps.Resolver,
		geocoder:     deps.Geocoder,
		stats:        deps.Stats,
		db:           deps.DB,
		storeBackend: deps.StoreBackend,
		startedAt:    time.Now(),
	}
	if s.storeBackend == "" {
		s.storeBackend = cfg.Store.Driver
	}

	if cfg.App.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.ginLogger())
	s.registerRoutes()

	s.handler = corsHandler(cfg.HTTP.CORSOrigins).Handler(s.engine)
	return s
}

// Handler 回傳路由處理器，供 HTTP server 掛載。
func (s *Server) Handler() http.Handler {
	return s.handler
}

func corsHandler(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", "Origin", "Cache-Control", "X-Requested-With"},
		MaxAge:         600,
	})
}
