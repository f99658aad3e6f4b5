package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	appipdistance "ipcheck-tools/internal/application/ipdistance"
	domain "ipcheck-tools/internal/domain/ipdistance"
	"ipcheck-tools/internal/infra/memory"
	"ipcheck-tools/internal/infrastructure/config"
	"ipcheck-tools/internal/infrastructure/db"
	"ipcheck-tools/internal/infrastructure/external/geocode"
	"ipcheck-tools/internal/infrastructure/external/geoip"
	"ipcheck-tools/internal/infrastructure/persistence/postgres"
	"ipcheck-tools/internal/infrastructure/persistence/redisstore"
	httpapi "ipcheck-tools/internal/interface/http"

	"k8s.io/klog/v2"
)

const startupTimeout = 10 * time.Second

// app 持有組裝完成的 HTTP server 與需要在結束時關閉的資源。
type app struct {
	cfg     config.Config
	server  *httpapi.Server
	closers []func() error
}

func newApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.LoadFromFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	klog.InfoS("Configuration loaded", "env", cfg.App.Env, "addr", cfg.HTTP.Addr, "store", cfg.Store.Driver)
	return buildApp(ctx, cfg)
}

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	cfg = config.ApplyDefaults(cfg)
	a := &app{cfg: cfg}

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	pool, err := db.Connect(startCtx, cfg.DB)
	switch {
	case err != nil:
		klog.ErrorS(err, "Database connection failed, result archive disabled")
		pool = nil
	case pool == nil:
		klog.InfoS("No DB_DSN provided, result archive disabled")
	default:
		a.closers = append(a.closers, pool.Close)
		klog.InfoS("Database connected", "driver", cfg.DB.Driver)
	}

	store, err := a.sessionStore(startCtx)
	if err != nil {
		a.Close()
		return nil, err
	}

	httpClient := &http.Client{}
	resolver := geoip.NewResolver([]geoip.Provider{
		geoip.IPAPIProvider(cfg.Geo.IPAPIURL, cfg.Geo.UserAgent),
		geoip.IPAPICoProvider(cfg.Geo.IPAPICoURL),
		geoip.IPInfoProvider(cfg.Geo.IPInfoURL),
	}, httpClient, geoip.Options{
		Timeout:           cfg.Geo.Timeout,
		MaxRetries:        cfg.Geo.MaxRetries,
		SyntheticFallback: cfg.Geo.SyntheticFallback,
		Production:        cfg.App.Production(),
	})
	geocoder := geocode.NewClient(geocode.Config{
		NominatimURL:   cfg.Geocode.NominatimURL,
		TimezoneURL:    cfg.Geocode.TimezoneURL,
		TimezoneAPIKey: cfg.Geocode.TimezoneAPIKey,
		UserAgent:      cfg.Geocode.UserAgent,
	}, httpClient)

	// pool 為 nil 時 repo 為 typed nil，由 service 與 server 視為停用。
	var repo *postgres.ResultRepo
	if pool != nil {
		repo = postgres.NewResultRepo(pool)
	}

	sessions := appipdistance.NewService(store, resolver, appipdistance.Options{
		PublicResults: cfg.IPDistance.PublicResults,
		PublicHost:    cfg.IPDistance.PublicHost,
		SecureLinks:   cfg.App.Production(),
		Archive:       repo,
	})

	a.server = httpapi.NewServer(cfg, httpapi.Deps{
		Sessions:     sessions,
		Resolver:     resolver,
		Geocoder:     geocoder,
		Stats:        repo,
		DB:           pool,
		StoreBackend: cfg.Store.Driver,
	})
	return a, nil
}

func (a *app) sessionStore(ctx context.Context) (domain.SessionStore, error) {
	switch a.cfg.Store.Driver {
	case "redis":
		client, err := redisstore.Connect(ctx, a.cfg.Store.RedisAddr, a.cfg.Store.RedisPassword, a.cfg.Store.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("connect redis session store: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		klog.InfoS("Using redis session store", "addr", a.cfg.Store.RedisAddr)
		return redisstore.NewSessionStore(client), nil
	default:
		klog.InfoS("Using in-memory session store", "cleanupInterval", a.cfg.Store.CleanupInterval)
		return memory.NewStore(a.cfg.Store.CleanupInterval), nil
	}
}

// Close 依建立的相反順序釋放資源。
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

