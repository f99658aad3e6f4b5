package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ipcheck-tools/internal/infrastructure/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// Connect 建立 PostgreSQL 連線池；若未設定 DSN 則回傳 nil。
// driver 可為 pgx（預設）或 postgres（lib/pq）。
func Connect(ctx context.Context, cfg config.DBConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, nil
	}

	driver, err := driverName(cfg.Driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.MaxIdleTime)

	pingCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func driverName(d string) (string, error) {
	switch d {
	case "", "pgx":
		return "pgx", nil
	case "postgres", "pq":
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported db driver %q", d)
	}
}
