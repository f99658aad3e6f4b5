package main

import (
	"database/sql"
	"flag"
	"os"
	"path/filepath"

	"ipcheck-tools/internal/infrastructure/config"

	_ "github.com/lib/pq"
	"k8s.io/klog/v2"
)

func main() {
	klog.InitFlags(nil)
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	migrationsPath := flag.String("dir", "db/migrations", "path to migrations directory")
	flag.Parse()
	defer klog.Flush()

	cfg, err := config.LoadFromFile(*cfgPath)
	if err != nil {
		klog.Fatalf("讀取組態失敗: %v", err)
	}

	if cfg.DB.DSN == "" {
		klog.Fatal("config.db.dsn 未設定，無法執行 migration")
	}

	files, err := migrationFiles(*migrationsPath)
	if err != nil {
		klog.Fatal(err)
	}

	db, err := sql.Open("postgres", cfg.DB.DSN)
	if err != nil {
		klog.Fatalf("連線資料庫失敗: %v", err)
	}
	defer db.Close()

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			klog.Fatalf("讀取檔案 %s 失敗: %v", f, err)
		}
		klog.InfoS("執行 migration", "file", filepath.Base(f))
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			klog.Fatalf("執行 %s 失敗: %v", filepath.Base(f), err)
		}
	}

	klog.InfoS("Migration 完成", "count", len(files))
}
