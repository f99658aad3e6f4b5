package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

var errNoMigrations = errors.New("找不到任何 .sql migration 檔案")

// migrationFiles 依檔名排序回傳目錄下的 .sql 檔。
func migrationFiles(dir string) ([]string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("解析 migrations 路徑失敗: %w", err)
	}
	if _, err := os.Stat(absDir); err != nil {
		return nil, fmt.Errorf("migrations 目錄不存在: %w", err)
	}
	files, err := filepath.Glob(filepath.Join(absDir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("讀取 migrations 失敗: %w", err)
	}
	if len(files) == 0 {
		return nil, errNoMigrations
	}
	sort.Strings(files)
	return files, nil
}
