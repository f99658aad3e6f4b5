package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const EnvProduction = "production"

// Config 儲存 HTTP API 及外部相依的執行設定。
type Config struct {
	App        AppConfig        `yaml:"app"`
	HTTP       HTTPConfig       `yaml:"http"`
	DB         DBConfig         `yaml:"db"`
	Store      StoreConfig      `yaml:"store"`
	Geo        GeoConfig        `yaml:"geo"`
	Geocode    GeocodeConfig    `yaml:"geocode"`
	IPDistance IPDistanceConfig `yaml:"ipdistance"`
	SpeedTest  SpeedTestConfig  `yaml:"speedtest"`
}

type AppConfig struct {
	Env string `yaml:"env"`
}

// Production 回傳是否為正式環境。
func (a AppConfig) Production() bool {
	return strings.EqualFold(a.Env, EnvProduction)
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DBConfig struct {
	Driver       string        `yaml:"driver"`
	DSN          string        `yaml:"dsn"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	MaxIdleTime  time.Duration `yaml:"max_idle_time"`
}

// StoreConfig 選擇 session 儲存後端：memory（預設）或 redis。
type StoreConfig struct {
	Driver          string        `yaml:"driver"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	RedisAddr       string        `yaml:"redis_addr"`
	RedisPassword   string        `yaml:"redis_password"`
	RedisDB         int           `yaml:"redis_db"`
}

type GeoConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	UserAgent         string        `yaml:"user_agent"`
	IPAPIURL          string        `yaml:"ip_api_url"`
	IPAPICoURL        string        `yaml:"ipapi_co_url"`
	IPInfoURL         string        `yaml:"ipinfo_url"`
	SyntheticFallback bool          `yaml:"synthetic_fallback"`
}

type GeocodeConfig struct {
	NominatimURL   string `yaml:"nominatim_url"`
	TimezoneURL    string `yaml:"timezone_url"`
	TimezoneAPIKey string `yaml:"timezone_api_key"`
	UserAgent      string `yaml:"user_agent"`
}

type IPDistanceConfig struct {
	PublicHost    string `yaml:"public_host"`
	PublicResults bool   `yaml:"public_results"`
}

type SpeedTestConfig struct {
	DefaultSize int64 `yaml:"default_size"`
	MaxSize     int64 `yaml:"max_size"`
}

// LoadFromFile 從 YAML 組態檔載入設定；檔案不存在時僅使用預設值與環境變數。
func LoadFromFile(path string) (Config, error) {
	// 嘗試載入 .env 檔案（如果存在）
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg = applyEnv(cfg)
	cfg = ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults 補上未設定的欄位。
func ApplyDefaults(cfg Config) Config {
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if len(cfg.HTTP.CORSOrigins) == 0 {
		cfg.HTTP.CORSOrigins = []string{"*"}
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.DB.Driver == "" {
		cfg.DB.Driver = "pgx"
	}
	if cfg.DB.MaxOpenConns == 0 {
		cfg.DB.MaxOpenConns = 5
	}
	if cfg.DB.MaxIdleConns == 0 {
		cfg.DB.MaxIdleConns = 2
	}
	if cfg.DB.MaxIdleTime == 0 {
		cfg.DB.MaxIdleTime = 15 * time.Minute
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "memory"
	}
	if cfg.Store.CleanupInterval == 0 {
		cfg.Store.CleanupInterval = 5 * time.Minute
	}
	if cfg.Store.RedisAddr == "" {
		cfg.Store.RedisAddr = "localhost:6379"
	}
	if cfg.Geo.Timeout == 0 {
		cfg.Geo.Timeout = 5 * time.Second
	}
	if cfg.Geo.MaxRetries == 0 {
		cfg.Geo.MaxRetries = 3
	}
	if cfg.Geo.UserAgent == "" {
		cfg.Geo.UserAgent = "IPCheck/1.0"
	}
	if cfg.Geo.IPAPIURL == "" {
		cfg.Geo.IPAPIURL = "http://ip-api.com"
	}
	if cfg.Geo.IPAPICoURL == "" {
		cfg.Geo.IPAPICoURL = "https://ipapi.co"
	}
	if cfg.Geo.IPInfoURL == "" {
		cfg.Geo.IPInfoURL = "https://ipinfo.io"
	}
	if cfg.Geocode.NominatimURL == "" {
		cfg.Geocode.NominatimURL = "https://nominatim.openstreetmap.org"
	}
	if cfg.Geocode.TimezoneURL == "" {
		cfg.Geocode.TimezoneURL = "https://api.timezonedb.com"
	}
	if cfg.Geocode.UserAgent == "" {
		cfg.Geocode.UserAgent = "IPCheck-Tools-Geolocation/1.0 (https://ipcheck.tools)"
	}
	if cfg.IPDistance.PublicHost == "" {
		cfg.IPDistance.PublicHost = "ipcheck.tools"
	}
	if cfg.SpeedTest.DefaultSize == 0 {
		cfg.SpeedTest.DefaultSize = 5 << 20
	}
	if cfg.SpeedTest.MaxSize == 0 {
		cfg.SpeedTest.MaxSize = 100 << 20
	}
	if cfg.App.Production() {
		cfg.Geo.SyntheticFallback = false
	}
	return cfg
}

// Validate 檢查互相依賴的設定。
func (c Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported store.driver %q", c.Store.Driver)
	}
	switch c.DB.Driver {
	case "pgx", "postgres":
	default:
		return fmt.Errorf("unsupported db.driver %q", c.DB.Driver)
	}
	if c.SpeedTest.DefaultSize > c.SpeedTest.MaxSize {
		return fmt.Errorf("speedtest.default_size exceeds speedtest.max_size")
	}
	return nil
}

func applyEnv(cfg Config) Config {
	if val := os.Getenv("APP_ENV"); val != "" {
		cfg.App.Env = val
	}
	if val := os.Getenv("HTTP_ADDR"); val != "" {
		cfg.HTTP.Addr = val
	}
	if val := os.Getenv("PORT"); val != "" {
		cfg.HTTP.Addr = ":" + val
	}
	if val := os.Getenv("CORS_ORIGINS"); val != "" {
		cfg.HTTP.CORSOrigins = splitList(val)
	}
	if val := os.Getenv("DB_DRIVER"); val != "" {
		cfg.DB.Driver = val
	}
	if val := os.Getenv("DB_DSN"); val != "" {
		cfg.DB.DSN = val
	}
	if val := os.Getenv("STORE_DRIVER"); val != "" {
		cfg.Store.Driver = val
	}
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		cfg.Store.RedisAddr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Store.RedisPassword = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Store.RedisDB = n
		}
	}
	if val := os.Getenv("GEO_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Geo.Timeout = d
		}
	}
	if val := os.Getenv("GEO_SYNTHETIC_FALLBACK"); val != "" {
		cfg.Geo.SyntheticFallback = (val == "true")
	}
	if val := os.Getenv("TIMEZONE_API_KEY"); val != "" {
		cfg.Geocode.TimezoneAPIKey = val
	}
	if val := os.Getenv("IPDISTANCE_PUBLIC_HOST"); val != "" {
		cfg.IPDistance.PublicHost = val
	}
	if val := os.Getenv("IPDISTANCE_PUBLIC_RESULTS"); val != "" {
		cfg.IPDistance.PublicResults = (val == "true")
	}
	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
