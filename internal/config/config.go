package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 聚合服务启动需要的关键配置。
type Config struct {
	HTTPPort           string
	StorageRoot        string
	PublicBaseURL      string
	MaxUploadBytes     int64
	CORSAllowedOrigins []string
	RateLimitRequests  int
	RateLimitWindow    time.Duration
	// 鉴权配置（只作用于 HTTP 层，存储核心不感知）
	AuthEnabled bool
	APIKeys     []string
	JWTSecret   string
	JWKSURL     string
	// 日志配置
	LogLevel string
	LogFile  string
}

// Load 从环境变量加载配置，并提供默认值。
// 工作目录下存在 .env 时先行载入，便于本地开发。
func Load() (*Config, error) {
	// .env 不存在不是错误
	_ = godotenv.Load()

	port := envOrDefault("PORT", "8080")
	root := envOrDefault("STORAGE_ROOT", "./public/storage")

	maxUpload, err := parseInt64Env("MAX_UPLOAD_BYTES", 16<<20)
	if err != nil {
		return nil, err
	}

	corsOrigins := parseList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"http://localhost:5173"}
	}

	rateLimitRequests, err := parseIntEnv("RATE_LIMIT_REQUESTS", 60)
	if err != nil {
		return nil, err
	}

	rateLimitWindow, err := parseDurationEnv("RATE_LIMIT_WINDOW", time.Minute)
	if err != nil {
		return nil, err
	}

	authEnabled := parseBoolEnv("AUTH_ENABLED", true)
	apiKeys := parseList(os.Getenv("API_KEYS"))
	if authEnabled && len(apiKeys) == 0 && os.Getenv("JWT_SECRET") == "" && os.Getenv("JWKS_URL") == "" {
		// 开发环境默认 key
		apiKeys = []string{"dev-api-key-123456"}
	}

	return &Config{
		HTTPPort:           port,
		StorageRoot:        root,
		PublicBaseURL:      strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		MaxUploadBytes:     maxUpload,
		CORSAllowedOrigins: corsOrigins,
		RateLimitRequests:  rateLimitRequests,
		RateLimitWindow:    rateLimitWindow,
		AuthEnabled:        authEnabled,
		APIKeys:            apiKeys,
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWKSURL:            os.Getenv("JWKS_URL"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFile:            os.Getenv("LOG_FILE"),
	}, nil
}

func parseList(raw string) []string {
	if raw == "" {
		return nil
	}

	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("解析 %s 失败: %w", key, err)
	}
	if value <= 0 {
		return defaultValue, nil
	}
	return value, nil
}

func parseInt64Env(key string, defaultValue int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("解析 %s 失败: %w", key, err)
	}
	if value <= 0 {
		return defaultValue, nil
	}
	return value, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("解析 %s 失败: %w", key, err)
	}
	if value <= 0 {
		return defaultValue, nil
	}
	return value, nil
}

func parseBoolEnv(key string, defaultValue bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	lower := strings.ToLower(raw)
	return lower == "true" || lower == "1" || lower == "yes"
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
