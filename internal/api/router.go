package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mediastore/internal/config"
	msmiddleware "mediastore/internal/middleware"
)

// NewRouter 构建 HTTP 路由，集中注册所有对外服务的端点。
func NewRouter(cfg *config.Config, storageHandler *StorageHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(msmiddleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(msmiddleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
	r.Use(msmiddleware.Metrics())

	// 健康检查不需要鉴权
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Prometheus 指标端点
	r.Handle("/metrics", promhttp.Handler())

	if storageHandler != nil {
		r.Route("/api", func(r chi.Router) {
			if cfg.AuthEnabled {
				// 鉴权属于调用方层，存储核心自身不做授权判断
				if cfg.JWTSecret != "" || cfg.JWKSURL != "" {
					r.Use(msmiddleware.BearerAuth(cfg.JWKSURL, cfg.JWTSecret))
				} else {
					r.Use(msmiddleware.APIKeyAuth(cfg.APIKeys))
				}
			}
			storageHandler.RegisterRoutes(r)
		})
	}

	return r
}
