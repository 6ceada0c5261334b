package middleware

import (
	"net/http"
	"strings"
)

// CORS 生成允许指定来源访问的跨域中间件。
// CMS 管理端与站点前端跑在独立域名上，上传与文件管理接口都要过这里。
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		value := strings.TrimSpace(origin)
		if value == "" {
			continue
		}
		if value == "*" {
			allowAll = true
			break
		}
		allowed[value] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := resolveOrigin(r.Header.Get("Origin"), allowAll, allowed)
			if origin != "" {
				headers := w.Header()
				headers.Set("Access-Control-Allow-Origin", origin)
				headers.Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
				headers.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
				headers.Set("Access-Control-Max-Age", "600")
				if origin != "*" {
					headers.Add("Vary", "Origin")
					headers.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions && origin != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func resolveOrigin(origin string, allowAll bool, allowed map[string]struct{}) string {
	if origin == "" {
		return ""
	}
	if allowAll {
		return "*"
	}
	if _, ok := allowed[origin]; ok {
		return origin
	}
	return ""
}
