package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// BearerAuth 创建 Bearer JWT 鉴权中间件。
// HS256 用共享密钥本地验证；非对称算法走 JWKS（带自动刷新）。
// 验证成功后把 sub 声明作为 owner ID 存入 context。
func BearerAuth(jwksURL, jwtSecret string) func(http.Handler) http.Handler {
	var jwks *keyfunc.JWKS

	if jwksURL != "" {
		var err error
		jwks, err = keyfunc.Get(jwksURL, keyfunc.Options{
			RefreshInterval: time.Hour,
			RefreshErrorHandler: func(err error) {
				fmt.Printf("[AuthError] JWKS refresh failed: %v\n", err)
			},
		})
		if err != nil {
			fmt.Printf("[AuthWarning] JWKS init failed (%s): %v. Only HMAC tokens will verify.\n", jwksURL, err)
			jwks = nil
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing Authorization header")
				return
			}

			const prefix = "Bearer "
			if !strings.HasPrefix(authHeader, prefix) {
				writeAuthError(w, http.StatusUnauthorized, "invalid Authorization format, expected: Bearer <token>")
				return
			}

			tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
			if tokenString == "" {
				writeAuthError(w, http.StatusUnauthorized, "empty token")
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
					if jwtSecret != "" {
						return []byte(jwtSecret), nil
					}
					return nil, fmt.Errorf("hmac token but no secret configured")
				}
				if jwks != nil {
					return jwks.Keyfunc(token)
				}
				return nil, fmt.Errorf("no suitable verification method")
			})
			if err != nil || !token.Valid {
				writeAuthError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			var userID string
			if claims, ok := token.Claims.(jwt.MapClaims); ok {
				if sub, ok := claims["sub"].(string); ok {
					userID = sub
				}
			}
			if userID == "" {
				writeAuthError(w, http.StatusUnauthorized, "token missing sub claim")
				return
			}

			ctx := context.WithValue(r.Context(), OwnerContextKey{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
