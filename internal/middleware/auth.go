package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mtech-resorts/cashdesk/internal/auth"
)

func ValidateAuth(h http.Handler, sugar *zap.SugaredLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is missing", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			http.Error(w, "Invalid token format", http.StatusUnauthorized)
			return
		}

		UUID, err := auth.ValidateJWT(tokenString)
		if err != nil {
			sugar.Errorw("Invalid token", "error", err)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		r.Header.Set("UUID", UUID)

		h.ServeHTTP(w, r)
	})
}

// APIKey guards machine-to-machine routes (kiosk, click-and-collect) with a
// shared x-api-key header.
func APIKey(key string) Middleware {
	return func(h http.Handler, sugar *zap.SugaredLogger) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("x-api-key") != key {
				sugar.Info("rejected request with bad api key")
				http.Error(w, "invalid api key", http.StatusUnauthorized)
				return
			}
			h.ServeHTTP(w, r)
		})
	}
}
