package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/netxfw/netguard/internal/utils/logger"
)

// TokenHeader is the alternative to "Authorization: Bearer".
const TokenHeader = "X-NetGuard-Token"

// withAuth checks the static web.token. An empty token disables the check.
// withAuth 校验静态 web.token。令牌为空时不做校验。
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expected := s.config.GetWebConfig().Token
		if expected == "" {
			next.ServeHTTP(w, r)
			return
		}

		// 1. Authorization: Bearer <token>
		// 1. 检查授权头
		token := ""
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimPrefix(auth, "Bearer ")
		}
		// 2. Token header
		// 2. 检查令牌头
		if token == "" {
			token = r.Header.Get(TokenHeader)
		}

		if token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1 {
			next.ServeHTTP(w, r)
			return
		}

		logger.Get(r.Context()).Warnw("unauthorized API request", "security", true, "path", r.URL.Path, "remote", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	})
}
