package server

import (
	"net/http"

	"github.com/rs/zerolog"
)

// ProxyHandler relays /api requests to the backend origin. Requests from a browser
// with a session but no Authorization header get the stored access token attached.
func (s *Server) ProxyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			if b, ok := s.existingBrowserSession(r); ok {
				if tok, err := b.Store.Token(); err == nil {
					tok.SetAuthHeader(r)
				} else {
					zerolog.Ctx(r.Context()).Debug().Err(err).Msg("No stored access token to attach")
				}
			}
		}
		s.proxy.ServeHTTP(w, r)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"app":      s.config.GetAppName(),
			"sessions": s.browsers.Len(),
		})
	}
}
