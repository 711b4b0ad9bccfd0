package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/elearn-web/navigation"
	"github.com/jrsteele09/elearn-web/server/browsersession"
	"github.com/jrsteele09/elearn-web/session"
)

// browserSession returns the session for the request's cookie, creating the cookie and
// session when needed. A known cookie with no live entry gets a new entry under the same
// id so stored tokens can hydrate again.
func (s *Server) browserSession(w http.ResponseWriter, r *http.Request) *browsersession.Session {
	id, ok := sessionCookieID(r)
	if !ok {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   getScheme(r) == "https",
			SameSite: http.SameSiteLaxMode,
		})
	}

	b := s.browsers.GetOrCreate(id, s.newBrowserSession)
	if path := clientPath(r); path != "" {
		b.Navigator.SetPath(path)
	}
	return b
}

// existingBrowserSession returns the session for a request that already carries a cookie.
func (s *Server) existingBrowserSession(r *http.Request) (*browsersession.Session, bool) {
	id, ok := sessionCookieID(r)
	if !ok {
		return nil, false
	}
	return s.browsers.GetOrCreate(id, s.newBrowserSession), true
}

func (s *Server) newBrowserSession(id string) *browsersession.Session {
	nav := browsersession.NewNavigator(navigation.RouteDashboard)
	store := session.New(session.Deps{
		API:       s.api,
		Storage:   s.storage.ForBrowser(id),
		Navigator: nav,
	},
		session.WithRenewInterval(s.config.GetRenewInterval()),
		session.WithRefreshHorizon(s.config.GetRefreshHorizon()),
		session.WithLogger(s.logger.With().Str("browser_id", id).Logger()),
	)
	return &browsersession.Session{
		ID:        id,
		Store:     store,
		Navigator: nav,
		CreatedAt: time.Now(),
	}
}

func sessionCookieID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return "", false
	}
	return cookie.Value, true
}

func clientPath(r *http.Request) string {
	if path := r.Header.Get(clientPathHeader); path != "" {
		return path
	}
	return r.URL.Query().Get("path")
}
