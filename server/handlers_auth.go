package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/elearn-web/authapi"
	"github.com/jrsteele09/elearn-web/internal/errors"
	"github.com/jrsteele09/elearn-web/session"
	"github.com/jrsteele09/elearn-web/users"
	"github.com/rs/zerolog"
)

// SessionResponse is what the browser sees of its session.
type SessionResponse struct {
	User            *users.User `json:"user"`
	IsAuthenticated bool        `json:"isAuthenticated"`
	Loading         bool        `json:"loading"`
	Redirect        string      `json:"redirect,omitempty"`
}

func sessionResponse(state session.State) SessionResponse {
	return SessionResponse{
		User:            state.User,
		IsAuthenticated: state.IsAuthenticated,
		Loading:         state.Loading,
	}
}

// SessionHandler hydrates the browser's session on first use and reports it,
// delivering any redirect the renewal loop queued.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := s.browserSession(w, r)
		resp := sessionResponse(b.Store.Init(r.Context()))
		resp.Redirect = b.Navigator.TakeRedirect()
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds authapi.Credentials
		if !decodeBody(w, r, &creds) {
			return
		}
		b := s.browserSession(w, r)
		if _, err := b.Store.Login(r.Context(), creds); err != nil {
			writeAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse(b.Store.State()))
	}
}

func (s *Server) AdminLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds authapi.Credentials
		if !decodeBody(w, r, &creds) {
			return
		}
		b := s.browserSession(w, r)
		if _, err := session.AdminLogin(r.Context(), b.Store, creds); err != nil {
			writeAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse(b.Store.State()))
	}
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var reg authapi.Registration
		if !decodeBody(w, r, &reg) {
			return
		}
		b := s.browserSession(w, r)
		if err := b.Store.Register(r.Context(), reg); err != nil {
			writeAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, authapi.MessageResponse{Message: "Verification code sent"})
	}
}

func (s *Server) VerifyOTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var v authapi.OTPVerification
		if !decodeBody(w, r, &v) {
			return
		}
		b := s.browserSession(w, r)
		if _, err := b.Store.VerifyOTP(r.Context(), v); err != nil {
			writeAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse(b.Store.State()))
	}
}

func (s *Server) ResendOTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authapi.ResendOTPRequest
		if !decodeBody(w, r, &req) {
			return
		}
		b := s.browserSession(w, r)
		if err := b.Store.ResendOTP(r.Context(), req.Email); err != nil {
			writeAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, authapi.MessageResponse{Message: "Verification code sent"})
	}
}

// LogoutHandler always succeeds. Browsers without a session have nothing to clear.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := SessionResponse{}
		if b, ok := s.existingBrowserSession(r); ok {
			b.Store.Logout(r.Context())
			resp = sessionResponse(b.Store.State())
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) RefreshUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := s.browserSession(w, r)
		if _, err := b.Store.RefreshUser(r.Context()); err != nil {
			writeAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse(b.Store.State()))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errors.APIError{Code: errors.CodeValidation, Message: "Invalid request body"})
		return false
	}
	return true
}

// writeAuthError maps a session error onto a status and a message fit to show the user.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	body := errors.APIError{Message: errors.FriendlyMessage(err)}
	var apiErr *errors.APIError
	if errors.As(err, &apiErr) {
		body.Code = apiErr.Code
	}
	if body.Code == "" && status == http.StatusTooManyRequests {
		body.Code = errors.CodeRateLimited
	}

	event := zerolog.Ctx(r.Context()).Info()
	if status >= http.StatusInternalServerError {
		event = zerolog.Ctx(r.Context()).Warn()
	}
	event.Err(err).Int("status", status).Msg("Auth request failed")
	writeJSON(w, status, body)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, errors.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, errors.ErrAccessDenied), errors.Is(err, errors.ErrUserNotVerified):
		return http.StatusForbidden
	case errors.Is(err, errors.ErrInvalidOTP):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrSessionExpired), errors.Is(err, errors.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, errors.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, errors.ErrInvalidRequest):
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
