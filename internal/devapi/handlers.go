package devapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jellydator/ttlcache/v3"
	"github.com/jrsteele09/elearn-web/authapi"
	"github.com/jrsteele09/elearn-web/internal/errors"
	"github.com/jrsteele09/elearn-web/users"
)

const contentTypeJSON = "application/json"

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds authapi.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeError(w, http.StatusBadRequest, errors.CodeValidation, "Invalid request body")
			return
		}
		email := strings.ToLower(strings.TrimSpace(creds.Email))

		if item := s.attempts.Get(email); item != nil && item.Value() >= s.maxLoginAttempts {
			writeError(w, http.StatusTooManyRequests, errors.CodeRateLimited, "Too many login attempts. Please try again later.")
			return
		}

		account, err := s.accounts.GetByEmail(email)
		if err != nil || !users.CheckPasswordHash(creds.Password, account.PasswordHash) {
			s.recordFailedLogin(email)
			writeError(w, http.StatusUnauthorized, errors.CodeInvalidCredentials, "Invalid email or password")
			return
		}
		if !account.Verified {
			writeError(w, http.StatusForbidden, errors.CodeNotVerified, "Please verify your email before logging in")
			return
		}
		s.attempts.Delete(email)

		resp, err := s.issuePair(account.User)
		if err != nil {
			s.logger.Err(err).Msg("devapi: failed to issue tokens")
			writeError(w, http.StatusInternalServerError, "", "Failed to issue tokens")
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) recordFailedLogin(email string) {
	s.attemptsLock.Lock()
	defer s.attemptsLock.Unlock()
	count := 0
	if item := s.attempts.Get(email); item != nil {
		count = item.Value()
	}
	s.attempts.Set(email, count+1, ttlcache.DefaultTTL)
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var reg authapi.Registration
		if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
			writeError(w, http.StatusBadRequest, errors.CodeValidation, "Invalid request body")
			return
		}
		email := strings.ToLower(strings.TrimSpace(reg.Email))
		if email == "" || !strings.Contains(email, "@") || strings.TrimSpace(reg.Name) == "" {
			writeError(w, http.StatusBadRequest, errors.CodeValidation, "Name and a valid email are required")
			return
		}
		if err := users.ValidatePasswordStrength(reg.Password); err != nil {
			writeError(w, http.StatusBadRequest, errors.CodeValidation, err.Error())
			return
		}
		if existing, err := s.accounts.GetByEmail(email); err == nil && existing.Verified {
			writeError(w, http.StatusConflict, errors.CodeUserExists, "An account with this email already exists")
			return
		}

		hash, err := users.HashPassword(reg.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "", "Failed to register")
			return
		}
		otp, err := s.newOTP()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "", "Failed to register")
			return
		}
		account := &users.Account{
			User:         users.User{Name: strings.TrimSpace(reg.Name), Email: email, Role: users.RoleStudent},
			PasswordHash: hash,
			OTP:          otp,
			OTPExpiresAt: s.now().Add(s.otpTTL),
			CreatedAt:    s.now(),
		}
		if err := s.accounts.Upsert(account); err != nil {
			writeError(w, http.StatusInternalServerError, "", "Failed to register")
			return
		}
		s.logger.Info().Str("email", email).Str("otp", otp).Str("referral_code", reg.ReferralCode).Msg("devapi: registration pending verification")
		writeJSON(w, http.StatusCreated, authapi.MessageResponse{Message: "Verification code sent"})
	}
}

func (s *Server) VerifyOTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var v authapi.OTPVerification
		if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
			writeError(w, http.StatusBadRequest, errors.CodeValidation, "Invalid request body")
			return
		}
		account, err := s.accounts.GetByEmail(v.Email)
		if err != nil || account.OTP == "" || account.OTP != strings.TrimSpace(v.OTP) || s.now().After(account.OTPExpiresAt) {
			writeError(w, http.StatusBadRequest, errors.CodeInvalidOTP, "Invalid or expired verification code")
			return
		}
		verified := *account
		verified.OTP = ""
		verified.Verified = true
		if err := s.accounts.Upsert(&verified); err != nil {
			writeError(w, http.StatusInternalServerError, "", "Failed to verify")
			return
		}

		resp, err := s.issuePair(account.User)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "", "Failed to issue tokens")
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) ResendOTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authapi.ResendOTPRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, errors.CodeValidation, "Invalid request body")
			return
		}
		if account, err := s.accounts.GetByEmail(req.Email); err == nil && !account.Verified {
			otp, err := s.newOTP()
			if err == nil {
				updated := *account
				updated.OTP = otp
				updated.OTPExpiresAt = s.now().Add(s.otpTTL)
				_ = s.accounts.Upsert(&updated)
				s.logger.Info().Str("email", account.User.Email).Str("otp", otp).Msg("devapi: verification code re-sent")
			}
		}
		// Same answer whether or not the email exists.
		writeJSON(w, http.StatusOK, authapi.MessageResponse{Message: "If the account exists a new code was sent"})
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authapi.RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
			writeError(w, http.StatusBadRequest, errors.CodeValidation, "Refresh token is required")
			return
		}

		var (
			userID string
			next   string
		)
		if s.rotateRefreshTokens {
			rt, rotated, err := s.refresh.Rotate(req.RefreshToken)
			if err != nil {
				writeError(w, http.StatusUnauthorized, errors.CodeInvalidToken, "Invalid or expired refresh token")
				return
			}
			userID, next = rt.UserID, rotated
		} else {
			rt, err := s.refresh.Validate(req.RefreshToken)
			if err != nil {
				writeError(w, http.StatusUnauthorized, errors.CodeInvalidToken, "Invalid or expired refresh token")
				return
			}
			userID = rt.UserID
		}

		account, err := s.accounts.GetByID(userID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, errors.CodeInvalidToken, "Unknown user")
			return
		}
		access, err := s.issuer.Issue(account.User.ID, account.User.Role)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "", "Failed to issue token")
			return
		}
		writeJSON(w, http.StatusOK, authapi.RefreshResponse{AccessToken: access, RefreshToken: next})
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authapi.LogoutRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.RefreshToken != "" {
			_ = s.refresh.Delete(req.RefreshToken)
		}
		writeJSON(w, http.StatusOK, authapi.MessageResponse{Message: "Logged out"})
	}
}

func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, account.User)
	}
}

// CoursesHandler is a small authenticated resource for exercising the proxy.
func (s *Server) CoursesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.authenticate(w, r); !ok {
			return
		}
		writeJSON(w, http.StatusOK, []map[string]string{
			{"id": "go-101", "title": "Go Fundamentals"},
			{"id": "web-201", "title": "Building Web Services"},
		})
	}
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*users.Account, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		writeError(w, http.StatusUnauthorized, errors.CodeInvalidToken, "Missing bearer token")
		return nil, false
	}
	claims, err := s.issuer.Verify(parts[1])
	if err != nil {
		writeError(w, http.StatusUnauthorized, errors.CodeInvalidToken, "Invalid or expired token")
		return nil, false
	}
	account, err := s.accounts.GetByID(claims.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, errors.CodeInvalidToken, "Unknown user")
		return nil, false
	}
	return account, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errors.APIError{Status: status, Code: code, Message: message})
}
