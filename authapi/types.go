package authapi

import "github.com/jrsteele09/elearn-web/users"

// Backend endpoint paths, relative to the API origin.
const (
	PathLogin     = "/auth/login"
	PathRegister  = "/auth/register"
	PathVerifyOTP = "/auth/verify-otp"
	PathResendOTP = "/auth/resend-otp"
	PathLogout    = "/auth/logout"
	PathRefresh   = "/auth/refresh"
	PathMe        = "/auth/me"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	ReferralCode string `json:"referralCode,omitempty"` // Referral program code of the inviting user
}

type OTPVerification struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type ResendOTPRequest struct {
	Email string `json:"email"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// AuthResponse is returned by login and OTP verification.
type AuthResponse struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	User         users.User `json:"user"`
}

// RefreshResponse carries a new access token. RefreshToken is empty when the backend does not rotate.
type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// MessageResponse is the body of calls that only acknowledge.
type MessageResponse struct {
	Message string `json:"message,omitempty"`
}
