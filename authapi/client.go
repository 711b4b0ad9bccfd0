// Package authapi is the HTTP client for the backend authentication API.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/elearn-web/internal/errors"
	"github.com/jrsteele09/elearn-web/token"
	"github.com/jrsteele09/elearn-web/users"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/jrsteele09/elearn-web/authapi"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// New returns a client for the API at baseURL (the backend origin).
func New(baseURL string, options ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, PathLogin, "", creds, &resp); err != nil {
		return nil, err
	}
	if err := validateAuthResponse(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.do(ctx, http.MethodPost, PathRegister, "", reg, &MessageResponse{})
}

func (c *Client) VerifyOTP(ctx context.Context, v OTPVerification) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, PathVerifyOTP, "", v, &resp); err != nil {
		return nil, err
	}
	if err := validateAuthResponse(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ResendOTP(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, PathResendOTP, "", ResendOTPRequest{Email: email}, &MessageResponse{})
}

// Logout revokes the session on the backend. The access token authenticates the call.
func (c *Client) Logout(ctx context.Context, pair token.Pair) error {
	return c.do(ctx, http.MethodPost, PathLogout, pair.AccessToken, LogoutRequest{RefreshToken: pair.RefreshToken}, &MessageResponse{})
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	var resp RefreshResponse
	if err := c.do(ctx, http.MethodPost, PathRefresh, "", RefreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: refresh response has no access token", errors.ErrUnexpectedResponse)
	}
	return &resp, nil
}

// Me fetches the identity the access token belongs to.
func (c *Client) Me(ctx context.Context, accessToken string) (*users.User, error) {
	var u users.User
	if err := c.do(ctx, http.MethodGet, PathMe, accessToken, nil, &u); err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, fmt.Errorf("%w: identity response has no user id", errors.ErrUnexpectedResponse)
	}
	return &u, nil
}

func validateAuthResponse(resp *AuthResponse) error {
	if resp.AccessToken == "" || resp.RefreshToken == "" || resp.User.ID == "" {
		return fmt.Errorf("%w: auth response is missing tokens or user", errors.ErrUnexpectedResponse)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) (returnErr error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "authapi "+method+" "+path)
	defer func() {
		if returnErr != nil {
			span.RecordError(returnErr)
			span.SetStatus(codes.Error, returnErr.Error())
		}
		span.End()
	}()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("path", path).Msg("auth api unreachable")
		return fmt.Errorf("%w: %s %s: %v", errors.ErrBackendUnavailable, method, path, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeAPIError(resp)
		c.logger.Debug().Int("status", apiErr.Status).Str("code", apiErr.Code).Str("path", path).Msg("auth api rejected request")
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding %s response: %v", errors.ErrUnexpectedResponse, path, err)
	}
	return nil
}

// decodeAPIError reads {"message","code"} or {"error"} bodies, falling back to the status text.
func decodeAPIError(resp *http.Response) *errors.APIError {
	apiErr := &errors.APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body struct {
		Message string `json:"message"`
		Code    string `json:"code"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
		if apiErr.Message == "" {
			apiErr.Message = body.Error
		}
	} else if text := strings.TrimSpace(string(data)); text != "" && len(text) < 512 {
		apiErr.Message = text
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
