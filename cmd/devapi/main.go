// Command devapi runs an in-memory authentication backend for local development.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jrsteele09/elearn-web/internal/devapi"
	"github.com/jrsteele09/elearn-web/internal/logging"
	"github.com/jrsteele09/elearn-web/users"
	"github.com/spf13/cobra"
)

func main() {
	var (
		addr        string
		otp         string
		noRotate    bool
		accessTTL   time.Duration
		maxAttempts int
		logLevel    string
		seed        []string
	)

	rootCmd := &cobra.Command{
		Use:   "devapi",
		Short: "Run a local stand-in for the e-learning authentication API",
		Long: `devapi serves /auth/login, /auth/register, /auth/verify-otp,
/auth/resend-otp, /auth/refresh, /auth/logout and /auth/me from memory,
plus an authenticated /courses resource for trying the proxy.

Seed accounts with --user name:email:password[:role], for example
  devapi --user "Ada:ada@example.com:Secret123!:ADMIN"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New("DEV", logLevel)
			api := devapi.New(
				devapi.WithFixedOTP(otp),
				devapi.WithRefreshRotation(!noRotate),
				devapi.WithAccessTokenExpiry(accessTTL),
				devapi.WithMaxLoginAttempts(maxAttempts),
				devapi.WithLogger(logger),
			)
			defer api.Close()

			for _, entry := range seed {
				user, err := seedUser(api, entry)
				if err != nil {
					return err
				}
				logger.Info().Str("email", user.Email).Str("role", string(user.Role)).Msg("Seeded account")
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           api,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", addr).Dur("access_ttl", accessTTL).Bool("rotate", !noRotate).Msg("Development API listening")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
				close(errCh)
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&addr, "addr", "a", ":4000", "Listen address")
	flags.StringVar(&otp, "otp", "000000", "Verification code issued on register (empty for random codes)")
	flags.BoolVar(&noRotate, "no-rotate", false, "Keep the same refresh token across refreshes")
	flags.DurationVar(&accessTTL, "access-ttl", 15*time.Minute, "Access token lifetime")
	flags.IntVar(&maxAttempts, "max-login-attempts", 5, "Failed logins per email before RATE_LIMITED")
	flags.StringVar(&logLevel, "log-level", "info", "Log level")
	flags.StringArrayVarP(&seed, "user", "u", nil, "Seed a verified account as name:email:password[:role]")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "devapi: %s\n", err)
		os.Exit(1)
	}
}

func seedUser(api *devapi.Server, entry string) (*users.User, error) {
	parts := strings.Split(entry, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return nil, fmt.Errorf("invalid --user %q, want name:email:password[:role]", entry)
	}
	role := users.RoleStudent
	if len(parts) == 4 {
		r, err := users.ParseRole(parts[3])
		if err != nil {
			return nil, err
		}
		role = r
	}
	return api.AddUser(parts[0], parts[1], parts[2], role)
}
