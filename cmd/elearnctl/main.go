package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jrsteele09/elearn-web/authapi"
	"github.com/jrsteele09/elearn-web/internal/config"
	"github.com/jrsteele09/elearn-web/internal/errors"
	"github.com/jrsteele09/elearn-web/internal/logging"
	"github.com/jrsteele09/elearn-web/navigation"
	"github.com/jrsteele09/elearn-web/session"
	"github.com/jrsteele09/elearn-web/tokenstore/filestore"
	"github.com/spf13/cobra"
)

var (
	tokenFile   string
	currentPath string
	apiURL      string
	verbose     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "elearnctl",
		Short: "Command-line client for the e-learning platform",
		Long: `elearnctl keeps an e-learning session in a local token file.

Log in once and later commands reuse the stored tokens. keepalive runs the
same renewal loop the browser does, refreshing the access token before it expires.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&tokenFile, "token-file", defaultTokenFile(), "Where the session tokens are stored")
	rootCmd.PersistentFlags().StringVar(&currentPath, "path", navigation.RouteDashboard, "Route the client reports as its current page")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend origin (defaults to NEXT_PUBLIC_API_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log session activity")

	rootCmd.AddCommand(
		loginCmd(),
		registerCmd(),
		verifyOTPCmd(),
		resendOTPCmd(),
		logoutCmd(),
		whoamiCmd(),
		keepaliveCmd(),
		getCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		errorMsg("%s", err)
		os.Exit(1)
	}
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".elearn-tokens.json"
	}
	return filepath.Join(home, ".elearn", "tokens.json")
}

// cliNavigator reports the --path route and tells the user when the session needs a new login.
type cliNavigator struct {
	mu   sync.Mutex
	path string
}

func (n *cliNavigator) CurrentPath() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

func (n *cliNavigator) Redirect(path string) {
	n.mu.Lock()
	n.path = path
	n.mu.Unlock()

	hint := "elearnctl login"
	if navigation.IsAdminPath(path) {
		hint = "elearnctl login --admin"
	}
	warn("Session expired (redirected to %s). Run `%s` to sign in again.", path, hint)
}

type client struct {
	cfg     config.Config
	api     *authapi.Client
	storage *filestore.Storage
	store   *session.Store
}

func newClient() *client {
	cfg := config.New()
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger := logging.New("DEV", level)

	origin := apiURL
	if origin == "" {
		origin = cfg.GetAPIURL()
	}
	api := authapi.New(origin, authapi.WithTimeout(cfg.GetAPITimeout()), authapi.WithLogger(logger))
	storage := filestore.New(tokenFile)
	store := session.New(session.Deps{
		API:       api,
		Storage:   storage,
		Navigator: &cliNavigator{path: currentPath},
	},
		session.WithRenewInterval(cfg.GetRenewInterval()),
		session.WithRefreshHorizon(cfg.GetRefreshHorizon()),
		session.WithLogger(logger),
	)
	return &client{cfg: cfg, api: api, storage: storage, store: store}
}

// hydrate restores the stored session and fails when there is none.
func (c *client) hydrate(ctx context.Context) error {
	state := c.store.Init(ctx)
	if !state.IsAuthenticated {
		if navigation.IsAuthPage(currentPath) {
			return fmt.Errorf("--path %s is an auth page, the stored session is not checked there", currentPath)
		}
		return fmt.Errorf("not logged in, run `elearnctl login`")
	}
	return nil
}

func friendly(err error) error {
	if err == nil {
		return nil
	}
	if verbose {
		return fmt.Errorf("%s (%w)", errors.FriendlyMessage(err), err)
	}
	return errors.New(errors.FriendlyMessage(err))
}

func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}

func prompt(label string) (string, error) {
	fmt.Printf("%s: ", label)
	var value string
	if _, err := fmt.Scanln(&value); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(value), nil
}
