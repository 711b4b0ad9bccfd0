package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrsteele09/elearn-web/internal/errors"
	"github.com/jrsteele09/elearn-web/token"
	"github.com/jrsteele09/elearn-web/tokenstore"
	"github.com/spf13/cobra"
)

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Restore the stored session and show who it belongs to",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			defer c.store.Teardown()
			if err := c.hydrate(cmd.Context()); err != nil {
				return err
			}
			printUser(c.store.User())
			if tok, err := c.store.Token(); err == nil && !tok.Expiry.IsZero() {
				info("access token expires %s", tok.Expiry.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func keepaliveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keepalive",
		Short: "Keep the stored session fresh until interrupted",
		Long: `Restore the stored session and run the renewal loop. The access token is
refreshed shortly before it expires. If a refresh fails the session is cleared
and the command exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := newClient()
			defer c.store.Teardown()
			if err := c.hydrate(ctx); err != nil {
				return err
			}
			success("Keeping %s signed in (Ctrl+C to stop)", c.store.User().Email)

			return watchSession(ctx, c)
		},
	}
}

// watchSession reports token changes and returns when the session ends or ctx is done.
func watchSession(ctx context.Context, c *client) error {
	last, _ := c.storage.Get(ctx, tokenstore.AccessTokenKey)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			info("Stopped")
			return nil
		case <-ticker.C:
			if !c.store.State().IsAuthenticated {
				return friendly(errors.ErrSessionExpired)
			}
			current, err := c.storage.Get(ctx, tokenstore.AccessTokenKey)
			if err != nil || current == last {
				continue
			}
			last = current
			if exp, err := token.ExpiresAt(current); err == nil {
				info("Access token refreshed, now valid until %s", exp.Format(time.RFC3339))
			}
		}
	}
}
