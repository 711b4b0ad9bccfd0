package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "Make an authenticated GET to the backend",
		Example: `  elearnctl get /courses
  elearnctl get /enrollments/me`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			defer c.store.Teardown()
			if err := c.hydrate(cmd.Context()); err != nil {
				return err
			}

			httpClient := oauth2.NewClient(cmd.Context(), c.store)
			httpClient.Timeout = c.cfg.GetAPITimeout()

			path := args[0]
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, c.api.BaseURL()+path, nil)
			if err != nil {
				return err
			}
			req.Header.Set("Accept", "application/json")

			resp, err := httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			if _, err := io.Copy(os.Stdout, resp.Body); err != nil {
				return err
			}
			fmt.Println()
			if resp.StatusCode >= http.StatusBadRequest {
				return fmt.Errorf("%s returned %s", path, resp.Status)
			}
			return nil
		},
	}
}
