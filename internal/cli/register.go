package cli

import (
	"fmt"
	"time"

	"github.com/edencehealth/BRIDGE-Node/sdk/go/sitereg"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRegisterCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "register <api_url> <site_name> <public_key> <oidc_token_url> <oidc_client_id> <oidc_client_secret>",
		Short: "Register this site with the Registration API",
		Args:  cobra.ExactArgs(6),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, _ := zap.NewProduction()
			defer log.Sync() //nolint:errcheck

			apiURL, siteName, publicKey := args[0], args[1], args[2]
			tokenURL, clientID, clientSecret := args[3], args[4], args[5]

			log.Info("registering site",
				zap.String("site_name", siteName),
				zap.String("api_url", apiURL),
				zap.String("oidc_token_url", tokenURL),
				zap.String("oidc_client_id", clientID),
			)

			// Collected for future use; the registration payload does
			// not carry it yet.
			meta := sitereg.CollectMetadata()
			log.Info("host metadata",
				zap.String("hostname", meta.Hostname),
				zap.String("os", meta.OS),
				zap.String("instance_id", meta.InstanceID),
			)

			client, err := sitereg.NewClient(sitereg.Config{
				APIURL:           apiURL,
				OIDCTokenURL:     tokenURL,
				OIDCClientID:     clientID,
				OIDCClientSecret: clientSecret,
			},
				sitereg.WithTimeout(timeout),
				sitereg.WithMetadata(meta),
				sitereg.WithLogger(log),
			)
			if err != nil {
				return err
			}

			result, err := client.RegisterSite(cmd.Context(), siteName, publicKey)
			if err != nil {
				// Failed registrations are reported without changing
				// the exit code once arguments parsed; existing callers
				// depend on exit 0 here.
				fmt.Fprintln(cmd.ErrOrStderr(), "Registration failed:", err)
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Registration successful!")
			fmt.Fprintf(out, "  Assigned ID: %d\n", result.ID)
			fmt.Fprintf(out, "  Site name:   %s\n", result.SiteName)
			fmt.Fprintf(out, "  Created at:  %s\n", result.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(out, "  Created by:  %s\n", result.CreatedBy)
			if result.GithubRepoURL != "" {
				fmt.Fprintf(out, "  Github repo: %s\n", result.GithubRepoURL)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second,
		"timeout applied to the token fetch and the registration call")
	return cmd
}
