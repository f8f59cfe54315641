// Package cli provides the bridge-node command-line interface.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd returns the root cobra command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bridge-node",
		Short: "Bootstrap tooling for BRIDGE data-federation sites",
		Long: `bridge-node bootstraps a BRIDGE site: it generates the site key pair,
registers the site with the central Registration API using OAuth2
client-credentials authentication, and can run a local stub of the
Registration API for development.`,
	}

	root.AddCommand(
		newRegisterCmd(),
		newKeygenCmd(),
		newServeCmd(),
		newInitCmd(),
	)

	return root
}
