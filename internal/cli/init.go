package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize bridge-node configuration",
		RunE: func(_ *cobra.Command, _ []string) error {
			dirs := []string{"keys", "data"}
			for _, d := range dirs {
				if err := os.MkdirAll(d, 0o755); err != nil {
					return fmt.Errorf("create %s: %w", d, err)
				}
			}

			cfgPath := "bridge-node.toml"
			if _, err := os.Stat(cfgPath); err == nil {
				fmt.Printf("Config already exists at %s\n", cfgPath)
				return nil
			}

			cfg := `# bridge-node configuration
[registration]
api_url        = "https://registry.example.org/api"
oidc_token_url = "https://auth.example.org/realms/bridge/protocol/openid-connect/token"
oidc_client_id = "bridge-site"
# oidc_client_secret is provided by the registry operator; do not commit it.

[keys]
private_key = "./keys/site_ed25519"
`
			if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
				return fmt.Errorf("write config: %w", err)
			}

			abs, _ := filepath.Abs(cfgPath)
			fmt.Printf("✅ Initialized bridge-node at %s\n", abs)
			fmt.Println("   Run: bridge-node keygen --out ./keys/site_ed25519")
			return nil
		},
	}
}
