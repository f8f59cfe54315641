package cli

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"
)

func newKeygenCmd() *cobra.Command {
	var (
		outPath string
		comment string
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate the ed25519 key pair a site registers with",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists, refusing to overwrite", outPath)
			}

			pub, priv, err := ed25519.GenerateKey(rand.Reader)
			if err != nil {
				return fmt.Errorf("generate key: %w", err)
			}

			block, err := ssh.MarshalPrivateKey(priv, comment)
			if err != nil {
				return fmt.Errorf("encode private key: %w", err)
			}
			if err := os.WriteFile(outPath, pem.EncodeToMemory(block), 0o600); err != nil {
				return fmt.Errorf("write private key: %w", err)
			}

			sshPub, err := ssh.NewPublicKey(pub)
			if err != nil {
				return fmt.Errorf("encode public key: %w", err)
			}
			authorized := ssh.MarshalAuthorizedKey(sshPub)
			if err := os.WriteFile(outPath+".pub", authorized, 0o644); err != nil {
				return fmt.Errorf("write public key: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Private key: %s\n", outPath)
			fmt.Fprintf(out, "Public key:  %s.pub\n", outPath)
			fmt.Fprintf(out, "\nPass this as <public_key> when registering:\n%s\n",
				strings.TrimSpace(string(authorized)))
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "site_ed25519", "private key output path")
	cmd.Flags().StringVar(&comment, "comment", "bridge-site", "key comment")
	return cmd
}
