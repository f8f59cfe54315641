package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edencehealth/BRIDGE-Node/internal/api"
	"github.com/edencehealth/BRIDGE-Node/internal/registry"
	"github.com/edencehealth/BRIDGE-Node/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var (
		addr         string
		dbPath       string
		clientID     string
		clientSecret string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local stub of the Registration API",
		Long: `serve runs a local Registration API stub with its own OAuth2 token
endpoint, so a site bootstrap can be exercised end-to-end without the
production registry.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, _ := zap.NewProduction()
			defer log.Sync() //nolint:errcheck

			db, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer db.Close()

			reg := registry.New(db, log)
			handler := api.NewHandler(reg, api.Credentials{
				ClientID:     clientID,
				ClientSecret: clientSecret,
			}, log)

			srv := &http.Server{
				Addr:         addr,
				Handler:      handler,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 60 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			go func() {
				log.Info("registration stub listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server error", zap.Error(err))
					cancel()
				}
			}()

			<-ctx.Done()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()

			log.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8642", "listen address")
	cmd.Flags().StringVar(&dbPath, "db", "./data/bridge-registry.db", "SQLite database path")
	cmd.Flags().StringVar(&clientID, "client-id", "bridge-local", "OIDC client ID accepted by the stub token endpoint")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "bridge-local-secret", "OIDC client secret accepted by the stub token endpoint")

	return cmd
}
