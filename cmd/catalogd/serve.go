package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	vaultapi "github.com/hashicorp/vault/api"
	"github.com/spf13/cobra"

	"github.com/icebase/catalogd/internal/api"
	"github.com/icebase/catalogd/internal/catalogconfig"
	"github.com/icebase/catalogd/internal/catalogstore"
	"github.com/icebase/catalogd/internal/secretstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the catalog HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := catalogconfig.Load(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := catalogstore.Open(ctx, catalogstore.Config{
		ServerMode:     cfg.Store.ServerMode,
		Path:           cfg.Store.Path,
		Database:       cfg.Store.Database,
		ServerHost:     cfg.Store.ServerHost,
		ServerPort:     cfg.Store.ServerPort,
		ServerUser:     cfg.Store.ServerUser,
		ServerPassword: cfg.Store.ServerPassword,
		MaxOpenConns:   cfg.Store.MaxOpenConns,
		MaxIdleConns:   cfg.Store.MaxIdleConns,
	})
	if err != nil {
		return fmt.Errorf("catalogd: open store: %w", err)
	}
	defer store.Close()

	secrets, err := buildSecretStore(cfg.Secrets)
	if err != nil {
		return fmt.Errorf("catalogd: build secret store: %w", err)
	}

	srv := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: api.NewRouter(store, secrets),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	return nil
}

func buildSecretStore(cfg catalogconfig.SecretsConfig) (secretstore.Store, error) {
	switch cfg.Backend {
	case "vault":
		vc := vaultapi.DefaultConfig()
		if cfg.VaultAddr != "" {
			vc.Address = cfg.VaultAddr
		}
		client, err := vaultapi.NewClient(vc)
		if err != nil {
			return nil, err
		}
		if cfg.VaultToken != "" {
			client.SetToken(cfg.VaultToken)
		}
		return secretstore.NewVaultStore(client, cfg.VaultMount, "catalogd/warehouses"), nil
	default:
		return secretstore.NewMemoryStore(), nil
	}
}
