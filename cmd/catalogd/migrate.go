package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/icebase/catalogd/internal/catalogconfig"
	"github.com/icebase/catalogd/internal/catalogstore"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Ensure the backing store's schema exists, then exit",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := catalogconfig.Load(configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
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
		return fmt.Errorf("catalogd: migrate: %w", err)
	}
	defer store.Close()

	fmt.Println("catalogd: schema is up to date")
	return nil
}
