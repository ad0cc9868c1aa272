package main

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "catalogd",
	Short: "catalogd is a REST catalog server for Iceberg-style table metadata",
	Long: `catalogd serves the warehouse/namespace/table metadata protocol: identifier
resolution, table CRUD, atomic multi-table commits, and warehouse/secret
management against a relational backing store.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to catalogd config.yaml")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}
