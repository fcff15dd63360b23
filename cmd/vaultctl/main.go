package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"clubvault/internal/app"
	"clubvault/internal/config"
	"clubvault/internal/domain"
)

// operator - служебный вызывающий: проверки прав и квоты не применяются
var operator = domain.Caller{ID: "vaultctl", Privileged: true}

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "vaultctl",
		Short:         "Administer the club file vault",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", envOr("VAULT_CONFIG", ".app.env"), "path to config file")

	rootCmd.AddCommand(newUsageCmd())
	rootCmd.AddCommand(newPurgeCmd())
	rootCmd.AddCommand(newEmptyTrashCmd())
	rootCmd.AddCommand(newExportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openVault загружает конфигурацию и подключается к хранилищу
func openVault() (*app.App, error) {
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return nil, err
	}
	app.SetupLogging(cfg.Log)
	return app.New(cfg, prometheus.NewRegistry())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
