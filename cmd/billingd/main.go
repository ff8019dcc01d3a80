package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// appConfig holds the settings that do not belong to a single package.
type appConfig struct {
	Env         string        `env:"APP_ENV" envDefault:"development"`
	LogLevel    string        `env:"LOG_LEVEL"`
	CatalogPath string        `env:"CATALOG_PATH" envDefault:"catalog.yaml"`
	DedupeTTL   time.Duration `env:"WEBHOOK_DEDUPE_TTL" envDefault:"72h"`
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "billingd",
		Short:         "Multi-tenant subscription billing service",
		Version:       fmt.Sprintf("%s (%s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newCatalogCmd(), newTokenCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
