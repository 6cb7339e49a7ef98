// UVD CLI — диагностика ожидающих заявок через HTTP API uvd-coordinator.
//
// Использование:
//
//	uvd [--api-url URL] [--json] <command> [flags]
//
// Команды:
//
//	pending list --kind K        Ожидающие заявки типа
//	sweep --kind K [--dry-run]   Сверка с платформой
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "uvd",
		Short:         "UVD CLI — pending request diagnostics",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := os.Getenv("UVD_API_URL")
	if defaultURL == "" {
		defaultURL = cli.DefaultAPIURL
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "API server URL (default: $UVD_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	backendFn := func() cli.Backend { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewPendingCmd(backendFn, outputFn),
		cli.NewSweepCmd(backendFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
