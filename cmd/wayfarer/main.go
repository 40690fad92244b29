package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/solenne/wayfarer/internal/config"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var cfg *config.Config

func main() {
	rootCmd := &cobra.Command{
		Use:   "wayfarer",
		Short: "Wayfarer - conversational travel assistant",
		Long: `Wayfarer is a self-hosted travel assistant that grounds LLM replies
in live weather and country data.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg = config.Load()
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configCmd shows current configuration
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Current configuration:")
			fmt.Println()

			fmt.Println("Server:")
			fmt.Printf("  Host: %s\n", cfg.Server.Host)
			fmt.Printf("  Port: %d\n", cfg.Server.Port)
			fmt.Println()

			fmt.Println("LLM:")
			fmt.Printf("  Provider:    %s\n", cfg.LLM.Provider)
			fmt.Printf("  URL:         %s\n", cfg.LLM.BaseURL)
			fmt.Printf("  Model:       %s\n", cfg.LLM.Model)
			fmt.Printf("  Max Tokens:  %d\n", cfg.LLM.MaxTokens)
			fmt.Printf("  Temperature: %.2f\n", cfg.LLM.Temperature)
			fmt.Println()

			fmt.Println("External data:")
			fmt.Printf("  OpenWeatherMap key: %s\n", maskSecret(cfg.External.WeatherAPIKey))
			fmt.Printf("  Lookup timeout:     %s\n", cfg.External.LookupTimeout)
			fmt.Println()

			fmt.Println("Conversations:")
			fmt.Printf("  Max history: %d\n", cfg.Conversations.MaxHistory)
			fmt.Printf("  TTL:         %s\n", cfg.Conversations.TTL)
			fmt.Printf("  Sweep spec:  %s\n", cfg.Conversations.SweepSpec)
			fmt.Println()

			fmt.Println("Environment variables:")
			fmt.Println("  WAYFARER_SERVER_HOST, WAYFARER_PORT")
			fmt.Println("  WAYFARER_LLM_PROVIDER, WAYFARER_OLLAMA_URL, WAYFARER_OLLAMA_MODEL")
			fmt.Println("  WAYFARER_OPENWEATHER_API_KEY")
			fmt.Println("  WAYFARER_MAX_HISTORY, WAYFARER_CONVERSATION_TTL, WAYFARER_SWEEP_SPEC")
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Wayfarer %s\n", version)
			fmt.Printf("  Commit:     %s\n", commit)
			fmt.Printf("  Build Date: %s\n", buildDate)
		},
	}
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}
