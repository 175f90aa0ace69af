package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/antoniostano/aria/internal/config"
	"github.com/antoniostano/aria/internal/persona"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "aria",
	Short: "ARIA, a voice assistant with demo and live reply modes",
	Long: "ARIA answers typed (or simulated spoken) messages in one of three voice personas.\n" +
		"Without an OpenAI API key it replies from built-in demo rules; with one it asks a chat model\n" +
		"and falls back to the demo rules whenever the live call fails.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if isTerminal(os.Stdin) && isTerminal(os.Stdout) {
			return runTUI(cmd, args)
		}
		return runConsole(cmd, args)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "aria %s\n", Version)
	},
}

var (
	flagConfig  string
	flagPersona string
	flagSpeech  string
	flagBind    string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "TOML config file (overrides ARIA_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&flagPersona, "persona", "p", "", "Starting voice persona: male, female or alien")
	rootCmd.PersistentFlags().StringVarP(&flagSpeech, "speech", "s", "", "Speech output: auto, console, command, openai or none")
	serveCmd.Flags().StringVarP(&flagBind, "bind", "b", "", "Listen address (overrides APP_BIND_ADDR)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(personasCmd)
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// loadConfig reads the environment and applies command-line overrides.
func loadConfig() (config.Config, error) {
	if path := strings.TrimSpace(flagConfig); path != "" {
		if err := os.Setenv("ARIA_CONFIG", path); err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("config error: %w", err)
	}
	if raw := strings.TrimSpace(flagPersona); raw != "" {
		tag, err := persona.Parse(raw)
		if err != nil {
			return config.Config{}, err
		}
		cfg.DefaultPersona = tag
	}
	if raw := strings.TrimSpace(flagSpeech); raw != "" {
		cfg.SpeechProvider = strings.ToLower(raw)
	}
	if raw := strings.TrimSpace(flagBind); raw != "" {
		cfg.BindAddr = raw
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
