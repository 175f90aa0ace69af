package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/antoniostano/aria/internal/app"
	"github.com/antoniostano/aria/internal/persona"
	"github.com/antoniostano/aria/internal/speech"
	"github.com/antoniostano/aria/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Chat with ARIA in a full-screen terminal UI",
	RunE:  runTUI,
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Chat with ARIA line by line on stdin/stdout",
	RunE:  runConsole,
}

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List the voice personas",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printPersonas(cmd.OutOrStdout())
	},
}

func runTUI(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.LogFormat = "text"
	// The alternate screen owns the terminal; logs and console speech
	// lines would corrupt it.
	b, err := app.Build(cfg, app.BuildOptions{LogOutput: io.Discard, SpeechOutput: io.Discard})
	if err != nil {
		return err
	}
	ctrl, err := b.NewAssistant(cfg.DefaultPersona)
	if err != nil {
		return err
	}
	var speaker speech.Speaker
	if b.Speech.Provider != "console" {
		speaker = b.Speaker
	}
	return tui.Run(cmd.Context(), tui.Options{
		Assistant: ctrl,
		Speaker:   speaker,
		Phrases:   b.Phrases,
	})
}

func runConsole(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.LogFormat = "text"
	b, err := app.Build(cfg, app.BuildOptions{LogOutput: os.Stderr, SpeechOutput: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	ctrl, err := b.NewAssistant(cfg.DefaultPersona)
	if err != nil {
		return err
	}
	c := NewConsole(ConsoleOptions{
		Assistant: ctrl,
		Speaker:   b.Speaker,
		Phrases:   b.Phrases,
		In:        cmd.InOrStdin(),
		Out:       cmd.OutOrStdout(),
	})
	return c.Run(cmd.Context())
}

func printPersonas(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TAG\tLABEL\tRATE\tPITCH")
	for _, tag := range persona.All() {
		p, err := persona.Resolve(tag)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n", tag, p.Label, p.Rate, p.Pitch)
	}
	return tw.Flush()
}
