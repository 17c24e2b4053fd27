// voicecursor turns a spoken or typed request into code awaiting review.
//
// Usage:
//
//	voicecursor run --text "create a function to fetch weather data" [--file weather.py] [--approve]
//	voicecursor run --audio request.wav --language go
//	voicecursor approve --code generated.py --file weather.py
//	voicecursor approve --run <run-id>
//	voicecursor reject --run <run-id> --reason "wrong approach"
//	voicecursor logs [--list | --summary] [--file agent_calls_....json]
//	voicecursor stats [--limit 10]
//	voicecursor events [--db voicecursor.db] [--run <run-id>] [-L 2] [--json]
//	voicecursor metrics-serve [--addr :9464]
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/stupiduntilnot/voicecursor/internal/config"
	"github.com/stupiduntilnot/voicecursor/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "voicecursor",
		Short:         "Voice-driven code generation with human approval",
		Long:          "voicecursor runs a request through speech, security, reasoning, coding and\nvalidation stages and holds the generated code until a human approves it.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup()
		},
	}
	root.AddCommand(
		newRunCmd(),
		newApproveCmd(),
		newRejectCmd(),
		newLogsCmd(),
		newStatsCmd(),
		newEventsCmd(),
		newMetricsServeCmd(),
	)
	return root
}

// setup loads .env and configures the process logger.
func setup() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.LoadLocal()
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("VOICECURSOR_LOG_LEVEL: %w", err)
	}
	logging.Init(level, cfg.LogFormat, os.Stderr)
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}
