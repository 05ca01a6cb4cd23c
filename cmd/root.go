package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "batchedit",
		Short: "Batch image editing with generative image models",
		Long: `Batchedit applies text-described edits and background removal to batches
of images through a remote generative image service, then crops, resizes and
re-encodes the results according to your saved output preferences.

It can also generate new images from a text prompt, and serve the same
operations over an HTTP JSON API.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			setupLogging(verbose)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().String("provider", "", "Image provider: gemini or openai (default from EDIT_PROVIDER, else gemini)")

	// Add subcommands
	cmd.AddCommand(newEditCmd())
	cmd.AddCommand(newRemoveBgCmd())
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newPrefsCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
