// Command slidegen generates slides from the terminal, either in-process or
// against a running server, and maintains the development database.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

type rootOptions struct {
	Verbose bool
	Raw     bool
}

func main() {
	_ = godotenv.Load()

	opt := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "slidegen",
		Short:         "Generate learning slides from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opt.Verbose, "verbose", "v", false, "Log debug output to stderr")
	flags.BoolVar(&opt.Raw, "raw", false, "Print raw event stream frames instead of a summary")

	cmd.AddCommand(
		newGenerateCommand(opt),
		newStreamCommand(opt),
		newResetDBCommand(opt),
	)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s❌ %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
}

func (o *rootOptions) logger() *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
