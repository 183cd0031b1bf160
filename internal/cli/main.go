package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/voxalign/voxalign/internal/config"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	app, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := newLogger(app)

	root := &cobra.Command{
		Use:          "voxalign",
		Short:        "Align diarization and transcription outputs into speaker-attributed transcripts",
		SilenceUsage: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.AddCommand(newBatchCmd(app, log))
	root.AddCommand(newAlignCmd(app, log))
	root.AddCommand(newStatsCmd(app, log))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(app config.App) zerolog.Logger {
	level, err := zerolog.ParseLevel(app.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if strings.EqualFold(app.Logging.Format, "json") {
		log = zerolog.New(os.Stderr)
	} else {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return log.Level(level).With().Timestamp().Logger()
}
