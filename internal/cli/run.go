package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/voxalign/voxalign/internal/config"
	"github.com/voxalign/voxalign/internal/domain/align"
	"github.com/voxalign/voxalign/internal/metadata"
	"github.com/voxalign/voxalign/internal/pipeline"
	"github.com/voxalign/voxalign/internal/ports/adapters/catalog"
	"github.com/voxalign/voxalign/internal/ports/adapters/detectorjson"
	"github.com/voxalign/voxalign/internal/usecase"
)

// engineFlags registers the shared alignment tuning flags, defaulted from
// the loaded app config.
func engineFlags(cmd *cobra.Command, app config.App) {
	cmd.Flags().Bool("split-cross-talk", app.Engine.SplitCrossTalk, "Split segments covered by two speakers")
	cmd.Flags().Float64("split-threshold", app.Engine.SplitThreshold, "Second-speaker coverage fraction required for a split")
	cmd.Flags().Float64("tie-break-epsilon", app.Engine.TieBreakEpsilon, "Overlap difference in seconds treated as a tie")
	cmd.Flags().Float64("duration-tolerance", app.Engine.DurationTolerance, "Boundary overrun in seconds clipped instead of rejected")
	cmd.Flags().Float64("text-overlap-epsilon", app.Engine.TextOverlapEpsilon, "Largest tolerated overlap between text segments")
}

func engineConfig(cmd *cobra.Command) align.Config {
	split, _ := cmd.Flags().GetBool("split-cross-talk")
	threshold, _ := cmd.Flags().GetFloat64("split-threshold")
	epsilon, _ := cmd.Flags().GetFloat64("tie-break-epsilon")
	return align.Config{
		SplitCrossTalk:  split,
		SplitThreshold:  threshold,
		TieBreakEpsilon: epsilon,
	}
}

func newBatchCmd(app config.App, log zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Align every paired recording in the detector output directories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			diarDir, _ := cmd.Flags().GetString("diarization")
			transDir, _ := cmd.Flags().GetString("transcripts")
			outDir, _ := cmd.Flags().GetString("out")
			catalogPath, _ := cmd.Flags().GetString("catalog")
			metadataCSV, _ := cmd.Flags().GetString("metadata")
			workers, _ := cmd.Flags().GetInt("workers")
			roles, _ := cmd.Flags().GetString("roles")
			sourceType, _ := cmd.Flags().GetString("source-type")
			conditions, _ := cmd.Flags().GetString("conditions")
			notes, _ := cmd.Flags().GetString("notes")
			tolerance, _ := cmd.Flags().GetFloat64("duration-tolerance")
			textEps, _ := cmd.Flags().GetFloat64("text-overlap-epsilon")

			cfg := pipeline.Config{
				DiarizationDir:      diarDir,
				TranscriptDir:       transDir,
				OutDir:              outDir,
				CatalogPath:         catalogPath,
				MetadataCSV:         metadataCSV,
				Workers:             workers,
				SpeakerRoles:        splitRoles(roles),
				SourceType:          sourceType,
				RecordingConditions: conditions,
				Notes:               notes,
				Engine:              engineConfig(cmd),
				DurationTolerance:   tolerance,
				TextOverlapEpsilon:  textEps,
				Log:                 log,
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}

			sum, err := pipeline.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return printJSON(cmd, sum)
		},
	}

	cmd.Flags().String("diarization", "diarization", "Directory with *_diarization.json files")
	cmd.Flags().String("transcripts", "transcripts", "Directory with *_transcript.json files")
	cmd.Flags().String("out", "transcripts/combined", "Output directory for combined documents")
	cmd.Flags().String("catalog", app.Catalog.Path, "SQLite catalog path (empty disables)")
	cmd.Flags().String("metadata", app.Metadata.CSVPath, "Dataset metadata CSV path (empty disables)")
	cmd.Flags().Int("workers", app.Workers, "Concurrent recordings")
	cmd.Flags().String("roles", "", "Speaker roles recorded in metadata, pipe-separated (e.g. scammer|victim)")
	cmd.Flags().String("source-type", "public", "Data source recorded in metadata")
	cmd.Flags().String("conditions", "", "Recording conditions noted in metadata")
	cmd.Flags().String("notes", "", "Free-form notes recorded in metadata")
	engineFlags(cmd, app)
	return cmd
}

func newAlignCmd(app config.App, log zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "align <file_id>",
		Short: "Align one recording's diarization and transcript documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fileID := args[0]
			diarPath, _ := cmd.Flags().GetString("diarization-file")
			transPath, _ := cmd.Flags().GetString("transcript-file")
			outDir, _ := cmd.Flags().GetString("out")
			catalogPath, _ := cmd.Flags().GetString("catalog")
			tolerance, _ := cmd.Flags().GetFloat64("duration-tolerance")
			textEps, _ := cmd.Flags().GetFloat64("text-overlap-epsilon")

			if diarPath == "" {
				diarPath = fileID + "_diarization.json"
			}
			if transPath == "" {
				transPath = fileID + "_transcript.json"
			}

			src := detectorjson.New(textEps)
			deps := usecase.Deps{
				Diarization:   src,
				Transcription: src,
				Log:           log,
			}
			if catalogPath != "" {
				store, err := catalog.Open(catalogPath)
				if err != nil {
					return err
				}
				deps.Catalog = store
			}

			res, err := usecase.New(deps).Run(cmd.Context(), usecase.Input{
				FileID:            fileID,
				DiarizationPath:   diarPath,
				TranscriptPath:    transPath,
				OutDir:            outDir,
				Engine:            engineConfig(cmd),
				DurationTolerance: tolerance,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, res.Record)
		},
	}

	cmd.Flags().String("diarization-file", "", "Diarization document (default <file_id>_diarization.json)")
	cmd.Flags().String("transcript-file", "", "Transcript document (default <file_id>_transcript.json)")
	cmd.Flags().String("out", "", "Directory for the combined document (empty: stdout only)")
	cmd.Flags().String("catalog", "", "SQLite catalog path (empty disables)")
	engineFlags(cmd, app)
	return cmd
}

func newStatsCmd(app config.App, _ zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print dataset summary statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalogPath, _ := cmd.Flags().GetString("catalog")
			metadataCSV, _ := cmd.Flags().GetString("metadata")

			if catalogPath != "" {
				if _, err := os.Stat(catalogPath); err == nil {
					store, err := catalog.Open(catalogPath)
					if err != nil {
						return err
					}
					sum, err := store.Summary(cmd.Context())
					if err != nil {
						return err
					}
					return printJSON(cmd, sum)
				}
			}

			entries, err := metadata.NewCSVStore(metadataCSV).Load()
			if err != nil {
				return err
			}
			return printJSON(cmd, metadata.Summarize(entries))
		},
	}

	cmd.Flags().String("catalog", app.Catalog.Path, "SQLite catalog path")
	cmd.Flags().String("metadata", app.Metadata.CSVPath, "Dataset metadata CSV path")
	return cmd
}

func splitRoles(roles string) []string {
	if roles == "" {
		return nil
	}
	return strings.Split(roles, "|")
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := sonic.ConfigDefault.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}
