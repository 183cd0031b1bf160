package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"github.com/voxalign/voxalign/internal/domain/align"
	"github.com/voxalign/voxalign/internal/domain/record"
	"github.com/voxalign/voxalign/internal/ports"
)

type Deps struct {
	Diarization   ports.DiarizationSource
	Transcription ports.TranscriptionSource
	Catalog       ports.Catalog
	Log           zerolog.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type Input struct {
	FileID          string
	DiarizationPath string
	TranscriptPath  string
	// OutDir receives the combined transcript document; empty skips the write.
	OutDir string

	Engine            align.Config
	DurationTolerance float64
}

type Result struct {
	Record   *record.ConversationRecord
	Warnings []record.Warning
	// OutPath is the combined document location, empty when not written.
	OutPath string
}

// Run aligns one recording's detector outputs into a conversation record,
// writes the combined document, and persists the record to the catalog.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	log := u.d.Log.With().Str("file_id", in.FileID).Logger()

	turns, err := u.d.Diarization.LoadTurns(ctx, in.DiarizationPath)
	if err != nil {
		return Result{}, fmt.Errorf("diarization: %w", err)
	}
	texts, info, err := u.d.Transcription.LoadTranscript(ctx, in.TranscriptPath)
	if err != nil {
		return Result{}, fmt.Errorf("transcription: %w", err)
	}
	log.Debug().
		Int("turns", len(turns.Turns())).
		Int("segments", len(texts.Segments())).
		Float64("duration", info.Duration).
		Str("language", info.Language).
		Msg("timelines loaded")

	attributed := align.Align(turns, texts, in.Engine)

	rec, warnings, err := record.Assemble(in.FileID, info.Duration, info.Language, attributed, in.DurationTolerance)
	if err != nil {
		return Result{}, err
	}
	for _, w := range warnings {
		log.Warn().Int("segment", w.SegmentIndex).Msg(w.Message)
	}

	res := Result{Record: rec, Warnings: warnings}
	if in.OutDir != "" {
		path, err := writeRecord(in.OutDir, rec)
		if err != nil {
			return Result{}, err
		}
		res.OutPath = path
	}

	if u.d.Catalog != nil {
		if err := u.d.Catalog.Save(ctx, rec); err != nil {
			return Result{}, fmt.Errorf("catalog: %w", err)
		}
	}

	log.Info().
		Int("segments", len(rec.Segments)).
		Int("speakers", rec.NumSpeakers).
		Int("warnings", len(warnings)).
		Msg("recording aligned")
	return res, nil
}

func writeRecord(outDir string, rec *record.ConversationRecord) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create out dir: %w", err)
	}
	b, err := sonic.ConfigDefault.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal record %s: %w", rec.FileID, err)
	}
	path := filepath.Join(outDir, rec.FileID+"_combined.json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write record: %w", err)
	}
	return path, nil
}
