package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/voxalign/voxalign/internal/domain/align"
	"github.com/voxalign/voxalign/internal/metadata"
	"github.com/voxalign/voxalign/internal/ports"
	"github.com/voxalign/voxalign/internal/ports/adapters/catalog"
	"github.com/voxalign/voxalign/internal/ports/adapters/detectorjson"
	"github.com/voxalign/voxalign/internal/usecase"
)

// ensure adapters implement ports
var (
	_ ports.DiarizationSource   = (*detectorjson.Adapter)(nil)
	_ ports.TranscriptionSource = (*detectorjson.Adapter)(nil)
	_ ports.Catalog             = (*catalog.Store)(nil)
)

const (
	diarizationSuffix = "_diarization.json"
	transcriptSuffix  = "_transcript.json"
)

type Config struct {
	// DiarizationDir and TranscriptDir hold the detector output documents,
	// paired by file id.
	DiarizationDir string `validate:"required,dir"`
	TranscriptDir  string `validate:"required,dir"`
	// OutDir receives combined transcript documents plus the batch summary.
	OutDir string `validate:"required"`
	// CatalogPath is the SQLite catalog location; empty disables the catalog.
	CatalogPath string
	// MetadataCSV is the dataset CSV location; empty disables metadata rows.
	MetadataCSV string

	// Workers bounds concurrent recordings; 0 means 4.
	Workers int `validate:"gte=0"`

	// Dataset facts the detectors do not carry; recorded verbatim in
	// metadata rows.
	SpeakerRoles        []string
	SourceType          string
	RecordingConditions string
	Notes               string

	Engine             align.Config
	DurationTolerance  float64
	TextOverlapEpsilon float64

	Log zerolog.Logger
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.DurationTolerance < 0 {
		return fmt.Errorf("duration tolerance must be >= 0")
	}
	return nil
}

// Summary reports what a batch run did.
type Summary struct {
	RunID     string `json:"run_id"`
	Total     int    `json:"total_files"`
	Succeeded int    `json:"successful"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Warnings  int    `json:"warnings"`
}

// pair is one recording's detector outputs.
type pair struct {
	fileID          string
	diarizationPath string
	transcriptPath  string
}

// Run processes every paired recording under the configured directories.
// A single recording's failure is logged and skipped; it never aborts the
// batch.
func Run(ctx context.Context, cfg Config) (Summary, error) {
	runID := uuid.NewString()[:8]
	log := cfg.Log.With().Str("run_id", runID).Logger()

	pairs, skipped, err := discoverPairs(cfg.DiarizationDir, cfg.TranscriptDir)
	if err != nil {
		return Summary{}, err
	}
	for _, fileID := range skipped {
		log.Warn().Str("file_id", fileID).Msg("no matching transcript, skipping")
	}
	log.Info().Int("pairs", len(pairs)).Int("skipped", len(skipped)).Msg("batch discovered")

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create out dir: %w", err)
	}

	deps := usecase.Deps{
		Diarization:   detectorjson.New(cfg.TextOverlapEpsilon),
		Transcription: detectorjson.New(cfg.TextOverlapEpsilon),
		Log:           log,
	}
	var store *catalog.Store
	if cfg.CatalogPath != "" {
		store, err = catalog.Open(cfg.CatalogPath)
		if err != nil {
			return Summary{}, err
		}
		deps.Catalog = store
	}
	uc := usecase.New(deps)

	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}

	var (
		mu      sync.Mutex
		results []usecase.Result
		failed  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range pairs {
		p := p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := uc.Run(gctx, usecase.Input{
				FileID:            p.fileID,
				DiarizationPath:   p.diarizationPath,
				TranscriptPath:    p.transcriptPath,
				OutDir:            cfg.OutDir,
				Engine:            cfg.Engine,
				DurationTolerance: cfg.DurationTolerance,
			})
			if err != nil {
				// per-recording failures do not abort the batch
				log.Error().Str("file_id", p.fileID).Err(err).Msg("recording failed")
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Record.FileID < results[j].Record.FileID
	})

	warnings := 0
	for _, res := range results {
		warnings += len(res.Warnings)
	}

	if cfg.MetadataCSV != "" {
		if err := writeMetadata(cfg, results); err != nil {
			return Summary{}, err
		}
	}

	sum := Summary{
		RunID:     runID,
		Total:     len(pairs) + len(skipped),
		Succeeded: len(results),
		Failed:    failed,
		Skipped:   len(skipped),
		Warnings:  warnings,
	}
	if err := writeSummary(cfg.OutDir, sum); err != nil {
		return Summary{}, err
	}
	log.Info().
		Int("succeeded", sum.Succeeded).
		Int("failed", sum.Failed).
		Int("skipped", sum.Skipped).
		Msg("batch completed")
	return sum, nil
}

// discoverPairs scans the diarization directory and pairs each document
// with its transcript by file id. Diarization documents with no matching
// transcript are reported as skipped.
func discoverPairs(diarDir, transDir string) ([]pair, []string, error) {
	entries, err := os.ReadDir(diarDir)
	if err != nil {
		return nil, nil, fmt.Errorf("read diarization dir: %w", err)
	}

	var (
		pairs   []pair
		skipped []string
	)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, diarizationSuffix) {
			continue
		}
		fileID := strings.TrimSuffix(name, diarizationSuffix)
		transcriptPath := filepath.Join(transDir, fileID+transcriptSuffix)
		if _, err := os.Stat(transcriptPath); errors.Is(err, os.ErrNotExist) {
			skipped = append(skipped, fileID)
			continue
		} else if err != nil {
			return nil, nil, fmt.Errorf("stat transcript for %s: %w", fileID, err)
		}
		pairs = append(pairs, pair{
			fileID:          fileID,
			diarizationPath: filepath.Join(diarDir, name),
			transcriptPath:  transcriptPath,
		})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].fileID < pairs[j].fileID })
	sort.Strings(skipped)
	return pairs, skipped, nil
}

func writeMetadata(cfg Config, results []usecase.Result) error {
	store := metadata.NewCSVStore(cfg.MetadataCSV)
	for _, res := range results {
		entry := metadata.BuildEntry(
			res.Record,
			res.Record.FileID+".wav",
			cfg.SpeakerRoles,
			cfg.SourceType,
			cfg.RecordingConditions,
			cfg.Notes,
		)
		if err := store.Upsert(entry); err != nil {
			return fmt.Errorf("metadata %s: %w", res.Record.FileID, err)
		}
	}
	return nil
}

func writeSummary(outDir string, sum Summary) error {
	b, err := sonic.ConfigDefault.MarshalIndent(sum, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	path := filepath.Join(outDir, "batch_summary.json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
