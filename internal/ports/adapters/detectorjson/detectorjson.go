// Package detectorjson reads the JSON documents the diarization and
// transcription detectors write, validating them into strict timelines at
// the boundary.
package detectorjson

import (
	"context"
	"fmt"
	"os"

	"github.com/bytedance/sonic"

	"github.com/voxalign/voxalign/internal/domain/interval"
	"github.com/voxalign/voxalign/internal/domain/timeline"
	"github.com/voxalign/voxalign/internal/types"
)

// Adapter implements ports.DiarizationSource and ports.TranscriptionSource
// over detector output files on disk.
type Adapter struct {
	// textOverlapEpsilon is forwarded to text timeline construction.
	textOverlapEpsilon float64
}

func New(textOverlapEpsilon float64) *Adapter {
	return &Adapter{textOverlapEpsilon: textOverlapEpsilon}
}

// LoadTurns reads one diarization document and builds the turn timeline.
func (a *Adapter) LoadTurns(ctx context.Context, path string) (*timeline.TurnTimeline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read diarization: %w", err)
	}
	var doc types.DiarizationDoc
	if err := sonic.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode diarization %s: %w", path, err)
	}

	turns := make([]timeline.SpeakerTurn, 0, len(doc.Segments))
	for _, e := range doc.Segments {
		turns = append(turns, timeline.SpeakerTurn{
			Interval: interval.New(e.Start, e.End),
			Speaker:  e.Speaker,
		})
	}
	tl, err := timeline.NewTurnTimeline(turns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tl, nil
}

// LoadTranscript reads one transcription document and builds the text
// timeline plus the recording-level facts.
func (a *Adapter) LoadTranscript(ctx context.Context, path string) (*timeline.TextTimeline, types.TranscriptInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.TranscriptInfo{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, types.TranscriptInfo{}, fmt.Errorf("read transcript: %w", err)
	}
	var doc types.TranscriptDoc
	if err := sonic.Unmarshal(b, &doc); err != nil {
		return nil, types.TranscriptInfo{}, fmt.Errorf("decode transcript %s: %w", path, err)
	}

	segs := make([]timeline.TextSegment, 0, len(doc.Segments))
	for _, e := range doc.Segments {
		seg := timeline.TextSegment{
			Interval: interval.New(e.Start, e.End),
			Text:     e.Text,
		}
		for _, w := range e.Words {
			seg.Words = append(seg.Words, timeline.Word{
				Interval: interval.New(w.Start, w.End),
				Text:     w.Word,
			})
		}
		segs = append(segs, seg)
	}
	tl, err := timeline.NewTextTimeline(segs, a.textOverlapEpsilon)
	if err != nil {
		return nil, types.TranscriptInfo{}, fmt.Errorf("%s: %w", path, err)
	}

	info := types.TranscriptInfo{Language: doc.Language, Duration: doc.Duration}
	if info.Language == "" {
		info.Language = "auto"
	}
	return tl, info, nil
}
