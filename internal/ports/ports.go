package ports

import (
	"context"

	"github.com/voxalign/voxalign/internal/domain/record"
	"github.com/voxalign/voxalign/internal/domain/timeline"
	"github.com/voxalign/voxalign/internal/types"
)

// DiarizationSource loads a diarization detector output and converts it
// into a validated turn timeline.
type DiarizationSource interface {
	LoadTurns(ctx context.Context, path string) (*timeline.TurnTimeline, error)
}

// TranscriptionSource loads a transcription detector output and converts it
// into a validated text timeline plus the recording-level facts it carries.
type TranscriptionSource interface {
	LoadTranscript(ctx context.Context, path string) (*timeline.TextTimeline, types.TranscriptInfo, error)
}

// Catalog persists assembled conversation records and answers dataset-level
// queries.
type Catalog interface {
	Save(ctx context.Context, rec *record.ConversationRecord) error
	Summary(ctx context.Context) (types.DatasetSummary, error)
}
