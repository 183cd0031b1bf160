package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/voxalign/voxalign/internal/domain/record"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func testRecord(fileID string, duration float64) *record.ConversationRecord {
	return &record.ConversationRecord{
		FileID:      fileID,
		Duration:    duration,
		NumSpeakers: 2,
		SpeakerIDs:  []string{"SPEAKER_1", "SPEAKER_2"},
		Language:    "hi",
		Segments: []record.Segment{
			{Start: 0, End: 5, Speaker: "SPEAKER_1", Text: "hello", Duration: 5, Confidence: 1},
			{Start: 5, End: duration, Speaker: "SPEAKER_2", Text: "reply", Duration: duration - 5, Confidence: 0.8},
		},
	}
}

func TestStore_SaveAndUtterances(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, testRecord("conv_001", 20)); err != nil {
		t.Fatalf("save: %v", err)
	}

	rows, err := s.Utterances(ctx, "conv_001")
	if err != nil {
		t.Fatalf("utterances: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(rows))
	}
	if rows[0].Speaker != "SPEAKER_1" || rows[1].Speaker != "SPEAKER_2" {
		t.Fatalf("utterances out of order: %s then %s", rows[0].Speaker, rows[1].Speaker)
	}
	if rows[1].Confidence != 0.8 {
		t.Fatalf("confidence not persisted, got %v", rows[1].Confidence)
	}
}

func TestStore_SaveReplacesUtterances(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, testRecord("conv_001", 20)); err != nil {
		t.Fatalf("first save: %v", err)
	}

	rec := testRecord("conv_001", 25)
	rec.Segments = rec.Segments[:1]
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("second save: %v", err)
	}

	rows, err := s.Utterances(ctx, "conv_001")
	if err != nil {
		t.Fatalf("utterances: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("re-save must replace utterances, got %d rows", len(rows))
	}

	sum, err := s.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalConversations != 1 {
		t.Fatalf("re-save must not duplicate the conversation, got %d", sum.TotalConversations)
	}
	if sum.MaxDurationSec != 25 {
		t.Fatalf("expected updated duration 25, got %v", sum.MaxDurationSec)
	}
}

func TestStore_Summary(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, testRecord("conv_001", 30)); err != nil {
		t.Fatalf("save: %v", err)
	}
	second := testRecord("conv_002", 90)
	second.Language = "en"
	if err := s.Save(ctx, second); err != nil {
		t.Fatalf("save: %v", err)
	}

	sum, err := s.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalConversations != 2 {
		t.Fatalf("expected 2 conversations, got %d", sum.TotalConversations)
	}
	if sum.TotalDurationMin != 2 {
		t.Fatalf("expected 2 total minutes, got %v", sum.TotalDurationMin)
	}
	if sum.AvgDurationSec != 60 || sum.MinDurationSec != 30 || sum.MaxDurationSec != 90 {
		t.Fatalf("duration stats wrong: %+v", sum)
	}
	if sum.Languages["hi"] != 1 || sum.Languages["en"] != 1 {
		t.Fatalf("language counts wrong: %v", sum.Languages)
	}
	if sum.SpeakerCounts[2] != 2 {
		t.Fatalf("speaker count distribution wrong: %v", sum.SpeakerCounts)
	}
}

func TestStore_SummaryEmpty(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	sum, err := s.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalConversations != 0 || sum.AvgDurationSec != 0 {
		t.Fatalf("empty catalog summary should be zeroed: %+v", sum)
	}
}
