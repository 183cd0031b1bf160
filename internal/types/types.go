// Package types holds the loose wire shapes the upstream detectors emit.
// They are trusted only long enough to be validated and converted into the
// strict timeline types at the adapter boundary.
package types

// DiarizationDoc is one diarization detector output document.
type DiarizationDoc struct {
	AudioPath     string      `json:"audio_path"`
	NumSpeakers   int         `json:"num_speakers"`
	Speakers      []string    `json:"speakers"`
	Segments      []TurnEntry `json:"segments"`
	TotalDuration float64     `json:"total_duration"`
}

// TurnEntry is one speaker turn as emitted by diarization.
type TurnEntry struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Speaker  string  `json:"speaker"`
	Duration float64 `json:"duration,omitempty"`
}

// TranscriptDoc is one transcription detector output document.
type TranscriptDoc struct {
	AudioPath string         `json:"audio_path"`
	Language  string         `json:"language"`
	Duration  float64        `json:"duration"`
	Text      string         `json:"text,omitempty"`
	Segments  []SegmentEntry `json:"segments"`
}

// SegmentEntry is one transcribed segment as emitted by transcription.
type SegmentEntry struct {
	Start float64     `json:"start"`
	End   float64     `json:"end"`
	Text  string      `json:"text"`
	Words []WordEntry `json:"words,omitempty"`
}

// WordEntry is one word-level sub-interval.
type WordEntry struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// TranscriptInfo carries the recording-level facts the transcription
// detector supplies alongside its segments.
type TranscriptInfo struct {
	Language string
	Duration float64
}

// DatasetSummary aggregates catalog-level statistics over all assembled
// conversations.
type DatasetSummary struct {
	TotalConversations int            `json:"total_conversations"`
	TotalDurationMin   float64        `json:"total_duration_minutes"`
	AvgDurationSec     float64        `json:"average_duration_seconds"`
	MinDurationSec     float64        `json:"min_duration_seconds"`
	MaxDurationSec     float64        `json:"max_duration_seconds"`
	Languages          map[string]int `json:"languages"`
	SpeakerCounts      map[int]int    `json:"speaker_counts"`
}
