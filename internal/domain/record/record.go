// Package record assembles engine output into the final per-recording
// artifact and validates its invariants before it is handed to persistence.
package record

import (
	"fmt"
	"sort"

	"github.com/voxalign/voxalign/internal/domain/align"
)

// DefaultDurationTolerance is how far a segment may overrun the recording
// duration before the record is rejected instead of clipped. It absorbs
// rounding differences between the two detectors.
const DefaultDurationTolerance = 0.5

// Segment is one flat, serialization-ready utterance of a conversation.
type Segment struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Speaker  string  `json:"speaker"`
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`

	// Confidence is carried for the catalog but is not part of the
	// serialized document format.
	Confidence float64 `json:"-"`
}

// ConversationRecord is the final artifact for one recording. It is
// constructed once by Assemble and never mutated afterwards.
type ConversationRecord struct {
	FileID      string    `json:"file_id"`
	Duration    float64   `json:"duration"`
	NumSpeakers int       `json:"num_speakers"`
	SpeakerIDs  []string  `json:"speaker_ids"`
	Language    string    `json:"language"`
	Segments    []Segment `json:"segments"`
}

// InvariantViolationError reports a record that clipping could not bring
// within its invariants. It is fatal for the one recording only.
type InvariantViolationError struct {
	FileID string
	Reason string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("record %s violates invariants: %s", e.FileID, e.Reason)
}

// Warning describes a soft repair applied during assembly, such as a
// boundary overrun clipped to the recording duration.
type Warning struct {
	FileID       string
	SegmentIndex int
	Message      string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: segment %d: %s", w.FileID, w.SegmentIndex, w.Message)
}

// Assemble packages attributed segments into a ConversationRecord. Minor
// boundary overruns (within tolerance) are clipped with a warning; anything
// clipping cannot repair fails with InvariantViolationError. tolerance < 0
// selects DefaultDurationTolerance.
func Assemble(fileID string, duration float64, language string, segments []align.AttributedSegment, tolerance float64) (*ConversationRecord, []Warning, error) {
	if tolerance < 0 {
		tolerance = DefaultDurationTolerance
	}
	if duration <= 0 {
		return nil, nil, &InvariantViolationError{FileID: fileID, Reason: fmt.Sprintf("non-positive duration %.3f", duration)}
	}

	var (
		out      []Segment
		warnings []Warning
		prevEnd  float64
	)
	for i, seg := range segments {
		start, end := seg.Interval.Start, seg.Interval.End

		if start < prevEnd {
			ov := prevEnd - start
			if ov > tolerance {
				return nil, nil, &InvariantViolationError{
					FileID: fileID,
					Reason: fmt.Sprintf("segment %d overlaps previous by %.3fs", i, ov),
				}
			}
			warnings = append(warnings, Warning{FileID: fileID, SegmentIndex: i,
				Message: fmt.Sprintf("start clipped from %.3f to %.3f to remove overlap", start, prevEnd)})
			start = prevEnd
		}
		if end > duration {
			over := end - duration
			if over > tolerance {
				return nil, nil, &InvariantViolationError{
					FileID: fileID,
					Reason: fmt.Sprintf("segment %d ends %.3fs past recording duration %.3f", i, over, duration),
				}
			}
			warnings = append(warnings, Warning{FileID: fileID, SegmentIndex: i,
				Message: fmt.Sprintf("end clipped from %.3f to recording duration %.3f", end, duration)})
			end = duration
		}
		if start >= end {
			// clipping collapsed the segment entirely
			warnings = append(warnings, Warning{FileID: fileID, SegmentIndex: i, Message: "dropped: empty after clipping"})
			continue
		}

		prevEnd = end
		out = append(out, Segment{
			Start:      start,
			End:        end,
			Speaker:    seg.Speaker,
			Text:       seg.Text,
			Duration:   end - start,
			Confidence: seg.Confidence,
		})
	}

	ids := speakerIDs(out)
	return &ConversationRecord{
		FileID:      fileID,
		Duration:    duration,
		NumSpeakers: len(ids),
		SpeakerIDs:  ids,
		Language:    language,
		Segments:    out,
	}, warnings, nil
}

// speakerIDs returns the sorted set of non-UNKNOWN speakers.
func speakerIDs(segments []Segment) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, s := range segments {
		if s.Speaker == align.UnknownSpeaker || seen[s.Speaker] {
			continue
		}
		seen[s.Speaker] = true
		ids = append(ids, s.Speaker)
	}
	sort.Strings(ids)
	return ids
}
