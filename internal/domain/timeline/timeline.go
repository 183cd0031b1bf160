// Package timeline holds the strict, validated representations of the two
// detector outputs: the speaker-turn timeline from diarization and the text
// timeline from transcription. Both are immutable once constructed; all
// validation happens here so the alignment engine can trust its inputs.
package timeline

import (
	"fmt"
	"sort"

	"github.com/voxalign/voxalign/internal/domain/interval"
)

// SpeakerTurn is one contiguous stretch of speech attributed to a single
// speaker by the diarization detector.
type SpeakerTurn struct {
	Interval interval.Interval
	Speaker  string
}

// Word is one transcribed word with its own sub-interval.
type Word struct {
	Interval interval.Interval
	Text     string
}

// TextSegment is one contiguous stretch of transcribed text. Words are
// optional; when present they partition the segment's text in time order.
type TextSegment struct {
	Interval interval.Interval
	Text     string
	Words    []Word
}

// MalformedTimelineError reports detector output that violates timeline
// invariants. It identifies the offending entry so the upstream defect can
// be located.
type MalformedTimelineError struct {
	Timeline string // "turn" or "text"
	Index    int
	Interval interval.Interval
	Reason   string
}

func (e *MalformedTimelineError) Error() string {
	return fmt.Sprintf("malformed %s timeline: entry %d [%.3f,%.3f): %s",
		e.Timeline, e.Index, e.Interval.Start, e.Interval.End, e.Reason)
}

// TurnTimeline holds speaker turns in start order. Turns from different
// speakers may overlap (cross-talk); same-speaker turns are stored as given,
// repairing adjacent turns is the detector's concern.
type TurnTimeline struct {
	turns []SpeakerTurn
}

// NewTurnTimeline validates and sorts the supplied turns.
func NewTurnTimeline(turns []SpeakerTurn) (*TurnTimeline, error) {
	for i, tn := range turns {
		if tn.Interval.End < tn.Interval.Start {
			return nil, &MalformedTimelineError{Timeline: "turn", Index: i, Interval: tn.Interval, Reason: "end before start"}
		}
		if tn.Interval.Start < 0 {
			return nil, &MalformedTimelineError{Timeline: "turn", Index: i, Interval: tn.Interval, Reason: "negative start"}
		}
	}
	sorted := make([]SpeakerTurn, len(turns))
	copy(sorted, turns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return interval.Less(sorted[i].Interval, sorted[j].Interval)
	})
	return &TurnTimeline{turns: sorted}, nil
}

// Turns returns the turns in start order.
func (tl *TurnTimeline) Turns() []SpeakerTurn {
	return tl.turns
}

// TurnOverlap pairs a turn with its overlap against a queried interval.
type TurnOverlap struct {
	Turn    SpeakerTurn
	Overlap float64
}

// TurnsOverlapping returns every turn intersecting iv together with the
// overlap length, sorted by overlap descending, ties broken by the earlier
// turn start.
func (tl *TurnTimeline) TurnsOverlapping(iv interval.Interval) []TurnOverlap {
	var out []TurnOverlap
	for _, tn := range tl.turns {
		if ov := interval.Overlap(tn.Interval, iv); ov > 0 {
			out = append(out, TurnOverlap{Turn: tn, Overlap: ov})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Overlap != out[j].Overlap {
			return out[i].Overlap > out[j].Overlap
		}
		return out[i].Turn.Interval.Start < out[j].Turn.Interval.Start
	})
	return out
}

// TurnsAt returns the turns whose interval contains the instant t, in start
// order. Used for degenerate zero-length text segments which can never
// overlap by duration.
func (tl *TurnTimeline) TurnsAt(t float64) []SpeakerTurn {
	var out []SpeakerTurn
	for _, tn := range tl.turns {
		if tn.Interval.Contains(t) {
			out = append(out, tn)
		}
	}
	return out
}

// TextTimeline holds transcribed segments in start order. A single
// transcription stream cannot claim two segments for the same instant, so
// overlapping segments beyond the configured epsilon are rejected.
type TextTimeline struct {
	segments []TextSegment
}

// NewTextTimeline validates and sorts the supplied segments. overlapEpsilon
// is the largest pairwise overlap tolerated between neighbors; 0 is strict.
func NewTextTimeline(segments []TextSegment, overlapEpsilon float64) (*TextTimeline, error) {
	for i, seg := range segments {
		if seg.Interval.End < seg.Interval.Start {
			return nil, &MalformedTimelineError{Timeline: "text", Index: i, Interval: seg.Interval, Reason: "end before start"}
		}
		if seg.Interval.Start < 0 {
			return nil, &MalformedTimelineError{Timeline: "text", Index: i, Interval: seg.Interval, Reason: "negative start"}
		}
	}
	sorted := make([]TextSegment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return interval.Less(sorted[i].Interval, sorted[j].Interval)
	})
	for i := 1; i < len(sorted); i++ {
		ov := interval.Overlap(sorted[i-1].Interval, sorted[i].Interval)
		if ov > overlapEpsilon {
			return nil, &MalformedTimelineError{
				Timeline: "text",
				Index:    i,
				Interval: sorted[i].Interval,
				Reason:   fmt.Sprintf("overlaps previous segment by %.3fs", ov),
			}
		}
	}
	return &TextTimeline{segments: sorted}, nil
}

// Segments returns the segments in start order.
func (tl *TextTimeline) Segments() []TextSegment {
	return tl.segments
}
