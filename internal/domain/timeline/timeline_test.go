package timeline

import (
	"errors"
	"testing"

	"github.com/voxalign/voxalign/internal/domain/interval"
)

func TestNewTurnTimeline_SortsByStart(t *testing.T) {
	t.Parallel()

	tl, err := NewTurnTimeline([]SpeakerTurn{
		{Interval: interval.New(5, 10), Speaker: "B"},
		{Interval: interval.New(0, 5), Speaker: "A"},
	})
	if err != nil {
		t.Fatalf("new turn timeline: %v", err)
	}
	turns := tl.Turns()
	if turns[0].Speaker != "A" || turns[1].Speaker != "B" {
		t.Fatalf("expected start order A,B got %s,%s", turns[0].Speaker, turns[1].Speaker)
	}
}

func TestNewTurnTimeline_RejectsInvertedTurn(t *testing.T) {
	t.Parallel()

	_, err := NewTurnTimeline([]SpeakerTurn{
		{Interval: interval.New(0, 2), Speaker: "A"},
		{Interval: interval.New(5, 3), Speaker: "A"},
	})
	var mErr *MalformedTimelineError
	if !errors.As(err, &mErr) {
		t.Fatalf("expected MalformedTimelineError, got %v", err)
	}
	if mErr.Index != 1 || mErr.Timeline != "turn" {
		t.Fatalf("error should identify entry 1 of the turn timeline, got %+v", mErr)
	}
}

func TestTurnsOverlapping_OrderedByOverlapThenStart(t *testing.T) {
	t.Parallel()

	tl, err := NewTurnTimeline([]SpeakerTurn{
		{Interval: interval.New(0, 2), Speaker: "A"},  // 2s overlap
		{Interval: interval.New(2, 8), Speaker: "B"},  // 6s overlap
		{Interval: interval.New(8, 10), Speaker: "C"}, // 2s overlap, later start
		{Interval: interval.New(20, 30), Speaker: "D"},
	})
	if err != nil {
		t.Fatalf("new turn timeline: %v", err)
	}

	got := tl.TurnsOverlapping(interval.New(0, 10))
	if len(got) != 3 {
		t.Fatalf("expected 3 overlapping turns, got %d", len(got))
	}
	if got[0].Turn.Speaker != "B" || got[0].Overlap != 6 {
		t.Fatalf("largest overlap first, got %s/%v", got[0].Turn.Speaker, got[0].Overlap)
	}
	// equal overlaps: earlier start wins
	if got[1].Turn.Speaker != "A" || got[2].Turn.Speaker != "C" {
		t.Fatalf("equal overlaps should order by start, got %s then %s", got[1].Turn.Speaker, got[2].Turn.Speaker)
	}
}

func TestTurnsAt(t *testing.T) {
	t.Parallel()

	tl, err := NewTurnTimeline([]SpeakerTurn{
		{Interval: interval.New(0, 5), Speaker: "A"},
		{Interval: interval.New(4, 9), Speaker: "B"},
	})
	if err != nil {
		t.Fatalf("new turn timeline: %v", err)
	}
	at := tl.TurnsAt(4.5)
	if len(at) != 2 {
		t.Fatalf("expected both turns at 4.5s, got %d", len(at))
	}
	if len(tl.TurnsAt(9)) != 0 { // half-open: end excluded
		t.Fatalf("expected no turn at 9s")
	}
}

func TestNewTextTimeline_RejectsOverlap(t *testing.T) {
	t.Parallel()

	segs := []TextSegment{
		{Interval: interval.New(0, 5), Text: "hello"},
		{Interval: interval.New(4.5, 8), Text: "world"},
	}

	_, err := NewTextTimeline(segs, 0)
	var mErr *MalformedTimelineError
	if !errors.As(err, &mErr) {
		t.Fatalf("expected MalformedTimelineError, got %v", err)
	}
	if mErr.Timeline != "text" || mErr.Index != 1 {
		t.Fatalf("error should identify entry 1 of the text timeline, got %+v", mErr)
	}

	// the same input passes with a loose enough epsilon
	if _, err := NewTextTimeline(segs, 0.6); err != nil {
		t.Fatalf("expected overlap within epsilon to pass, got %v", err)
	}
}

func TestNewTextTimeline_RejectsInvertedSegment(t *testing.T) {
	t.Parallel()

	_, err := NewTextTimeline([]TextSegment{{Interval: interval.New(3, 1), Text: "x"}}, 0)
	var mErr *MalformedTimelineError
	if !errors.As(err, &mErr) {
		t.Fatalf("expected MalformedTimelineError, got %v", err)
	}
}

func TestNewTextTimeline_SortsByStart(t *testing.T) {
	t.Parallel()

	tl, err := NewTextTimeline([]TextSegment{
		{Interval: interval.New(5, 8), Text: "second"},
		{Interval: interval.New(0, 4), Text: "first"},
	}, 0)
	if err != nil {
		t.Fatalf("new text timeline: %v", err)
	}
	segs := tl.Segments()
	if segs[0].Text != "first" || segs[1].Text != "second" {
		t.Fatalf("expected start order, got %q then %q", segs[0].Text, segs[1].Text)
	}
}
