// Package align merges a speaker-turn timeline with a text timeline into a
// single speaker-attributed segment sequence. The two timelines come from
// independent, imperfect detectors and may disagree on boundaries, so
// attribution is weighted by overlap duration rather than by which turn
// contains a segment's midpoint.
package align

import (
	"sort"
	"strings"

	"github.com/voxalign/voxalign/internal/domain/interval"
	"github.com/voxalign/voxalign/internal/domain/timeline"
)

// UnknownSpeaker is the sentinel label for text segments no diarized turn
// overlaps.
const UnknownSpeaker = "UNKNOWN"

// Config tunes the engine. The zero value is not usable directly; callers
// normally start from DefaultConfig.
type Config struct {
	// SplitCrossTalk enables best-effort splitting of text segments that two
	// speakers cover in disjoint contiguous sub-ranges.
	SplitCrossTalk bool
	// SplitThreshold is the fraction of a segment's duration a second
	// speaker must cover before a split is considered.
	SplitThreshold float64
	// TieBreakEpsilon is the overlap difference in seconds below which two
	// speakers are considered tied.
	TieBreakEpsilon float64
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		SplitCrossTalk:  false,
		SplitThreshold:  0.35,
		TieBreakEpsilon: 0.001,
	}
}

func (c Config) normalized() Config {
	if c.SplitThreshold <= 0 || c.SplitThreshold >= 1 {
		c.SplitThreshold = 0.35
	}
	if c.TieBreakEpsilon < 0 {
		c.TieBreakEpsilon = 0.001
	}
	return c
}

// AttributedSegment is one unit of engine output: a text segment with the
// speaker that won attribution and the confidence of that attribution.
type AttributedSegment struct {
	Interval   interval.Interval
	Speaker    string
	Text       string
	Confidence float64
}

// Duration returns the segment length in seconds.
func (s AttributedSegment) Duration() float64 {
	return s.Interval.Duration()
}

// Align attributes every text segment to a speaker by overlap against the
// turn timeline. It never fails on well-formed timelines: segments nothing
// overlaps degrade to UnknownSpeaker instead of aborting the recording.
// Output is in input order and non-decreasing in start time.
func Align(turns *timeline.TurnTimeline, texts *timeline.TextTimeline, cfg Config) []AttributedSegment {
	cfg = cfg.normalized()
	out := make([]AttributedSegment, 0, len(texts.Segments()))
	for _, seg := range texts.Segments() {
		out = append(out, alignSegment(turns, seg, cfg)...)
	}
	return out
}

// speakerCover aggregates one speaker's overlap against a text segment
// across all of that speaker's turns.
type speakerCover struct {
	id            string
	total         float64             // summed overlap duration
	earliestStart float64             // start of the speaker's earliest overlapping turn
	parts         []interval.Interval // turn∩segment intersections, start order
}

func alignSegment(turns *timeline.TurnTimeline, seg timeline.TextSegment, cfg Config) []AttributedSegment {
	if seg.Interval.IsZero() {
		return []AttributedSegment{alignInstant(turns, seg)}
	}

	overlaps := turns.TurnsOverlapping(seg.Interval)
	if len(overlaps) == 0 {
		return []AttributedSegment{{Interval: seg.Interval, Speaker: UnknownSpeaker, Text: seg.Text, Confidence: 0}}
	}

	ranked := rankSpeakers(overlaps, seg.Interval, cfg.TieBreakEpsilon)
	winner := ranked[0]

	if cfg.SplitCrossTalk && len(ranked) > 1 {
		if parts, ok := trySplit(seg, winner, ranked[1], cfg); ok {
			return parts
		}
	}

	return []AttributedSegment{{
		Interval:   seg.Interval,
		Speaker:    winner.id,
		Text:       seg.Text,
		Confidence: confidence(winner.total, seg.Interval.Duration()),
	}}
}

// alignInstant handles a zero-length segment: overlap by duration is always
// zero, so attribution falls back to the turns containing the instant.
func alignInstant(turns *timeline.TurnTimeline, seg timeline.TextSegment) AttributedSegment {
	at := turns.TurnsAt(seg.Interval.Start)
	if len(at) == 0 {
		return AttributedSegment{Interval: seg.Interval, Speaker: UnknownSpeaker, Text: seg.Text, Confidence: 0}
	}
	best := at[0]
	for _, tn := range at[1:] {
		if tn.Interval.Start < best.Interval.Start {
			best = tn
		} else if tn.Interval.Start == best.Interval.Start && tn.Speaker < best.Speaker {
			best = tn
		}
	}
	return AttributedSegment{Interval: seg.Interval, Speaker: best.Speaker, Text: seg.Text, Confidence: 1}
}

// rankSpeakers aggregates overlap per speaker and orders speakers by total
// overlap descending. Totals within epsilon of each other are tied and
// ordered by earliest overlapping turn start, then by speaker id, which
// makes the ranking total and deterministic regardless of input order.
func rankSpeakers(overlaps []timeline.TurnOverlap, seg interval.Interval, epsilon float64) []*speakerCover {
	byID := make(map[string]*speakerCover)
	for _, to := range overlaps {
		part, ok := interval.Clip(to.Turn.Interval, seg)
		if !ok {
			continue
		}
		sc := byID[to.Turn.Speaker]
		if sc == nil {
			sc = &speakerCover{id: to.Turn.Speaker, earliestStart: to.Turn.Interval.Start}
			byID[to.Turn.Speaker] = sc
		}
		sc.total += to.Overlap
		if to.Turn.Interval.Start < sc.earliestStart {
			sc.earliestStart = to.Turn.Interval.Start
		}
		sc.parts = append(sc.parts, part)
	}

	ranked := make([]*speakerCover, 0, len(byID))
	for _, sc := range byID {
		sort.SliceStable(sc.parts, func(i, j int) bool {
			return interval.Less(sc.parts[i], sc.parts[j])
		})
		ranked = append(ranked, sc)
	}
	// Deterministic base order before the comparison sort: map iteration
	// order must never leak into the result.
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].id < ranked[j].id })
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].total > ranked[j].total+epsilon {
			return true
		}
		if ranked[j].total > ranked[i].total+epsilon {
			return false
		}
		if ranked[i].earliestStart != ranked[j].earliestStart {
			return ranked[i].earliestStart < ranked[j].earliestStart
		}
		return ranked[i].id < ranked[j].id
	})
	return ranked
}

func confidence(overlap, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	c := overlap / duration
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// trySplit splits seg between the two leading speakers when the runner-up
// covers enough of the segment and each speaker's coverage forms a single
// contiguous run disjoint from the other's. Splitting is best-effort: any
// ambiguity keeps the single dominant-speaker assignment.
func trySplit(seg timeline.TextSegment, winner, second *speakerCover, cfg Config) ([]AttributedSegment, bool) {
	if second.total <= cfg.SplitThreshold*seg.Interval.Duration() {
		return nil, false
	}
	wRun, ok := contiguousRun(winner.parts, cfg.TieBreakEpsilon)
	if !ok {
		return nil, false
	}
	sRun, ok := contiguousRun(second.parts, cfg.TieBreakEpsilon)
	if !ok {
		return nil, false
	}

	first, last := winner, second
	firstRun, lastRun := wRun, sRun
	if sRun.End <= wRun.Start {
		first, last = second, winner
		firstRun, lastRun = sRun, wRun
	} else if wRun.End > sRun.Start {
		// runs overlap: no unambiguous boundary
		return nil, false
	}

	cut := (firstRun.End + lastRun.Start) / 2
	if cut <= seg.Interval.Start || cut >= seg.Interval.End {
		return nil, false
	}

	headIv := interval.New(seg.Interval.Start, cut)
	tailIv := interval.New(cut, seg.Interval.End)
	headText, tailText := splitText(seg, cut)

	head := AttributedSegment{
		Interval:   headIv,
		Speaker:    first.id,
		Text:       headText,
		Confidence: confidence(coverWithin(first.parts, headIv), headIv.Duration()),
	}
	tail := AttributedSegment{
		Interval:   tailIv,
		Speaker:    last.id,
		Text:       tailText,
		Confidence: confidence(coverWithin(last.parts, tailIv), tailIv.Duration()),
	}
	return []AttributedSegment{head, tail}, true
}

// contiguousRun merges a speaker's coverage parts and reports whether they
// form a single contiguous run (gaps up to epsilon are bridged).
func contiguousRun(parts []interval.Interval, epsilon float64) (interval.Interval, bool) {
	if len(parts) == 0 {
		return interval.Interval{}, false
	}
	run := parts[0]
	for _, p := range parts[1:] {
		if p.Start > run.End+epsilon {
			return interval.Interval{}, false
		}
		if p.End > run.End {
			run.End = p.End
		}
	}
	return run, true
}

// coverWithin sums the parts' overlap with bounds.
func coverWithin(parts []interval.Interval, bounds interval.Interval) float64 {
	var total float64
	for _, p := range parts {
		total += interval.Overlap(p, bounds)
	}
	return total
}

// splitText partitions the segment text at cut. With word timings the text
// is partitioned verbatim by word midpoint; without them both halves
// inherit the full text unsplit.
func splitText(seg timeline.TextSegment, cut float64) (string, string) {
	if len(seg.Words) == 0 {
		return seg.Text, seg.Text
	}
	var head, tail []string
	for _, w := range seg.Words {
		mid := (w.Interval.Start + w.Interval.End) / 2
		if mid < cut {
			head = append(head, w.Text)
		} else {
			tail = append(tail, w.Text)
		}
	}
	if len(head) == 0 || len(tail) == 0 {
		return seg.Text, seg.Text
	}
	return strings.Join(head, " "), strings.Join(tail, " ")
}
