// Package metadata maintains the flat dataset rows that accompany assembled
// conversation records: one CSV row per recording plus dataset-level
// summary statistics. Role labels (scammer/victim) are supplied externally;
// nothing here invents them.
package metadata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/voxalign/voxalign/internal/domain/record"
	"github.com/voxalign/voxalign/internal/types"
)

// Entry is one dataset row.
type Entry struct {
	FileID              string
	Filename            string
	DurationSec         float64
	NumSpeakers         int
	SpeakerRoles        []string
	SourceType          string
	RecordingConditions string
	Language            string
	Notes               string
}

// BuildEntry derives a dataset row from an assembled record plus the
// externally supplied facts the record does not carry.
func BuildEntry(rec *record.ConversationRecord, filename string, roles []string, sourceType, conditions, notes string) Entry {
	return Entry{
		FileID:              rec.FileID,
		Filename:            filename,
		DurationSec:         rec.Duration,
		NumSpeakers:         rec.NumSpeakers,
		SpeakerRoles:        roles,
		SourceType:          sourceType,
		RecordingConditions: conditions,
		Language:            rec.Language,
		Notes:               notes,
	}
}

var header = []string{
	"file_id", "filename", "duration_sec", "num_speakers", "speaker_roles",
	"source_type", "recording_conditions", "language", "notes",
}

// CSVStore reads and writes the dataset CSV. Rows are keyed by file_id;
// upserting an existing id replaces the row in place.
type CSVStore struct {
	path string
}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Load reads all rows. A missing file is an empty dataset, not an error.
func (s *CSVStore) Load() ([]Entry, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open metadata: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)

	var entries []Entry
	first := true
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read metadata: %w", err)
		}
		if first {
			first = false
			continue // header row
		}
		e, err := parseRow(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Upsert inserts the entry, replacing any existing row with the same
// file_id, and rewrites the file.
func (s *CSVStore) Upsert(e Entry) error {
	entries, err := s.Load()
	if err != nil {
		return err
	}
	replaced := false
	for i := range entries {
		if entries[i].FileID == e.FileID {
			entries[i] = e
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, e)
	}
	return s.write(entries)
}

func (s *CSVStore) write(entries []Entry) error {
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metadata dir: %w", err)
		}
	}
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create metadata: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write metadata header: %w", err)
	}
	for _, e := range entries {
		row := []string{
			e.FileID,
			e.Filename,
			strconv.FormatFloat(e.DurationSec, 'f', -1, 64),
			strconv.Itoa(e.NumSpeakers),
			strings.Join(e.SpeakerRoles, "|"),
			e.SourceType,
			e.RecordingConditions,
			e.Language,
			e.Notes,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write metadata row %s: %w", e.FileID, err)
		}
	}
	w.Flush()
	return w.Error()
}

func parseRow(row []string) (Entry, error) {
	dur, err := strconv.ParseFloat(row[2], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("row %s: bad duration %q", row[0], row[2])
	}
	n, err := strconv.Atoi(row[3])
	if err != nil {
		return Entry{}, fmt.Errorf("row %s: bad speaker count %q", row[0], row[3])
	}
	var roles []string
	if row[4] != "" {
		roles = strings.Split(row[4], "|")
	}
	return Entry{
		FileID:              row[0],
		Filename:            row[1],
		DurationSec:         dur,
		NumSpeakers:         n,
		SpeakerRoles:        roles,
		SourceType:          row[5],
		RecordingConditions: row[6],
		Language:            row[7],
		Notes:               row[8],
	}, nil
}

// Summarize computes dataset statistics over the loaded rows.
func Summarize(entries []Entry) types.DatasetSummary {
	sum := types.DatasetSummary{
		Languages:     make(map[string]int),
		SpeakerCounts: make(map[int]int),
	}
	for i, e := range entries {
		sum.TotalConversations++
		sum.TotalDurationMin += e.DurationSec / 60
		sum.AvgDurationSec += e.DurationSec
		sum.Languages[e.Language]++
		sum.SpeakerCounts[e.NumSpeakers]++
		if i == 0 || e.DurationSec < sum.MinDurationSec {
			sum.MinDurationSec = e.DurationSec
		}
		if e.DurationSec > sum.MaxDurationSec {
			sum.MaxDurationSec = e.DurationSec
		}
	}
	if sum.TotalConversations > 0 {
		sum.AvgDurationSec /= float64(sum.TotalConversations)
	}
	return sum
}
