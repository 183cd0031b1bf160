// Package catalog persists assembled conversation records in a SQLite
// database and answers dataset-level summary queries.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/voxalign/voxalign/internal/domain/record"
	"github.com/voxalign/voxalign/internal/types"
)

// Conversation is the per-recording row.
type Conversation struct {
	FileID      string  `gorm:"primaryKey;column:file_id"`
	Duration    float64 `gorm:"column:duration"`
	NumSpeakers int     `gorm:"column:num_speakers"`
	SpeakerIDs  string  `gorm:"column:speaker_ids"` // pipe-joined label set
	Language    string  `gorm:"column:language"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Conversation) TableName() string { return "conversations" }

// Utterance is one speaker-attributed segment of a conversation.
type Utterance struct {
	ID         uint    `gorm:"primaryKey"`
	FileID     string  `gorm:"column:file_id;index"`
	Start      float64 `gorm:"column:start"`
	End        float64 `gorm:"column:end"`
	Speaker    string  `gorm:"column:speaker"`
	Text       string  `gorm:"column:text"`
	Confidence float64 `gorm:"column:confidence"`
}

func (Utterance) TableName() string { return "utterances" }

// Store implements ports.Catalog over SQLite.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the catalog database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create catalog dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if err := db.AutoMigrate(&Conversation{}, &Utterance{}); err != nil {
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}
	return &Store{db: db}, nil
}

// Save upserts a conversation record and replaces its utterances.
func (s *Store) Save(ctx context.Context, rec *record.ConversationRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conv := Conversation{
			FileID:      rec.FileID,
			Duration:    rec.Duration,
			NumSpeakers: rec.NumSpeakers,
			SpeakerIDs:  joinIDs(rec.SpeakerIDs),
			Language:    rec.Language,
		}
		if err := tx.Save(&conv).Error; err != nil {
			return fmt.Errorf("save conversation %s: %w", rec.FileID, err)
		}
		if err := tx.Where("file_id = ?", rec.FileID).Delete(&Utterance{}).Error; err != nil {
			return fmt.Errorf("clear utterances %s: %w", rec.FileID, err)
		}
		if len(rec.Segments) == 0 {
			return nil
		}
		rows := make([]Utterance, 0, len(rec.Segments))
		for _, seg := range rec.Segments {
			rows = append(rows, Utterance{
				FileID:     rec.FileID,
				Start:      seg.Start,
				End:        seg.End,
				Speaker:    seg.Speaker,
				Text:       seg.Text,
				Confidence: seg.Confidence,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("save utterances %s: %w", rec.FileID, err)
		}
		return nil
	})
}

// Summary aggregates dataset statistics over all stored conversations.
func (s *Store) Summary(ctx context.Context) (types.DatasetSummary, error) {
	var convs []Conversation
	if err := s.db.WithContext(ctx).Order("file_id").Find(&convs).Error; err != nil {
		return types.DatasetSummary{}, fmt.Errorf("list conversations: %w", err)
	}

	sum := types.DatasetSummary{
		Languages:     make(map[string]int),
		SpeakerCounts: make(map[int]int),
	}
	for i, c := range convs {
		sum.TotalConversations++
		sum.TotalDurationMin += c.Duration / 60
		sum.Languages[c.Language]++
		sum.SpeakerCounts[c.NumSpeakers]++
		if i == 0 || c.Duration < sum.MinDurationSec {
			sum.MinDurationSec = c.Duration
		}
		if c.Duration > sum.MaxDurationSec {
			sum.MaxDurationSec = c.Duration
		}
		sum.AvgDurationSec += c.Duration
	}
	if sum.TotalConversations > 0 {
		sum.AvgDurationSec /= float64(sum.TotalConversations)
	}
	return sum, nil
}

// Utterances returns a conversation's segments in start order.
func (s *Store) Utterances(ctx context.Context, fileID string) ([]Utterance, error) {
	var rows []Utterance
	err := s.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("start").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list utterances %s: %w", fileID, err)
	}
	return rows, nil
}

func joinIDs(ids []string) string {
	return strings.Join(ids, "|")
}
