// Package extract turns spoken-word hand transcripts into validated records.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sidepot-cloud/handex/internal/domain"
	"github.com/sidepot-cloud/handex/internal/domain/hand"
)

// TranscriptAnalyzer produces a raw JSON hand object from a transcript.
type TranscriptAnalyzer interface {
	Analyze(ctx context.Context, transcript string) (string, error)
}

// Service drives transcript extraction: model call, decode, validate.
type Service struct {
	analyzer TranscriptAnalyzer
	logger   *zap.Logger
}

// New creates an extraction service.
func New(analyzer TranscriptAnalyzer, logger *zap.Logger) *Service {
	return &Service{analyzer: analyzer, logger: logger}
}

// Extract analyzes the transcript and returns a validated record carrying
// the given ID. The analyzer's own id field, if any, is overwritten.
func (s *Service) Extract(ctx context.Context, id, transcript string) (hand.Record, error) {
	if strings.TrimSpace(transcript) == "" {
		return hand.Record{}, fmt.Errorf("empty transcript: %w", domain.ErrExtractionFailed)
	}

	raw, err := s.analyzer.Analyze(ctx, transcript)
	if err != nil {
		return hand.Record{}, fmt.Errorf("analyze transcript: %w", err)
	}

	rec, err := DecodeRecord([]byte(raw))
	if err != nil {
		return hand.Record{}, err
	}
	rec.ID = id

	if err := rec.Validate(); err != nil {
		return hand.Record{}, err
	}

	s.logger.Info("Transcript extracted", zap.String("hand_id", id))
	return rec, nil
}

// DecodeRecord parses a JSON hand object. Validation is separate so callers
// can decode partial records before assigning identifiers.
func DecodeRecord(data []byte) (hand.Record, error) {
	var rec hand.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return hand.Record{}, fmt.Errorf("decode hand record: %v: %w", err, domain.ErrExtractionFailed)
	}
	return rec, nil
}
