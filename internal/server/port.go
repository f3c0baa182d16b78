package server

import (
	"context"

	"github.com/book-expert/dialogue-tts/internal/batch"
	"github.com/book-expert/dialogue-tts/internal/domain"
)

// LineGenerator is the slice of the orchestrator the handlers need.
type LineGenerator interface {
	GenerateLine(ctx context.Context, req domain.TTSInput) (domain.TTSOutput, error)
}

// DocumentProcessor is the slice of the batch processor the handlers need.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, document *batch.Document, runID string) (batch.Summary, error)
}
