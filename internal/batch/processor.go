// Package batch drives synthesis over a hierarchical OCR document: a set of
// source images, each carrying an ordered list of dialogue lines. Failures
// are isolated at line granularity; one bad line never aborts a run.
package batch

import (
	"context"
	"fmt"

	"github.com/book-expert/logger"

	"github.com/book-expert/dialogue-tts/internal/core"
	"github.com/book-expert/dialogue-tts/internal/domain"
	"github.com/book-expert/dialogue-tts/internal/mediastore"
)

// Log messages.
const (
	logFmtImageWithoutLines = "Image entry %q has no dialogue lines, skipping"
	logFmtLineFailed        = "Dialogue %d on image %q failed: %v"
	logFmtRunFinished       = "Batch run %s finished: %d images, %d lines, %d failed"
)

// Document is the batch input: ordered image entries with ordered dialogue
// lines. The same structure, with audio references attached, is persisted as
// the run's output artifact.
type Document struct {
	Images []ImageEntry `json:"images"`
}

// ImageEntry is one source image and its dialogue lines.
type ImageEntry struct {
	ImagePath string         `json:"image_path"`
	Dialogues []DialogueLine `json:"dialogues"`
}

// DialogueLine is one line of dialogue as produced by the OCR stage. AudioRef
// is nil until synthesis succeeds for the line, and stays nil when it fails.
type DialogueLine struct {
	DialogueID int              `json:"dialogue_id"`
	Text       string           `json:"text"`
	Gender     string           `json:"gender"`
	Emotion    string           `json:"emotion"`
	SpeakerID  string           `json:"speaker_id"`
	AudioRef   *domain.MediaRef `json:"audio_ref"`
}

// Summary describes one finished batch run.
type Summary struct {
	RunID        string `json:"run_id"`
	OutputFolder string `json:"output_folder"`
	ImageCount   int    `json:"image_count"`
}

// Processor walks a document line by line through the line generator.
// Processing is strictly sequential in document order: the engine is
// throughput-bound on a single accelerator, so there is nothing to gain from
// parallelism here.
type Processor struct {
	generator core.LineGenerator
	store     *mediastore.Store
	log       *logger.Logger
}

// NewProcessor wires the batch processor.
func NewProcessor(generator core.LineGenerator, store *mediastore.Store, log *logger.Logger) *Processor {
	return &Processor{
		generator: generator,
		store:     store,
		log:       log,
	}
}

// ProcessDocument synthesizes every dialogue line of the document under the
// given run id. A failed line is logged and left with a nil audio reference;
// processing continues unconditionally. The mutated document is persisted as
// the run's tts_output.json before the summary is returned.
func (p *Processor) ProcessDocument(ctx context.Context, document *Document, runID string) (Summary, error) {
	if runID == "" {
		return Summary{}, domain.NewInputError(domain.ErrEmptyRunID)
	}

	lineCount := 0
	failedCount := 0

	for i := range document.Images {
		image := &document.Images[i]

		if len(image.Dialogues) == 0 {
			p.log.Warn(logFmtImageWithoutLines, image.ImagePath)

			continue
		}

		for j := range image.Dialogues {
			line := &image.Dialogues[j]
			lineCount++

			output, err := p.generator.GenerateLine(ctx, lineInput(image, line, runID))
			if err != nil {
				p.log.Error(logFmtLineFailed, line.DialogueID, image.ImagePath, err)

				line.AudioRef = nil
				failedCount++

				continue
			}

			audioRef := output.AudioRef
			line.AudioRef = &audioRef
		}
	}

	_, err := p.store.SaveDocument(runID, document)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to persist batch output: %w", err)
	}

	p.log.Info(logFmtRunFinished, runID, len(document.Images), lineCount, failedCount)

	return Summary{
		RunID:        runID,
		OutputFolder: p.store.RunDir(runID),
		ImageCount:   len(document.Images),
	}, nil
}

func lineInput(image *ImageEntry, line *DialogueLine, runID string) domain.TTSInput {
	return domain.TTSInput{
		Text:       line.Text,
		Gender:     domain.Gender(line.Gender),
		Emotion:    domain.Emotion{Name: line.Emotion},
		Speaker:    domain.Speaker{Name: line.SpeakerID},
		ImageRef:   domain.MediaRef{Path: image.ImagePath},
		RunID:      runID,
		DialogueID: line.DialogueID,
	}
}
