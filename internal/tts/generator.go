package tts

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/book-expert/logger"

	"github.com/book-expert/dialogue-tts/internal/core"
	"github.com/book-expert/dialogue-tts/internal/domain"
	"github.com/book-expert/dialogue-tts/internal/mediastore"
	"github.com/book-expert/dialogue-tts/internal/tts/text"
)

const logFmtLineGenerated = "Generated dialogue audio: run=%s dialogue=%d speaker=%s emotion=%s exg=%v cfg=%v -> %s"

// Generator is the synthesis orchestrator. It validates the raw request,
// resolves it against the registries (applying the curated override), drives
// the external engine, and files the artifact under the versioned layout.
// Every failure it returns is a classified domain.RequestError.
type Generator struct {
	registries  *domain.Registries
	synthesizer core.Synthesizer
	store       *mediastore.Store
	sanitizer   *text.Sanitizer
	voiceRefDir string
	log         *logger.Logger
}

// NewGenerator wires the orchestrator. voiceRefDir is the engine-host folder
// holding the reference voice samples named by the speaker registry.
func NewGenerator(
	registries *domain.Registries,
	synthesizer core.Synthesizer,
	store *mediastore.Store,
	voiceRefDir string,
	log *logger.Logger,
) *Generator {
	return &Generator{
		registries:  registries,
		synthesizer: synthesizer,
		store:       store,
		sanitizer:   text.NewSanitizer(),
		voiceRefDir: voiceRefDir,
		log:         log,
	}
}

// GenerateLine resolves and synthesizes one dialogue line. The raw text is
// sanitized first, so a line that is blank after sanitizing counts as empty.
//
// Validation runs before the engine is touched: empty text, empty run id or a
// negative dialogue id fail with an input error and zero engine calls. On
// success the returned output pairs the fully-resolved request with the
// reference to the written artifact.
func (g *Generator) GenerateLine(ctx context.Context, req domain.TTSInput) (domain.TTSOutput, error) {
	req.Text = g.sanitizer.Sanitize(req.Text)

	err := validateInput(req)
	if err != nil {
		return domain.TTSOutput{}, domain.NewInputError(err)
	}

	resolved := g.resolve(req)

	audioData, err := g.synthesizer.Synthesize(ctx, core.SynthesisRequest{
		Text:           resolved.Text,
		SpeakerRefPath: filepath.Join(g.voiceRefDir, resolved.Speaker.WavFile),
		Exaggeration:   resolved.Emotion.Params.Exaggeration,
		CFG:            resolved.Emotion.Params.CFG,
	})
	if err != nil {
		return domain.TTSOutput{}, domain.NewSynthesisError(
			fmt.Errorf("engine synthesis failed: %w", err),
		)
	}

	outPath, err := g.saveArtifact(resolved, audioData)
	if err != nil {
		return domain.TTSOutput{}, domain.NewSynthesisError(err)
	}

	relPath, err := g.store.Rel(outPath)
	if err != nil {
		return domain.TTSOutput{}, domain.NewSynthesisError(err)
	}

	g.log.Info(
		logFmtLineGenerated,
		resolved.RunID,
		resolved.DialogueID,
		resolved.Speaker.Name,
		resolved.Emotion.Name,
		resolved.Emotion.Params.Exaggeration,
		resolved.Emotion.Params.CFG,
		relPath,
	)

	return domain.TTSOutput{
		Input: resolved,
		AudioRef: domain.MediaRef{
			Namespace: g.store.Namespace(),
			Path:      relPath,
		},
	}, nil
}

// resolve maps the raw hints onto canonical registry entries. The curated
// override hint, when present, replaces the requested speaker name before
// speaker resolution, so it stays subject to group-membership fallback.
func (g *Generator) resolve(req domain.TTSInput) domain.TTSInput {
	gender := g.registries.ResolveGender(string(req.Gender))
	emotion := g.registries.ResolveEmotion(req.Emotion.Name, req.CustomSettings)

	requestedSpeaker := req.Speaker.Name

	hint, ok := g.registries.OverrideSpeaker(gender, emotion.Name)
	if ok {
		requestedSpeaker = hint
	}

	resolved := req
	resolved.Gender = gender
	resolved.Emotion = emotion
	resolved.Speaker = g.registries.ResolveSpeaker(gender, requestedSpeaker)

	return resolved
}

func (g *Generator) saveArtifact(resolved domain.TTSInput, audioData []byte) (string, error) {
	dir := g.store.ConversationDir(resolved.RunID, resolved.ImageRef.Path, resolved.DialogueID)

	if resolved.CustomFilename != "" {
		return g.store.SaveNamed(dir, resolved.CustomFilename, audioData)
	}

	outPath, _, err := g.store.SaveVersioned(
		dir,
		resolved.Emotion.Params.Exaggeration,
		resolved.Emotion.Params.CFG,
		audioData,
	)

	return outPath, err
}

func validateInput(req domain.TTSInput) error {
	if req.Text == "" {
		return domain.ErrEmptyText
	}

	if req.RunID == "" {
		return domain.ErrEmptyRunID
	}

	if req.DialogueID < 0 {
		return domain.ErrNegativeDialogueID
	}

	return nil
}
