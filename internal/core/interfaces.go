// Package core defines the interfaces connecting the dialogue TTS pipeline.
package core

import (
	"context"

	"github.com/book-expert/dialogue-tts/internal/domain"
)

// SynthesisRequest is the contract with the external speech-synthesis engine:
// the text to speak, the reference voice sample on the engine host, and the
// two emotion knobs. The engine is opaque beyond this.
type SynthesisRequest struct {
	Text           string
	SpeakerRefPath string
	Exaggeration   float64
	CFG            float64
}

// Synthesizer produces raw WAV audio for one request. Implementations wrap a
// single shared engine; callers must assume calls block until the engine is
// free.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error)
}

// LineGenerator turns one loosely-specified dialogue request into a stored
// audio artifact. Failures are always classified domain.RequestError values.
type LineGenerator interface {
	GenerateLine(ctx context.Context, req domain.TTSInput) (domain.TTSOutput, error)
}
