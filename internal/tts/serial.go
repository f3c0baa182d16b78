package tts

import (
	"context"
	"sync"

	"github.com/book-expert/dialogue-tts/internal/core"
)

// SerialSynthesizer serializes access to a shared synthesizer. The engine is
// one stateful model on one accelerator; interleaved calls are undefined, so
// single-flight usage is enforced here instead of being left to callers.
type SerialSynthesizer struct {
	mu    sync.Mutex
	inner core.Synthesizer
}

// NewSerialSynthesizer wraps inner with a single-owner lock.
func NewSerialSynthesizer(inner core.Synthesizer) *SerialSynthesizer {
	return &SerialSynthesizer{inner: inner}
}

// Synthesize forwards to the wrapped synthesizer, one call at a time.
func (s *SerialSynthesizer) Synthesize(ctx context.Context, req core.SynthesisRequest) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inner.Synthesize(ctx, req)
}
