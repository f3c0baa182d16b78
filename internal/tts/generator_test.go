package tts_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/dialogue-tts/internal/core"
	"github.com/book-expert/dialogue-tts/internal/domain"
	"github.com/book-expert/dialogue-tts/internal/mediastore"
	"github.com/book-expert/dialogue-tts/internal/tts"
)

var errMockEngine = errors.New("mock engine failure")

// mockSynthesizer is a mock implementation of the core.Synthesizer interface.
type mockSynthesizer struct {
	shouldFail bool
	calls      int
	lastReq    core.SynthesisRequest
}

func (m *mockSynthesizer) Synthesize(_ context.Context, req core.SynthesisRequest) ([]byte, error) {
	m.calls++
	m.lastReq = req

	if m.shouldFail {
		return nil, errMockEngine
	}

	return []byte("fake-wav"), nil
}

func newTestGenerator(t *testing.T, synth core.Synthesizer) *tts.Generator {
	t.Helper()

	testLogger, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	store := mediastore.New(t.TempDir(), "tts_outputs")

	return tts.NewGenerator(domain.DefaultRegistries(), synth, store, "/refs", testLogger)
}

func validRequest() domain.TTSInput {
	return domain.TTSInput{
		Text:       "I'll protect you.",
		Gender:     domain.GenderFemale,
		Emotion:    domain.Emotion{Name: "happy"},
		Speaker:    domain.Speaker{Name: "soft"},
		ImageRef:   domain.MediaRef{Path: "pages/img002.jpg"},
		RunID:      "run42",
		DialogueID: 3,
	}
}

func TestGenerateLine_EmptyTextFailsBeforeEngine(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{}
	generator := newTestGenerator(t, synth)

	req := validRequest()
	req.Text = ""

	_, err := generator.GenerateLine(context.Background(), req)
	require.Error(t, err)

	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindInput, kind)
	assert.ErrorIs(t, err, domain.ErrEmptyText)
	assert.Zero(t, synth.calls, "engine must not be invoked on invalid input")
}

func TestGenerateLine_BlankTextAfterSanitizingFailsBeforeEngine(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{}
	generator := newTestGenerator(t, synth)

	req := validRequest()
	req.Text = "  \t \n "

	_, err := generator.GenerateLine(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyText)
	assert.Zero(t, synth.calls)
}

func TestGenerateLine_SanitizedTextReachesEngine(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{}
	generator := newTestGenerator(t, synth)

	req := validRequest()
	req.Text = "  I'll\tprotect—you.  "

	_, err := generator.GenerateLine(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "I'll protect, you.", synth.lastReq.Text)
}

func TestGenerateLine_InputValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*domain.TTSInput)
		want   error
	}{
		{"missing run id", func(r *domain.TTSInput) { r.RunID = "" }, domain.ErrEmptyRunID},
		{"negative dialogue id", func(r *domain.TTSInput) { r.DialogueID = -1 }, domain.ErrNegativeDialogueID},
	}

	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			synth := &mockSynthesizer{}
			generator := newTestGenerator(t, synth)

			req := validRequest()
			testCase.mutate(&req)

			_, err := generator.GenerateLine(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, testCase.want)

			kind, ok := domain.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, domain.KindInput, kind)
			assert.Zero(t, synth.calls)
		})
	}
}

func TestGenerateLine_ResolvesAndAppliesOverride(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{}
	generator := newTestGenerator(t, synth)

	output, err := generator.GenerateLine(context.Background(), validRequest())
	require.NoError(t, err)

	// female + happy is curated onto the loud sample, regardless of the
	// requested speaker.
	assert.Equal(t, "rote_loud", output.Input.Speaker.Name)
	assert.Equal(t, filepath.Join("/refs", "rote_loud.wav"), synth.lastReq.SpeakerRefPath)
	assert.InEpsilon(t, 0.7, synth.lastReq.Exaggeration, 0.0001)
	assert.InEpsilon(t, 0.65, synth.lastReq.CFG, 0.0001)

	assert.Equal(t, "tts_outputs", output.AudioRef.Namespace)
	assert.Equal(t, "run42/pages/img002_jpg/dialogue__3/v1__exg0.7__cfg0.65.wav", output.AudioRef.Path)
}

func TestGenerateLine_MaleBypassesOverride(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{}
	generator := newTestGenerator(t, synth)

	req := validRequest()
	req.Gender = domain.GenderMale
	req.Speaker = domain.Speaker{Name: "nonexistent"}

	output, err := generator.GenerateLine(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSpeakerName, output.Input.Speaker.Name)
	assert.Equal(t, domain.GenderMale, output.Input.Speaker.Gender)
}

func TestGenerateLine_CustomParamsReachEngineAndFilename(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{}
	generator := newTestGenerator(t, synth)

	req := validRequest()
	req.CustomSettings = &domain.EmotionParams{CFG: 0.25, Exaggeration: 0.9}

	output, err := generator.GenerateLine(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "happy", output.Input.Emotion.Name)
	assert.InEpsilon(t, 0.9, synth.lastReq.Exaggeration, 0.0001)
	assert.InEpsilon(t, 0.25, synth.lastReq.CFG, 0.0001)
	assert.Contains(t, output.AudioRef.Path, "v1__exg0.9__cfg0.25.wav")
}

func TestGenerateLine_VersionsIncrementPerConversation(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{}
	generator := newTestGenerator(t, synth)

	first, err := generator.GenerateLine(context.Background(), validRequest())
	require.NoError(t, err)

	second, err := generator.GenerateLine(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Contains(t, first.AudioRef.Path, "v1__")
	assert.Contains(t, second.AudioRef.Path, "v2__")
}

func TestGenerateLine_EngineFailureIsSynthesisKind(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{shouldFail: true}
	generator := newTestGenerator(t, synth)

	_, err := generator.GenerateLine(context.Background(), validRequest())
	require.Error(t, err)

	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindSynthesis, kind)

	// The causing error is preserved for diagnostics.
	assert.ErrorIs(t, err, errMockEngine)
}

func TestGenerateLine_CustomFilenameBypassesVersioning(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{}
	generator := newTestGenerator(t, synth)

	req := validRequest()
	req.RunID = "emotion_tuning"
	req.CustomFilename = "soft_20250801_exg0.9_cfg0.25_ab12cd"

	output, err := generator.GenerateLine(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, output.AudioRef.Path, "soft_20250801_exg0.9_cfg0.25_ab12cd.wav")
}
