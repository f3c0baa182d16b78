// Package batch_test tests line-granular failure isolation in batch runs.
package batch_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/dialogue-tts/internal/batch"
	"github.com/book-expert/dialogue-tts/internal/domain"
	"github.com/book-expert/dialogue-tts/internal/mediastore"
)

var errMockLine = errors.New("mock line failure")

// mockGenerator is a mock implementation of the core.LineGenerator interface
// that fails on a chosen call number.
type mockGenerator struct {
	calls      int
	failOnCall int
}

func (m *mockGenerator) GenerateLine(_ context.Context, req domain.TTSInput) (domain.TTSOutput, error) {
	m.calls++

	if m.calls == m.failOnCall {
		return domain.TTSOutput{}, domain.NewSynthesisError(errMockLine)
	}

	return domain.TTSOutput{
		Input: req,
		AudioRef: domain.MediaRef{
			Namespace: "tts_outputs",
			Path:      req.RunID + "/audio.wav",
		},
	}, nil
}

func newTestProcessor(t *testing.T, generator *mockGenerator) (*batch.Processor, *mediastore.Store) {
	t.Helper()

	testLogger, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	store := mediastore.New(t.TempDir(), "tts_outputs")

	return batch.NewProcessor(generator, store, testLogger), store
}

func testDocument() *batch.Document {
	document := &batch.Document{Images: make([]batch.ImageEntry, 0, 3)}

	for _, image := range []string{"img001.jpg", "img002.jpg", "img003.jpg"} {
		document.Images = append(document.Images, batch.ImageEntry{
			ImagePath: image,
			Dialogues: []batch.DialogueLine{
				{DialogueID: 0, Text: "line one", Gender: "female", Emotion: "happy"},
				{DialogueID: 1, Text: "line two", Gender: "male", Emotion: "calm"},
			},
		})
	}

	return document
}

func TestProcessDocument_IsolatesSingleLineFailure(t *testing.T) {
	t.Parallel()

	// Line 4 of 6 fails; the run must not abort.
	generator := &mockGenerator{failOnCall: 4}
	processor, _ := newTestProcessor(t, generator)

	document := testDocument()

	summary, err := processor.ProcessDocument(context.Background(), document, "run1")
	require.NoError(t, err)

	assert.Equal(t, "run1", summary.RunID)
	assert.Equal(t, 3, summary.ImageCount)
	assert.Equal(t, 6, generator.calls)

	withAudio := 0

	for imageIndex, image := range document.Images {
		require.Len(t, image.Dialogues, 2)

		for lineIndex, line := range image.Dialogues {
			callNumber := imageIndex*2 + lineIndex + 1
			if callNumber == 4 {
				assert.Nil(t, line.AudioRef, "failed line keeps a null audio reference")

				continue
			}

			require.NotNil(t, line.AudioRef)
			withAudio++
		}
	}

	assert.Equal(t, 5, withAudio)
}

func TestProcessDocument_PersistsMutatedDocument(t *testing.T) {
	t.Parallel()

	generator := &mockGenerator{}
	processor, store := newTestProcessor(t, generator)

	_, err := processor.ProcessDocument(context.Background(), testDocument(), "run2")
	require.NoError(t, err)

	data, err := store.LoadDocument("run2")
	require.NoError(t, err)

	var persisted batch.Document

	require.NoError(t, json.Unmarshal(data, &persisted))
	require.Len(t, persisted.Images, 3)
	assert.NotNil(t, persisted.Images[0].Dialogues[0].AudioRef)
}

func TestProcessDocument_SkipsImagesWithoutLines(t *testing.T) {
	t.Parallel()

	generator := &mockGenerator{}
	processor, _ := newTestProcessor(t, generator)

	document := &batch.Document{Images: []batch.ImageEntry{
		{ImagePath: "empty.jpg", Dialogues: nil},
		{ImagePath: "img.jpg", Dialogues: []batch.DialogueLine{
			{DialogueID: 0, Text: "only line"},
		}},
	}}

	summary, err := processor.ProcessDocument(context.Background(), document, "run3")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.ImageCount)
	assert.Equal(t, 1, generator.calls)
}

func TestProcessDocument_EmptyRunIDIsInputError(t *testing.T) {
	t.Parallel()

	processor, _ := newTestProcessor(t, &mockGenerator{})

	_, err := processor.ProcessDocument(context.Background(), testDocument(), "")
	require.Error(t, err)

	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindInput, kind)
}
