// Package domain_test tests the registries and the resolution cascade.
package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/dialogue-tts/internal/domain"
)

func TestResolveGender_KnownValuesAnyCasing(t *testing.T) {
	t.Parallel()

	registries := domain.DefaultRegistries()

	for _, raw := range []string{"female", "FEMALE", "Female", "fEmAlE"} {
		assert.Equal(t, domain.GenderFemale, registries.ResolveGender(raw))
	}

	assert.Equal(t, domain.GenderMale, registries.ResolveGender("male"))
	assert.Equal(t, domain.GenderNeutral, registries.ResolveGender("neutral"))
}

func TestResolveGender_UnknownOrEmptyFallsBack(t *testing.T) {
	t.Parallel()

	registries := domain.DefaultRegistries()

	for _, raw := range []string{"", "unknown", "robot", "f"} {
		assert.Equal(t, domain.DefaultGender, registries.ResolveGender(raw))
	}
}

func TestResolveEmotion_DefaultsAndCasing(t *testing.T) {
	t.Parallel()

	registries := domain.DefaultRegistries()

	happy := registries.ResolveEmotion("HAPPY", nil)
	assert.Equal(t, "happy", happy.Name)
	assert.InEpsilon(t, 0.65, happy.Params.CFG, 0.0001)
	assert.InEpsilon(t, 0.7, happy.Params.Exaggeration, 0.0001)

	fallback := registries.ResolveEmotion("melancholic", nil)
	assert.Equal(t, domain.DefaultEmotionName, fallback.Name)

	empty := registries.ResolveEmotion("", nil)
	assert.Equal(t, domain.DefaultEmotionName, empty.Name)
}

func TestResolveEmotion_CustomParamsReplaceDefaultsVerbatim(t *testing.T) {
	t.Parallel()

	registries := domain.DefaultRegistries()
	custom := &domain.EmotionParams{CFG: 0.11, Exaggeration: 0.99}

	resolved := registries.ResolveEmotion("sad", custom)

	// The resolved name is kept; the numbers are replaced, not merged.
	assert.Equal(t, "sad", resolved.Name)
	assert.Equal(t, *custom, resolved.Params)
}

func TestResolveSpeaker_MembershipAndFallback(t *testing.T) {
	t.Parallel()

	registries := domain.DefaultRegistries()

	soft := registries.ResolveSpeaker(domain.GenderFemale, "soft")
	assert.Equal(t, "soft", soft.Name)
	assert.Equal(t, domain.GenderFemale, soft.Gender)

	// A name absent from the resolved group silently falls back to the
	// group default, never to an error.
	fallback := registries.ResolveSpeaker(domain.GenderMale, "soft")
	assert.Equal(t, domain.DefaultSpeakerName, fallback.Name)
	assert.Equal(t, domain.GenderMale, fallback.Gender)

	missing := registries.ResolveSpeaker(domain.GenderNeutral, "")
	assert.Equal(t, domain.DefaultSpeakerName, missing.Name)
}

func TestResolveSpeaker_ResultIsAlwaysGroupMember(t *testing.T) {
	t.Parallel()

	registries := domain.DefaultRegistries()

	for _, gender := range []domain.Gender{domain.GenderFemale, domain.GenderMale, domain.GenderNeutral} {
		for _, requested := range []string{"", "default", "soft", "nonexistent"} {
			speaker := registries.ResolveSpeaker(gender, requested)
			assert.Equal(t, gender, speaker.Gender)
		}
	}
}

func TestNewRegistries_Validation(t *testing.T) {
	t.Parallel()

	_, err := domain.NewRegistries(nil, domain.DefaultEmotions(), nil)
	require.ErrorIs(t, err, domain.ErrNoSpeakers)

	_, err = domain.NewRegistries(domain.DefaultSpeakers(), nil, nil)
	require.ErrorIs(t, err, domain.ErrNoEmotions)

	// No neutral group.
	_, err = domain.NewRegistries([]domain.Speaker{
		{Name: "default", WavFile: "f.wav", Gender: domain.GenderFemale},
	}, domain.DefaultEmotions(), nil)
	require.ErrorIs(t, err, domain.ErrMissingNeutralGroup)

	// Group without its default speaker.
	_, err = domain.NewRegistries([]domain.Speaker{
		{Name: "default", WavFile: "n.wav", Gender: domain.GenderNeutral},
		{Name: "soft", WavFile: "f.wav", Gender: domain.GenderFemale},
	}, domain.DefaultEmotions(), nil)
	require.ErrorIs(t, err, domain.ErrMissingDefaultSpeaker)

	// Registry without the default emotion.
	_, err = domain.NewRegistries(domain.DefaultSpeakers(), []domain.Emotion{
		{Name: "happy", Params: domain.EmotionParams{CFG: 0.5, Exaggeration: 0.5}},
	}, nil)
	require.ErrorIs(t, err, domain.ErrMissingDefaultEmotion)

	// Negative knobs are rejected at construction.
	_, err = domain.NewRegistries(domain.DefaultSpeakers(), []domain.Emotion{
		{Name: "neutral", Params: domain.EmotionParams{CFG: -0.1, Exaggeration: 0.5}},
	}, nil)
	require.ErrorIs(t, err, domain.ErrNegativeEmotionParam)
}

func TestEmotions_SortedByName(t *testing.T) {
	t.Parallel()

	emotions := domain.DefaultRegistries().Emotions()
	require.NotEmpty(t, emotions)

	for i := 1; i < len(emotions); i++ {
		assert.Less(t, emotions[i-1].Name, emotions[i].Name)
	}
}
