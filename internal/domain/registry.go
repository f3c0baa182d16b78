package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Registry construction errors. Serving with an incomplete registry set is a
// startup failure, so these are returned from NewRegistries rather than
// papered over with defaults.
var (
	ErrNoSpeakers            = errors.New("speaker registry cannot be empty")
	ErrNoEmotions            = errors.New("emotion registry cannot be empty")
	ErrMissingDefaultSpeaker = errors.New("speaker group is missing its default speaker")
	ErrMissingDefaultEmotion = errors.New("emotion registry is missing the default emotion")
	ErrMissingNeutralGroup   = errors.New("speaker registry is missing the neutral group")
	ErrUnknownGender         = errors.New("unknown gender")
	ErrNegativeEmotionParam  = errors.New("emotion parameters must be non-negative")
)

// Registries is the immutable set of process-wide lookup tables plus the
// curated override rules. It is built once at startup and only read after
// that. Unknown or empty keys are a normal case and resolve to defaults;
// lookups never fail.
type Registries struct {
	genders  map[string]Gender
	speakers map[Gender]map[string]Speaker
	emotions map[string]Emotion
	rules    []OverrideRule
}

// NewRegistries validates the curated speaker and emotion data and builds the
// lookup tables. Speaker group membership follows each speaker's own gender.
func NewRegistries(speakers []Speaker, emotions []Emotion, rules []OverrideRule) (*Registries, error) {
	if len(speakers) == 0 {
		return nil, ErrNoSpeakers
	}

	if len(emotions) == 0 {
		return nil, ErrNoEmotions
	}

	reg := &Registries{
		genders: map[string]Gender{
			string(GenderFemale):  GenderFemale,
			string(GenderMale):    GenderMale,
			string(GenderNeutral): GenderNeutral,
		},
		speakers: make(map[Gender]map[string]Speaker),
		emotions: make(map[string]Emotion),
		rules:    rules,
	}

	err := reg.addSpeakers(speakers)
	if err != nil {
		return nil, err
	}

	err = reg.addEmotions(emotions)
	if err != nil {
		return nil, err
	}

	err = reg.validateGroups()
	if err != nil {
		return nil, err
	}

	return reg, nil
}

func (r *Registries) addSpeakers(speakers []Speaker) error {
	for _, speaker := range speakers {
		gender, ok := r.genders[strings.ToLower(string(speaker.Gender))]
		if !ok {
			return fmt.Errorf("%w: %q for speaker %q", ErrUnknownGender, speaker.Gender, speaker.Name)
		}

		group, ok := r.speakers[gender]
		if !ok {
			group = make(map[string]Speaker)
			r.speakers[gender] = group
		}

		speaker.Gender = gender
		group[strings.ToLower(speaker.Name)] = speaker
	}

	return nil
}

func (r *Registries) addEmotions(emotions []Emotion) error {
	for _, emotion := range emotions {
		if emotion.Params.CFG < 0 || emotion.Params.Exaggeration < 0 {
			return fmt.Errorf("%w: emotion %q", ErrNegativeEmotionParam, emotion.Name)
		}

		r.emotions[strings.ToLower(emotion.Name)] = emotion
	}

	if _, ok := r.emotions[DefaultEmotionName]; !ok {
		return ErrMissingDefaultEmotion
	}

	return nil
}

func (r *Registries) validateGroups() error {
	if _, ok := r.speakers[DefaultGender]; !ok {
		return ErrMissingNeutralGroup
	}

	for gender, group := range r.speakers {
		if _, ok := group[DefaultSpeakerName]; !ok {
			return fmt.Errorf("%w: group %q", ErrMissingDefaultSpeaker, gender)
		}
	}

	return nil
}

// ResolveGender maps a raw gender string onto a known Gender. Matching is
// case-insensitive; empty or unknown input resolves to the default gender.
func (r *Registries) ResolveGender(raw string) Gender {
	gender, ok := r.genders[strings.ToLower(raw)]
	if !ok {
		return DefaultGender
	}

	return gender
}

// ResolveEmotion maps a raw emotion name onto a registry entry, falling back
// to the default emotion for empty or unknown names. When custom parameters
// are supplied they replace the registry defaults verbatim, while the
// resolved name is kept.
func (r *Registries) ResolveEmotion(raw string, custom *EmotionParams) Emotion {
	emotion, ok := r.emotions[strings.ToLower(raw)]
	if !ok {
		emotion = r.emotions[DefaultEmotionName]
	}

	if custom != nil {
		emotion.Params = *custom
	}

	return emotion
}

// ResolveSpeaker picks the canonical speaker for a resolved gender. Matching
// is by name only; a missing or unknown requested name falls back to the
// group's default speaker, never to an error.
func (r *Registries) ResolveSpeaker(gender Gender, requested string) Speaker {
	group, ok := r.speakers[gender]
	if !ok {
		group = r.speakers[DefaultGender]
	}

	speaker, ok := group[strings.ToLower(requested)]
	if !ok {
		return group[DefaultSpeakerName]
	}

	return speaker
}

// Emotions returns the registry contents sorted by name.
func (r *Registries) Emotions() []Emotion {
	emotions := make([]Emotion, 0, len(r.emotions))
	for _, emotion := range r.emotions {
		emotions = append(emotions, emotion)
	}

	sort.Slice(emotions, func(i, j int) bool {
		return emotions[i].Name < emotions[j].Name
	})

	return emotions
}

// DefaultSpeakers is the curated voice reference set used when no speakers
// are configured.
func DefaultSpeakers() []Speaker {
	return []Speaker{
		{Name: "default", WavFile: "female_default.wav", Gender: GenderFemale},
		{Name: "soft", WavFile: "female_soft.wav", Gender: GenderFemale},
		{Name: "dominant", WavFile: "female_dom.wav", Gender: GenderFemale},
		{Name: "rote_loud", WavFile: "rote_loud.wav", Gender: GenderFemale},
		{Name: "rote_very_soft", WavFile: "rote_very_soft.wav", Gender: GenderFemale},
		{Name: "default", WavFile: "male_default.wav", Gender: GenderMale},
		{Name: "default", WavFile: "neutral.wav", Gender: GenderNeutral},
	}
}

// DefaultEmotions is the curated emotion parameter set used when no emotions
// are configured.
func DefaultEmotions() []Emotion {
	return []Emotion{
		{Name: "neutral", Params: EmotionParams{CFG: 0.5, Exaggeration: 0.5}},
		{Name: "calm", Params: EmotionParams{CFG: 0.45, Exaggeration: 0.4}},
		{Name: "happy", Params: EmotionParams{CFG: 0.65, Exaggeration: 0.7}},
		{Name: "sad", Params: EmotionParams{CFG: 0.55, Exaggeration: 0.6}},
		{Name: "angry", Params: EmotionParams{CFG: 0.75, Exaggeration: 0.85}},
		{Name: "surprised", Params: EmotionParams{CFG: 0.7, Exaggeration: 0.8}},
		{Name: "excited", Params: EmotionParams{CFG: 0.7, Exaggeration: 0.85}},
		{Name: "scared", Params: EmotionParams{CFG: 0.6, Exaggeration: 0.75}},
		{Name: "curious", Params: EmotionParams{CFG: 0.55, Exaggeration: 0.55}},
		{Name: "playful", Params: EmotionParams{CFG: 0.6, Exaggeration: 0.65}},
		{Name: "serious", Params: EmotionParams{CFG: 0.5, Exaggeration: 0.4}},
		{Name: "nervous", Params: EmotionParams{CFG: 0.5, Exaggeration: 0.6}},
		{Name: "aroused", Params: EmotionParams{CFG: 0.5, Exaggeration: 0.65}},
	}
}

// DefaultRegistries builds registries from the curated built-in data,
// including the default override rules.
func DefaultRegistries() *Registries {
	reg, err := NewRegistries(DefaultSpeakers(), DefaultEmotions(), DefaultOverrideRules())
	if err != nil {
		// The built-in data is validated by tests; a failure here is a
		// programming error.
		panic(err)
	}

	return reg
}
