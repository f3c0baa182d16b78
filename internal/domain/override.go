package domain

import "strings"

// OverrideRule substitutes a different voice reference for one gender and
// emotion bucket, compensating for uneven per-emotion coverage of the voice
// samples. The rules are data, not code: they are expected to change as more
// samples are curated, so they load from configuration and are evaluated in
// order. An empty Emotions list matches any emotion.
type OverrideRule struct {
	Gender   Gender   `json:"gender"`
	Emotions []string `json:"emotions"`
	Speaker  string   `json:"speaker"`
}

func (rule OverrideRule) matches(gender Gender, emotionName string) bool {
	if rule.Gender != gender {
		return false
	}

	if len(rule.Emotions) == 0 {
		return true
	}

	for _, name := range rule.Emotions {
		if strings.EqualFold(name, emotionName) {
			return true
		}
	}

	return false
}

// OverrideSpeaker returns the speaker-name hint of the first rule matching
// the gender and emotion, if any. The hint is fed back into speaker
// resolution as the requested name, so group-membership fallback still
// applies.
func (r *Registries) OverrideSpeaker(gender Gender, emotionName string) (string, bool) {
	for _, rule := range r.rules {
		if rule.matches(gender, emotionName) {
			return rule.Speaker, true
		}
	}

	return "", false
}

// DefaultOverrideRules reproduces the curated coverage table for the female
// voice reference set: one loud and one very soft sample split the emotion
// space between them, with the group default as the catch-all. Other genders
// have a single sample each and need no override.
func DefaultOverrideRules() []OverrideRule {
	return []OverrideRule{
		{
			Gender: GenderFemale,
			Emotions: []string{
				"neutral", "happy", "angry", "surprised", "excited",
				"scared", "curious", "playful", "serious",
			},
			Speaker: "rote_loud",
		},
		{
			Gender:   GenderFemale,
			Emotions: []string{"sad", "nervous", "aroused", "calm"},
			Speaker:  "rote_very_soft",
		},
		{
			Gender:   GenderFemale,
			Emotions: nil,
			Speaker:  DefaultSpeakerName,
		},
	}
}
