// Package domain holds the dialogue TTS domain model: genders, speakers,
// emotions, media references, and the request/result pair that flows through
// the synthesis pipeline.
package domain

// Gender is the closed set of voice gender groups a request can resolve into.
type Gender string

// Known gender values. GenderNeutral doubles as the fallback for missing or
// unrecognized input.
const (
	GenderFemale  Gender = "female"
	GenderMale    Gender = "male"
	GenderNeutral Gender = "neutral"
)

// DefaultGender is returned for empty or unknown gender strings.
const DefaultGender = GenderNeutral

// DefaultSpeakerName is the speaker name every gender group must provide.
const DefaultSpeakerName = "default"

// DefaultEmotionName is the emotion every registry must contain; unknown
// emotion names resolve to it.
const DefaultEmotionName = "neutral"

// Speaker is one reference voice. WavFile names the reference audio sample
// inside the configured voice reference directory.
type Speaker struct {
	Name    string `json:"name"`
	WavFile string `json:"wav_file"`
	Gender  Gender `json:"gender"`
}

// EmotionParams are the two numeric knobs forwarded to the synthesis engine.
// Both must be non-negative; any upper clamping is the engine's business.
type EmotionParams struct {
	CFG          float64 `json:"cfg"`
	Exaggeration float64 `json:"exaggeration"`
}

// Emotion pairs an emotion name with its synthesis parameters.
type Emotion struct {
	Name   string        `json:"name"`
	Params EmotionParams `json:"params"`
}

// MediaRef is a location-independent pointer to a stored asset. Path is
// relative to the configured media root joined with Namespace.
type MediaRef struct {
	Namespace string `json:"namespace"`
	Path      string `json:"path"`
}

// TTSInput is a single dialogue synthesis request. Before resolution the
// Gender, Emotion and Speaker fields carry raw hints; after resolution they
// hold the canonical registry entries.
type TTSInput struct {
	Text           string         `json:"text"`
	Gender         Gender         `json:"gender"`
	Emotion        Emotion        `json:"emotion"`
	Speaker        Speaker        `json:"speaker"`
	ImageRef       MediaRef       `json:"image_ref"`
	CustomSettings *EmotionParams `json:"custom_settings,omitempty"`
	RunID          string         `json:"run_id"`
	CustomFilename string         `json:"custom_filename,omitempty"`
	DialogueID     int            `json:"dialogue_id"`
}

// TTSOutput pairs the fully-resolved input with the reference to the written
// audio artifact.
type TTSOutput struct {
	Input    TTSInput `json:"tts_input"`
	AudioRef MediaRef `json:"audio_ref"`
}
