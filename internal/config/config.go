// Package config provides the configuration structure for dialogue-tts.
package config

import (
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"

	"github.com/book-expert/dialogue-tts/internal/domain"
)

// PathsConfig holds the filesystem layout of the service.
type PathsConfig struct {
	MediaRoot      string `toml:"media_root"`
	MediaNamespace string `toml:"media_namespace"`
	VoiceRefDir    string `toml:"voice_ref_dir"`
	BaseLogsDir    string `toml:"base_logs_dir"`
}

// EngineConfig holds the connection settings for the external
// speech-synthesis engine.
type EngineConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// HTTPConfig holds the HTTP API settings.
type HTTPConfig struct {
	ListenAddress string `toml:"listen_address"`
}

// NATSConfig holds the configuration for the NATS job intake. An empty URL
// disables the worker.
type NATSConfig struct {
	URL                 string `toml:"url"`
	DialogueLineSubject string `toml:"dialogue_line_subject"`
	AudioCreatedSubject string `toml:"audio_created_subject"`
}

// SpeakerConfig is one curated reference voice.
type SpeakerConfig struct {
	Name    string `toml:"name"`
	WavFile string `toml:"wav_file"`
	Gender  string `toml:"gender"`
}

// EmotionConfig is one curated emotion with its default parameters.
type EmotionConfig struct {
	Name         string  `toml:"name"`
	CFG          float64 `toml:"cfg"`
	Exaggeration float64 `toml:"exaggeration"`
}

// OverrideRuleConfig is one curated speaker override rule. An empty emotions
// list matches any emotion.
type OverrideRuleConfig struct {
	Gender   string   `toml:"gender"`
	Emotions []string `toml:"emotions"`
	Speaker  string   `toml:"speaker"`
}

// Config is the root configuration structure.
type Config struct {
	Paths         PathsConfig          `toml:"paths"`
	Engine        EngineConfig         `toml:"engine"`
	HTTP          HTTPConfig           `toml:"http"`
	NATS          NATSConfig           `toml:"nats"`
	Speakers      []SpeakerConfig      `toml:"speakers"`
	Emotions      []EmotionConfig      `toml:"emotions"`
	OverrideRules []OverrideRuleConfig `toml:"override_rules"`
}

// Load loads the configuration for dialogue-tts.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return &cfg, nil
}

// Registries builds the domain registries from the configured speaker,
// emotion and override tables. Sections left empty fall back to the curated
// built-in data; configured sections that fail validation are a startup
// error.
func (c *Config) Registries() (*domain.Registries, error) {
	speakers := domain.DefaultSpeakers()
	if len(c.Speakers) > 0 {
		speakers = make([]domain.Speaker, 0, len(c.Speakers))
		for _, speaker := range c.Speakers {
			speakers = append(speakers, domain.Speaker{
				Name:    speaker.Name,
				WavFile: speaker.WavFile,
				Gender:  domain.Gender(speaker.Gender),
			})
		}
	}

	emotions := domain.DefaultEmotions()
	if len(c.Emotions) > 0 {
		emotions = make([]domain.Emotion, 0, len(c.Emotions))
		for _, emotion := range c.Emotions {
			emotions = append(emotions, domain.Emotion{
				Name: emotion.Name,
				Params: domain.EmotionParams{
					CFG:          emotion.CFG,
					Exaggeration: emotion.Exaggeration,
				},
			})
		}
	}

	rules := domain.DefaultOverrideRules()
	if len(c.OverrideRules) > 0 {
		rules = make([]domain.OverrideRule, 0, len(c.OverrideRules))
		for _, rule := range c.OverrideRules {
			rules = append(rules, domain.OverrideRule{
				Gender:   domain.Gender(rule.Gender),
				Emotions: rule.Emotions,
				Speaker:  rule.Speaker,
			})
		}
	}

	registries, err := domain.NewRegistries(speakers, emotions, rules)
	if err != nil {
		return nil, fmt.Errorf("invalid registry configuration: %w", err)
	}

	return registries, nil
}
