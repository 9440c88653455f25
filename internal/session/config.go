package session

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/prompts"
)

var ErrInvalidConfig = errors.New("invalid session configuration")

type Level string

const (
	LevelUnset  Level = ""
	LevelJunior Level = "Junior"
	LevelMid    Level = "Mid"
	LevelSenior Level = "Senior"
)

// Levels lists the selectable job levels.
var Levels = []Level{LevelJunior, LevelMid, LevelSenior}

// Technologies is the fixed list of technology tags a session can be configured with.
var Technologies = []string{
	"AI/ML", "JS", "HTML", "PHP", "Ruby", "Python", "Java", ".NET", "Scala", "C",
	"Mobile", "Testing", "DevOps", "Admin", "UX/UI", "PM", "Game",
	"Analytics", "Security", "Data", "Go", "Support", "ERP",
}

// ParseLevel matches s case-insensitively against the known levels.
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return LevelUnset, nil
	}

	for _, level := range Levels {
		if strings.EqualFold(s, string(level)) {
			return level, nil
		}
	}

	return LevelUnset, fmt.Errorf("%w: unknown level %q", ErrInvalidConfig, s)
}

// CanonicalTechnology returns the list spelling of tech, matched case-insensitively.
func CanonicalTechnology(tech string) (string, bool) {
	tech = strings.TrimSpace(tech)
	for _, known := range Technologies {
		if strings.EqualFold(tech, known) {
			return known, true
		}
	}
	return "", false
}

// Config is chosen once per session and is read-only for the workflows.
type Config struct {
	Technologies []string `mapstructure:"technologies" json:"technologies"`
	Level        Level    `mapstructure:"level" json:"level"`
}

// Normalize canonicalizes and de-duplicates technologies and validates the level.
func (c Config) Normalize() (Config, error) {
	seen := make(map[string]bool, len(c.Technologies))
	techs := make([]string, 0, len(c.Technologies))

	for _, tech := range c.Technologies {
		if strings.TrimSpace(tech) == "" {
			continue
		}
		canonical, ok := CanonicalTechnology(tech)
		if !ok {
			return Config{}, fmt.Errorf("%w: unknown technology %q", ErrInvalidConfig, tech)
		}
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		techs = append(techs, canonical)
	}

	level, err := ParseLevel(string(c.Level))
	if err != nil {
		return Config{}, err
	}

	return Config{Technologies: techs, Level: level}, nil
}

// Validate reports whether the configuration is complete enough to run an interview.
func (c Config) Validate() error {
	normalized, err := c.Normalize()
	if err != nil {
		return err
	}
	if len(normalized.Technologies) == 0 {
		return fmt.Errorf("%w: at least one technology is required", ErrInvalidConfig)
	}
	if normalized.Level == LevelUnset {
		return fmt.Errorf("%w: job level is required", ErrInvalidConfig)
	}
	return nil
}

func (c Config) Position() prompts.Position {
	return prompts.Position{
		Technologies: append([]string(nil), c.Technologies...),
		Level:        string(c.Level),
	}
}

// DecodeConfig decodes loosely typed input, for example a JSON body or CLI flag map.
// technologies may be a list or a comma-separated string.
func DecodeConfig(raw map[string]any) (Config, error) {
	var cfg Config

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
			levelHook,
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return Config{}, err
	}

	if err := decoder.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	normalized, err := cfg.Normalize()
	if err != nil {
		return Config{}, err
	}

	return normalized, normalized.Validate()
}

var levelHook mapstructure.DecodeHookFuncType = func(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(LevelUnset) {
		return data, nil
	}

	s, ok := data.(string)
	if !ok {
		return data, nil
	}

	return ParseLevel(s)
}
