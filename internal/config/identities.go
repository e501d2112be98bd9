package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/WickedDevTeam/discord-agent/internal/mind"
)

// IdentityFile is the on-disk description of every identity the process
// runs, plus the persona prompts they refer to.
//
//	personas:
//	  friendly: "You are a warm, curious regular of this server."
//	identities:
//	  - id: "1234"
//	    name: Aria
//	    kind: bot
//	    token_env: ARIA_TOKEN
//	    persona: friendly
//	    engagement_level: 40
//	    media: {topics: [cats], min_interval: 5, max_interval: 12}
type IdentityFile struct {
	Personas   map[string]string `yaml:"personas"`
	Identities []Identity        `yaml:"identities"`
}

type Identity struct {
	ID              string  `yaml:"id"`
	Name            string  `yaml:"name"`
	Kind            string  `yaml:"kind"`
	TokenEnv        string  `yaml:"token_env"`
	Persona         string  `yaml:"persona"`
	EngagementLevel int     `yaml:"engagement_level"`
	FilterContent   bool    `yaml:"filter_content"`
	Media           *Media  `yaml:"media"`
	Legacy          *Legacy `yaml:"legacy"`
}

type Media struct {
	Topics      []string `yaml:"topics"`
	MinInterval int      `yaml:"min_interval"`
	MaxInterval int      `yaml:"max_interval"`
	AllowAdult  bool     `yaml:"allow_adult"`
}

type Legacy struct {
	Frequency string `yaml:"frequency"`
	Behavior  string `yaml:"behavior"`
}

// LoadIdentities reads and validates an identity file.
func LoadIdentities(path string) (*IdentityFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read identities: %w", err)
	}
	return ParseIdentities(data)
}

// ParseIdentities decodes and validates identity YAML.
func ParseIdentities(data []byte) (*IdentityFile, error) {
	var f IdentityFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode identities: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks every identity and reports all problems at once.
func (f *IdentityFile) Validate() error {
	if len(f.Identities) == 0 {
		return errors.New("identities: none configured")
	}
	var errs []error
	seen := make(map[string]bool, len(f.Identities))
	for i, id := range f.Identities {
		if err := id.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("identities[%d]: %w", i, err))
		}
		if id.ID != "" && seen[id.ID] {
			errs = append(errs, fmt.Errorf("identities[%d]: duplicate id %q", i, id.ID))
		}
		seen[id.ID] = true
	}
	return errors.Join(errs...)
}

func (id Identity) Validate() error {
	var errs []error
	if strings.TrimSpace(id.ID) == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if strings.TrimSpace(id.TokenEnv) == "" {
		errs = append(errs, errors.New("token_env is required"))
	}
	switch mind.Kind(id.Kind) {
	case mind.KindBot, mind.KindFlexible:
	default:
		errs = append(errs, fmt.Errorf("kind must be bot or flexible, got %q", id.Kind))
	}
	if id.EngagementLevel < 0 || id.EngagementLevel > 100 {
		errs = append(errs, fmt.Errorf("engagement_level must be within 1..100, got %d", id.EngagementLevel))
	}
	if m := id.Media; m != nil {
		if m.MinInterval < 1 || m.MaxInterval < m.MinInterval {
			errs = append(errs, fmt.Errorf("media interval %d..%d is invalid", m.MinInterval, m.MaxInterval))
		}
	}
	if l := id.Legacy; l != nil {
		switch mind.Frequency(l.Frequency) {
		case "", mind.FrequencyHigh, mind.FrequencyMedium, mind.FrequencyLow:
		default:
			errs = append(errs, fmt.Errorf("legacy frequency %q is unknown", l.Frequency))
		}
		switch mind.Behavior(l.Behavior) {
		case "", mind.BehaviorAggressive, mind.BehaviorNormal, mind.BehaviorPassive:
		default:
			errs = append(errs, fmt.Errorf("legacy behavior %q is unknown", l.Behavior))
		}
	}
	return errors.Join(errs...)
}

// Token reads the identity's chat token from the environment.
func (id Identity) Token() (string, error) {
	tok := strings.TrimSpace(os.Getenv(id.TokenEnv))
	if tok == "" {
		return "", fmt.Errorf("%s is not set", id.TokenEnv)
	}
	return tok, nil
}

// Mind converts the file entry to the engine's configuration.
func (id Identity) Mind() mind.IdentityConfig {
	cfg := mind.IdentityConfig{
		ID:              id.ID,
		Name:            id.Name,
		Kind:            mind.Kind(id.Kind),
		Persona:         id.Persona,
		EngagementLevel: id.EngagementLevel,
		FilterContent:   id.FilterContent,
	}
	if m := id.Media; m != nil {
		cfg.Media = &mind.MediaConfig{
			Topics:      append([]string(nil), m.Topics...),
			MinInterval: m.MinInterval,
			MaxInterval: m.MaxInterval,
			AllowAdult:  m.AllowAdult,
		}
	}
	if l := id.Legacy; l != nil {
		cfg.Legacy = &mind.LegacyConfig{
			Frequency: mind.Frequency(l.Frequency),
			Behavior:  mind.Behavior(l.Behavior),
		}
	}
	return cfg
}
