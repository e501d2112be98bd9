package mind

import (
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/WickedDevTeam/discord-agent/internal/media"
)

// Kind is the flavour of an identity. Flexible (user-style) identities may
// fall back to the legacy frequency/behavior tiers.
type Kind string

const (
	KindBot      Kind = "bot"
	KindFlexible Kind = "flexible"
)

// Frequency is the legacy response frequency tier.
type Frequency string

const (
	FrequencyHigh   Frequency = "high"
	FrequencyMedium Frequency = "medium"
	FrequencyLow    Frequency = "low"
)

// Behavior is the legacy behavior tier.
type Behavior string

const (
	BehaviorAggressive Behavior = "aggressive"
	BehaviorNormal     Behavior = "normal"
	BehaviorPassive    Behavior = "passive"
)

// MediaConfig controls periodic image attachments for an identity.
type MediaConfig struct {
	Topics      []string
	MinInterval int // messages
	MaxInterval int // messages
	AllowAdult  bool
}

// Enabled reports whether cadence can ever attach media.
func (m *MediaConfig) Enabled() bool {
	return m != nil && len(m.Topics) > 0
}

// LegacyConfig holds the pre-engagement-level tiers.
type LegacyConfig struct {
	Frequency Frequency
	Behavior  Behavior
}

// IdentityConfig is the immutable configuration of one autonomous identity.
type IdentityConfig struct {
	ID              string // platform user id, unique
	Name            string // display name matched in message text
	Kind            Kind
	Persona         string // persona code passed to inference
	EngagementLevel int    // 1..100, 0 means not configured
	FilterContent   bool
	Media           *MediaConfig
	Legacy          *LegacyConfig
}

// HasEngagement reports whether the unified engagement level is configured.
func (c *IdentityConfig) HasEngagement() bool {
	return c.EngagementLevel > 0
}

// HasLegacy reports whether the legacy fallback applies to this identity.
func (c *IdentityConfig) HasLegacy() bool {
	return c.Kind == KindFlexible && c.Legacy != nil &&
		(c.Legacy.Frequency != "" || c.Legacy.Behavior != "")
}

// Message is one inbound chat event.
type Message struct {
	ID            string
	ChannelID     string
	AuthorID      string
	AuthorName    string
	AuthorIsAgent bool
	Direct        bool // 1:1 channel
	Text          string
	Mentions      []string // mentioned user ids
	At            time.Time
}

// Mentioned reports whether id is in the mention set.
func (m *Message) Mentioned(id string) bool {
	return slices.Contains(m.Mentions, id)
}

// ContainsName reports whether name occurs in the text as whole words,
// case-insensitively. "aria" matches "hey Aria!" but not "variable".
func (m *Message) ContainsName(name string) bool {
	want := nameWords(name)
	if len(want) == 0 {
		return false
	}
	words := nameWords(m.Text)
	for i := 0; i+len(want) <= len(words); i++ {
		if slices.Equal(words[i:i+len(want)], want) {
			return true
		}
	}
	return false
}

func nameWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// HistoryEntry is one prior message returned by the transport.
type HistoryEntry struct {
	ID         string
	AuthorID   string
	AuthorName string
	Text       string
	At         time.Time
}

// Reply is what the orchestrator hands to the transport.
type Reply struct {
	Content string
	// ReplyTo is the message being answered; empty sends a plain channel
	// message.
	ReplyTo    string
	Attachment *media.Item
}
