package mind

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Unaddressed messages are never answered with certainty.
const (
	MaxUnaddressedProbability = 0.8
	MaxLegacyProbability      = 0.5
)

// Boost multipliers, applied in this order and compounding.
const (
	questionBoost    = 1.8
	longTextBoost    = 1.3
	emotionalBoost   = 1.4
	exclamationBoost = 1.2

	legacyLongTextBoost  = 1.2
	legacyEmotionalBoost = 1.3

	longTextRunes = 100
)

// engagementCurve holds the upper end of each 20-level segment. The lower end
// of segment i is the upper end of segment i-1 (0 for the first).
var engagementCurve = [5]float64{0.05, 0.15, 0.30, 0.50, 0.70}

var emotionalWords = map[string]struct{}{
	"love": {}, "hate": {}, "sad": {}, "happy": {}, "angry": {}, "excited": {},
	"scared": {}, "miss": {}, "lonely": {}, "cry": {}, "crying": {}, "upset": {},
	"lol": {}, "lmao": {}, "omg": {}, "wow": {}, "ugh": {}, "yay": {},
}

var emotionalMarks = []string{"!!", "?!", "<3", ":(", ":)", ":'(", "😂", "😭", "❤", "😡", "🥺"}

// BaseProbability maps an engagement level to the piecewise-linear base
// probability. Levels are clamped to [1,100].
func BaseProbability(level int) float64 {
	if level < 1 {
		level = 1
	}
	if level > 100 {
		level = 100
	}
	seg := (level - 1) / 20
	lower := 0.0
	if seg > 0 {
		lower = engagementCurve[seg-1]
	}
	upper := engagementCurve[seg]
	if level == (seg+1)*20 {
		return upper
	}
	frac := float64(level-seg*20) / 20
	return lower + (upper-lower)*frac
}

// ResponseProbability returns the chance that an identity with the given
// engagement level answers text. Addressed messages are always answered and
// return 1; the orchestrator does not consult the model for them.
func ResponseProbability(level int, text string, wasMentioned bool) float64 {
	if wasMentioned {
		return 1
	}
	p := BaseProbability(level)

	question := strings.Contains(text, "?")
	if question {
		p *= questionBoost
	}
	if utf8.RuneCountInString(text) > longTextRunes {
		p *= longTextBoost
	}
	if HasEmotionalContent(text) {
		p *= emotionalBoost
	}
	if strings.Contains(text, "!") && !question {
		p *= exclamationBoost
	}

	if p > MaxUnaddressedProbability {
		p = MaxUnaddressedProbability
	}
	return p
}

// LegacyProbability is used for flexible identities without an engagement
// level. Anything else gets 0.
func LegacyProbability(kind Kind, legacy *LegacyConfig, text string) float64 {
	if kind != KindFlexible || legacy == nil {
		return 0
	}

	var p float64
	if strings.Contains(text, "?") {
		switch legacy.Behavior {
		case BehaviorAggressive:
			p = 0.7
		case BehaviorPassive:
			p = 0.2
		default:
			p = 0.4
		}
	} else {
		switch legacy.Frequency {
		case FrequencyHigh:
			p = 0.30
		case FrequencyLow:
			p = 0.05
		default:
			p = 0.15
		}
	}

	switch legacy.Behavior {
	case BehaviorAggressive:
		p *= 1.5
	case BehaviorPassive:
		p *= 0.5
	}

	if utf8.RuneCountInString(text) > longTextRunes {
		p *= legacyLongTextBoost
	}
	if HasEmotionalContent(text) {
		p *= legacyEmotionalBoost
	}

	if p > MaxLegacyProbability {
		p = MaxLegacyProbability
	}
	return p
}

// IdentityProbability picks the unified or legacy model for cfg.
func IdentityProbability(cfg *IdentityConfig, text string, wasMentioned bool) float64 {
	if wasMentioned {
		return 1
	}
	if cfg.HasEngagement() {
		return ResponseProbability(cfg.EngagementLevel, text, false)
	}
	if cfg.HasLegacy() {
		return LegacyProbability(cfg.Kind, cfg.Legacy, text)
	}
	return 0
}

// HasEmotionalContent is a shallow keyword and punctuation check.
func HasEmotionalContent(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range emotionalMarks {
		if strings.Contains(lower, m) {
			return true
		}
	}
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	for _, w := range words {
		if _, ok := emotionalWords[w]; ok {
			return true
		}
	}
	return false
}

// sample flips a weighted coin.
func sample(r Rand, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return r.Float64() < p
}
