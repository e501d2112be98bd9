package mind

import (
	"math"
	"strings"
	"time"
)

// Hard limits on any scheduled reply.
const (
	MinResponseDelay    = 2 * time.Second
	MaxResponseDelay    = 15 * time.Minute
	DevMaxResponseDelay = 2 * time.Minute
)

// Responsiveness cap: callers replace any delay above ResponsivenessLimit
// with ResponsivenessDelay. This sits well below MaxResponseDelay and fires
// far more often; both limits are kept on purpose.
const (
	ResponsivenessLimit = 30 * time.Second
	ResponsivenessDelay = 10 * time.Second
)

// InstantDelay is used when a debug override asks for an immediate reply.
const InstantDelay = time.Second

const minRangeSeconds = 2.0

var urgentWords = []string{"help", "urgent", "quick", "asap", "emergency"}

// Delay is a scheduled reply: Response after the trigger, with the typing
// indicator shown at Typing.
type Delay struct {
	Response time.Duration
	Typing   time.Duration
}

type delayBand struct {
	under    time.Duration
	min, max float64 // seconds
}

var delayBands = []delayBand{
	{time.Minute, 3, 25},
	{10 * time.Minute, 15, 120},
	{30 * time.Minute, 30, 240},
	{120 * time.Minute, 60, 480},
}

var lastBand = delayBand{min: 180, max: 900}

// Timing draws human-looking reply delays.
type Timing struct {
	rand Rand
	dev  bool
}

// NewTiming creates a Timing. dev lowers the hard ceiling to
// DevMaxResponseDelay.
func NewTiming(r Rand, dev bool) *Timing {
	if r == nil {
		r = DefaultRand()
	}
	return &Timing{rand: r, dev: dev}
}

// Ceiling is the hard upper bound for a response delay.
func (t *Timing) Ceiling() time.Duration {
	if t.dev {
		return DevMaxResponseDelay
	}
	return MaxResponseDelay
}

// ComputeDelay picks a delay from the band selected by how long ago this
// identity last talked to the counterpart. Negative input counts as 0.
func (t *Timing) ComputeDelay(msSinceLastInteraction int64, isDirect, isUrgent bool) Delay {
	if msSinceLastInteraction < 0 {
		msSinceLastInteraction = 0
	}
	elapsed := time.Duration(msSinceLastInteraction) * time.Millisecond

	band := lastBand
	for _, b := range delayBands {
		if elapsed < b.under {
			band = b
			break
		}
	}

	lo, hi := band.min, band.max
	if isDirect {
		lo = math.Max(minRangeSeconds, lo*0.7)
		hi *= 0.8
	}
	if isUrgent {
		lo = math.Max(minRangeSeconds, lo*0.8)
		hi *= 0.9
	}

	secs := uniformInt(t.rand, int(math.Round(lo)), int(math.Round(hi)))
	resp := time.Duration(secs) * time.Second
	if resp < MinResponseDelay {
		resp = MinResponseDelay
	}
	if ceil := t.Ceiling(); resp > ceil {
		resp = ceil
	}
	return Delay{Response: resp, Typing: t.typingOffset(resp)}
}

// ApplyResponsivenessCap substitutes ResponsivenessDelay, with a freshly
// drawn typing offset, for any delay above ResponsivenessLimit.
func (t *Timing) ApplyResponsivenessCap(d Delay) Delay {
	if d.Response <= ResponsivenessLimit {
		return d
	}
	return Delay{Response: ResponsivenessDelay, Typing: t.typingOffset(ResponsivenessDelay)}
}

// Instant is the debug override delay.
func (t *Timing) Instant() Delay {
	return Delay{Response: InstantDelay, Typing: t.typingOffset(InstantDelay)}
}

func (t *Timing) typingOffset(d time.Duration) time.Duration {
	return time.Duration(float64(d) * uniformFloat(t.rand, 0.2, 0.6))
}

// IsUrgent reports whether a message should be answered faster: explicitly
// addressed, a question, or containing one of the urgency words.
func IsUrgent(text string, addressed bool) bool {
	if addressed || strings.Contains(text, "?") {
		return true
	}
	lower := strings.ToLower(text)
	for _, w := range urgentWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
