package mind

import "strings"

// Debug trigger substrings.
const (
	DebugMediaTrigger   = "!debug-media"
	DebugInstantTrigger = "!debug-now"
)

// DebugOverrides are computed once per message and threaded through the
// decision instead of rescanning the text at each step.
type DebugOverrides struct {
	ForceMedia        bool
	ForceInstantReply bool
}

// ParseOverrides extracts debug triggers from text. With enabled false it
// always returns the zero value.
func ParseOverrides(text string, enabled bool) DebugOverrides {
	if !enabled {
		return DebugOverrides{}
	}
	lower := strings.ToLower(text)
	return DebugOverrides{
		ForceMedia:        strings.Contains(lower, DebugMediaTrigger),
		ForceInstantReply: strings.Contains(lower, DebugInstantTrigger),
	}
}

// Any reports whether any override is active.
func (d DebugOverrides) Any() bool {
	return d.ForceMedia || d.ForceInstantReply
}
