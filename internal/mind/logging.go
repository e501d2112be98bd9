package mind

import (
	"github.com/rs/zerolog"

	"github.com/WickedDevTeam/discord-agent/internal/ai"
)

// logInference logs the transcript about to be sent to inference. Previews
// are only built when debug logging is on.
func logInference(log zerolog.Logger, persona string, messages []ai.Message) {
	if log.GetLevel() > zerolog.DebugLevel {
		return
	}
	log.Debug().Str("action", "infer").Str("persona", truncateForLog(persona, 40)).Int("messages", len(messages)).Msg("inference call")
	for i, m := range messages {
		log.Trace().
			Int("idx", i).
			Str("role", m.Role).
			Int("len", len(m.Content)).
			Str("preview", truncateForLog(m.Content, 200)).
			Msg("inference message")
	}
}

func truncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
