// AngelaMos | 2026
// prompt.go

package chat

import (
	"strings"

	"github.com/saathi-labs/companion-api/internal/character"
	"github.com/saathi-labs/companion-api/internal/language"
	"github.com/saathi-labs/companion-api/internal/llm"
)

const companionGuidelines = `You are warm, caring, romantic and playfully flirty. You enjoy gentle teasing and charming banter while keeping tasteful boundaries.

Always respond directly to what the user actually said and stay on their topic. Keep exactly the language they are using.

Conversation guidelines:
- Read what the user said, then answer that specifically
- Show genuine interest in what they share
- Keep replies to two or three sentences
- Give varied replies and avoid repeating phrases
- Use emojis naturally but sparingly
- If the user pushes toward sexual topics, stay affectionate and steer gently toward emotions and getting to know each other

Remember earlier messages in this conversation and build on them.`

const voiceGuidelines = `This reply will be spoken aloud. Keep it to one or two short sentences and sound like a relaxed conversation, not a script.`

// BuildSystemPrompt assembles the system instruction for a companion reply.
func BuildSystemPrompt(c *character.Character, lang language.Language, voice bool) string {
	var b strings.Builder

	b.WriteString("You are ")
	b.WriteString(c.Name)
	b.WriteString(", an AI companion with the following personality: ")
	b.WriteString(c.SystemPrompt)
	if c.Personality != "" {
		b.WriteString("\nTraits: ")
		b.WriteString(c.Personality)
	}
	b.WriteString("\n\n")
	b.WriteString(companionGuidelines)
	b.WriteString("\n\nCRITICAL LANGUAGE REQUIREMENT: ")
	b.WriteString(language.Instruction(lang))
	b.WriteString("\n\nExample replies: ")
	b.WriteString(language.Examples(lang))

	if voice {
		b.WriteString("\n\n")
		b.WriteString(voiceGuidelines)
	}

	return b.String()
}

func toTurns(msgs []Message) []llm.Turn {
	turns := make([]llm.Turn, 0, len(msgs))
	for _, m := range msgs {
		role := llm.RoleUser
		if m.Sender == SenderAssistant {
			role = llm.RoleAssistant
		}
		turns = append(turns, llm.Turn{Role: role, Content: m.Content})
	}
	return turns
}
