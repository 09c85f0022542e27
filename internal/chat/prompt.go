package chat

import (
	"fmt"
	"strings"
)

const (
	historyWindow     = 6
	historyRuneLimit  = 200
	documentRuneLimit = 500

	conversationStartMarker = "(This is the start of the conversation)"
)

var languageNames = map[string]string{
	"en": "English",
	"kn": "Kannada (ಕನ್ನಡ)",
	"hi": "Hindi (हिंदी)",
	"te": "Telugu (తెలుగు)",
	"ta": "Tamil (தமிழ்)",
	"mr": "Marathi (मराठी)",
}

// LanguageName resolves a language code to its display name. Unknown codes
// resolve to English.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return "English"
}

// PromptInput carries everything the composer needs for one request.
type PromptInput struct {
	Language      string
	ForceLanguage bool
	History       []Turn
	Documents     []string
	Message       string
	HasImage      bool
}

// ComposedPrompt is the composer's output. UserMessage is the transformed
// form of the caller's message, which is what gets persisted to history.
type ComposedPrompt struct {
	SystemPrompt string
	UserMessage  string
	Prompt       string
	LanguageName string
}

// Compose builds the final model prompt from language, history, retrieved
// documents, and the user's message. It is a pure function of its input.
//
// When strict language enforcement is requested for a non-English language,
// the forbidding directive appears twice, in the system prompt and again
// wrapped around the user message. Single-layer instructions were observed
// to leak English tokens; the redundancy closes that gap.
func Compose(in PromptInput) ComposedPrompt {
	langName := LanguageName(in.Language)
	enforce := in.ForceLanguage && in.Language != "en"

	userMsg := in.Message
	if enforce {
		userMsg = fmt.Sprintf(`CRITICAL INSTRUCTION: You must respond EXCLUSIVELY in %s language using %s script.
DO NOT use English. DO NOT mix languages. ONLY %s.

User's question:
%s`, langName, langName, langName, userMsg)
	}

	if in.HasImage {
		if strings.TrimSpace(in.Message) != "" {
			userMsg = "[User attached an image]\n" + userMsg + "\n\nPlease analyze the image and answer the question."
		} else {
			userMsg = "Please analyze this image of the animal and provide detailed observations about its health, breed, condition, and any visible issues or concerns."
		}
	}

	historyContext := ""
	if len(in.History) > 0 {
		historyContext = fmt.Sprintf(`
**CONVERSATION HISTORY:**
%s

**CRITICAL:** This is a FOLLOW-UP question in an ongoing conversation.
- Build upon previous context
- Provide NEW information, NOT repetition
- If user asks for "more details", expand with DIFFERENT aspects not covered before
- Reference previous discussion only to connect new information`, formatHistory(in.History))
	}

	var systemPrompt string
	if in.Language != "en" {
		systemPrompt = fmt.Sprintf(`You are a dairy farming AI assistant.

ABSOLUTE RULE: Respond ONLY in %s. Zero English words allowed. Use %s script exclusively.

**Expertise:** Cattle breeds, health, milk production, diseases, breeding, farm management.
**Style:** Concise, direct answers.

%s

**Critical Instructions:**
- Answer the SPECIFIC question asked
- Provide NEW information, not repetition
- Use numbered steps for complex topics`, langName, langName, historyContext)
	} else {
		systemPrompt = fmt.Sprintf(`You are a dairy farming AI assistant. Respond in English.

**Expertise:** Cattle breeds, health, milk production, diseases, breeding, farm management.
**Style:** Concise, direct answers.

%s

**Critical Instructions:**
- Answer the SPECIFIC question asked
- Provide NEW information, not repetition
- For IMAGE uploads: Identify animal, assess condition, diagnose issues, suggest actions`, historyContext)
	}

	if enforce {
		systemPrompt += fmt.Sprintf(`

🚨🚨🚨 CRITICAL LANGUAGE REQUIREMENT 🚨🚨🚨
YOU ARE ABSOLUTELY FORBIDDEN FROM USING ENGLISH.
EVERY SINGLE WORD MUST BE IN %s.
USE ONLY %s NATIVE SCRIPT.
IF YOU USE ANY ENGLISH WORDS, YOU HAVE FAILED.
THIS IS A STRICT, NON-NEGOTIABLE RULE.`, langName, langName)
	}

	var prompt string
	if len(in.Documents) > 0 {
		prompt = fmt.Sprintf("%s\n\n**Reference Documents:**\n%s\n\n**User Question:** %s\n\n**Your Response (in %s):**",
			systemPrompt, formatDocuments(in.Documents), userMsg, langName)
	} else {
		prompt = fmt.Sprintf("%s\n\n**User Question:** %s\n\n**Your Response (in %s):**",
			systemPrompt, userMsg, langName)
	}

	return ComposedPrompt{
		SystemPrompt: systemPrompt,
		UserMessage:  userMsg,
		Prompt:       prompt,
		LanguageName: langName,
	}
}

// formatHistory renders the last few turns as role-tagged lines.
func formatHistory(history []Turn) string {
	if len(history) == 0 {
		return conversationStartMarker
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		lines = append(lines, strings.ToUpper(turn.Role)+": "+truncateRunes(turn.Content, historyRuneLimit))
	}
	return strings.Join(lines, "\n")
}

func formatDocuments(docs []string) string {
	entries := make([]string, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, "- "+truncateRunes(doc, documentRuneLimit))
	}
	return "\n\n---\nRelevant documents for context:\n" + strings.Join(entries, "\n---\n") + "\n\n"
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
