package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "English", LanguageName("en"))
	assert.Equal(t, "Hindi (हिंदी)", LanguageName("hi"))
	assert.Equal(t, "Kannada (ಕನ್ನಡ)", LanguageName("kn"))
	assert.Equal(t, "English", LanguageName("fr"))
	assert.Equal(t, "English", LanguageName(""))
}

func TestCompose_LanguageEnforcement(t *testing.T) {
	t.Run("forced hindi appears in system prompt and user message", func(t *testing.T) {
		out := Compose(PromptInput{
			Language:      "hi",
			ForceLanguage: true,
			Message:       "how to treat mastitis?",
		})

		assert.Contains(t, out.SystemPrompt, "YOU ARE ABSOLUTELY FORBIDDEN FROM USING ENGLISH")
		assert.Contains(t, out.SystemPrompt, "EVERY SINGLE WORD MUST BE IN Hindi (हिंदी)")
		assert.Contains(t, out.UserMessage, "CRITICAL INSTRUCTION")
		assert.Contains(t, out.UserMessage, "how to treat mastitis?")
	})

	t.Run("english carries no enforcement even when forced", func(t *testing.T) {
		out := Compose(PromptInput{
			Language:      "en",
			ForceLanguage: true,
			Message:       "how to treat mastitis?",
		})

		assert.NotContains(t, out.Prompt, "FORBIDDEN FROM USING ENGLISH")
		assert.NotContains(t, out.UserMessage, "CRITICAL INSTRUCTION")
		assert.Equal(t, "how to treat mastitis?", out.UserMessage)
	})

	t.Run("non-english without force keeps the language rule only", func(t *testing.T) {
		out := Compose(PromptInput{
			Language: "te",
			Message:  "feed schedule?",
		})

		assert.Contains(t, out.SystemPrompt, "Respond ONLY in Telugu (తెలుగు)")
		assert.NotContains(t, out.SystemPrompt, "FORBIDDEN FROM USING ENGLISH")
		assert.NotContains(t, out.UserMessage, "CRITICAL INSTRUCTION")
	})
}

func TestCompose_History(t *testing.T) {
	t.Run("empty history omits the history block", func(t *testing.T) {
		out := Compose(PromptInput{Language: "en", Message: "hello"})
		assert.NotContains(t, out.Prompt, "CONVERSATION HISTORY")
	})

	t.Run("empty history formats as the start marker", func(t *testing.T) {
		assert.Equal(t, conversationStartMarker, formatHistory(nil))
	})

	t.Run("only the last six turns are included", func(t *testing.T) {
		history := []Turn{
			{Role: RoleUser, Content: "first question"},
			{Role: RoleAssistant, Content: "first answer"},
			{Role: RoleUser, Content: "second question"},
			{Role: RoleAssistant, Content: "second answer"},
			{Role: RoleUser, Content: "third question"},
			{Role: RoleAssistant, Content: "third answer"},
			{Role: RoleUser, Content: "fourth question"},
		}
		out := Compose(PromptInput{Language: "en", History: history, Message: "next"})

		assert.Contains(t, out.Prompt, "**CONVERSATION HISTORY:**")
		assert.NotContains(t, out.Prompt, "first question")
		assert.Contains(t, out.Prompt, "USER: second question")
		assert.Contains(t, out.Prompt, "ASSISTANT: third answer")
		assert.Contains(t, out.Prompt, "USER: fourth question")
	})

	t.Run("long turns are truncated to 200 runes", func(t *testing.T) {
		long := strings.Repeat("a", 300)
		out := Compose(PromptInput{
			Language: "en",
			History:  []Turn{{Role: RoleUser, Content: long}},
			Message:  "next",
		})

		assert.Contains(t, out.Prompt, "USER: "+strings.Repeat("a", 200))
		assert.NotContains(t, out.Prompt, strings.Repeat("a", 201))
	})
}

func TestCompose_Documents(t *testing.T) {
	t.Run("documents render as a reference block", func(t *testing.T) {
		out := Compose(PromptInput{
			Language:  "en",
			Message:   "milk yield tips",
			Documents: []string{"doc one text", "doc two text"},
		})

		assert.Contains(t, out.Prompt, "**Reference Documents:**")
		assert.Contains(t, out.Prompt, "Relevant documents for context:")
		assert.Contains(t, out.Prompt, "- doc one text")
		assert.Contains(t, out.Prompt, "- doc two text")
	})

	t.Run("block is omitted with no documents", func(t *testing.T) {
		out := Compose(PromptInput{Language: "en", Message: "milk yield tips"})
		assert.NotContains(t, out.Prompt, "**Reference Documents:**")
		assert.NotContains(t, out.Prompt, "Relevant documents for context:")
	})

	t.Run("documents are truncated to 500 runes", func(t *testing.T) {
		long := strings.Repeat("d", 600)
		out := Compose(PromptInput{Language: "en", Message: "q", Documents: []string{long}})

		assert.Contains(t, out.Prompt, strings.Repeat("d", 500))
		assert.NotContains(t, out.Prompt, strings.Repeat("d", 501))
	})
}

func TestCompose_Image(t *testing.T) {
	t.Run("image with text gets the analysis wrapper", func(t *testing.T) {
		out := Compose(PromptInput{
			Language: "en",
			Message:  "is this cow healthy?",
			HasImage: true,
		})

		assert.True(t, strings.HasPrefix(out.UserMessage, "[User attached an image]"))
		assert.Contains(t, out.UserMessage, "is this cow healthy?")
		assert.Contains(t, out.UserMessage, "Please analyze the image and answer the question.")
	})

	t.Run("image without text gets the generic instruction", func(t *testing.T) {
		out := Compose(PromptInput{Language: "en", HasImage: true})
		assert.Contains(t, out.UserMessage, "Please analyze this image of the animal")
	})
}

func TestCompose_FinalShape(t *testing.T) {
	out := Compose(PromptInput{Language: "kn", Message: "ಹಾಲು ಹೆಚ್ಚಿಸುವುದು ಹೇಗೆ?"})

	require.Contains(t, out.Prompt, "**User Question:** ಹಾಲು ಹೆಚ್ಚಿಸುವುದು ಹೇಗೆ?")
	assert.True(t, strings.HasSuffix(out.Prompt, "**Your Response (in Kannada (ಕನ್ನಡ)):**"))
	assert.Equal(t, "Kannada (ಕನ್ನಡ)", out.LanguageName)
}
