package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"dairydesk/internal/ai"
	"dairydesk/internal/chat"
)

// ChatHandler fronts the chat pipeline plus the model diagnostic routes.
// The chatbot routes keep a flat JSON shape rather than the envelope used
// elsewhere: the mobile client reads these fields directly.
type ChatHandler struct {
	pipeline  *chat.Pipeline
	aiClient  *ai.Client
	staticDir string
}

func NewChatHandler(pipeline *chat.Pipeline, aiClient *ai.Client, staticDir string) *ChatHandler {
	return &ChatHandler{
		pipeline:  pipeline,
		aiClient:  aiClient,
		staticDir: staticDir,
	}
}

type ChatbotRequest struct {
	Message       string `json:"message"`
	Language      string `json:"language"`
	SessionID     string `json:"session_id"`
	Image         string `json:"image"`
	ForceLanguage bool   `json:"force_language"`
}

func (h *ChatHandler) Chatbot(c *gin.Context) {
	var req ChatbotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "No data provided",
			"reply": "I need a message to help you. Please ask me anything about dairy management!",
		})
		return
	}

	result, err := h.pipeline.Respond(c.Request.Context(), chat.Request{
		Message:       req.Message,
		Language:      req.Language,
		SessionID:     req.SessionID,
		ImageBase64:   req.Image,
		ForceLanguage: req.ForceLanguage,
	})
	if err != nil {
		if errors.Is(err, chat.ErrEmptyRequest) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "No message provided",
				"reply": "Please type or speak your question and I'll be happy to help!",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"error": "Processing error",
			"reply": "I'm having trouble processing that right now, but I'm here to help! Please ask me about dairy farm management, milk production, animal care, or farm business operations. I'll do my best to assist you!",
		})
		return
	}

	var voiceURL interface{}
	if result.VoiceFile != "" {
		voiceURL = fmt.Sprintf("%s://%s/chat/voice/%s", requestScheme(c), c.Request.Host, result.VoiceFile)
	}

	c.JSON(http.StatusOK, gin.H{
		"reply":               result.Reply,
		"voice_url":           voiceURL,
		"language":            result.Language,
		"session_id":          result.SessionID,
		"conversation_length": result.ConversationLength,
		"safety_checked":      true,
		"safety_flag":         result.SafetyFlag,
	})
}

// Voice streams a previously synthesized audio file. Only plain filenames
// are served; anything with a path separator resolves outside the static
// dir and is rejected.
func (h *ChatHandler) Voice(c *gin.Context) {
	filename := c.Param("filename")
	if filename == "" || filename != filepath.Base(filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filename"})
		return
	}

	path := filepath.Join(h.staticDir, filename)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Voice file not found"})
		return
	}
	c.Header("Content-Type", "audio/mpeg")
	c.File(path)
}

func (h *ChatHandler) Test(c *gin.Context) {
	base := gin.H{
		"status":         "OK",
		"api_key_loaded": h.aiClient.HasAPIKey(),
		"api_key_length": h.aiClient.APIKeyLength(),
		"service":        "Google Gemini",
		"current_model":  h.aiClient.CurrentModel(),
	}

	models, err := h.aiClient.ListModels(c.Request.Context())
	if err != nil {
		base["status"] = "ERROR"
		base["error"] = err.Error()
		c.JSON(http.StatusOK, base)
		return
	}

	available := make([]string, 0, len(models))
	for _, m := range models {
		if m.SupportsGenerate() {
			available = append(available, m.Name)
		}
	}
	base["available_models"] = available
	base["all_models"] = models
	c.JSON(http.StatusOK, base)
}

func (h *ChatHandler) Models(c *gin.Context) {
	models, err := h.aiClient.ListModels(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "OK",
		"models":        models,
		"current_model": h.aiClient.CurrentModel(),
	})
}

type SpeechToTextRequest struct {
	Audio    string `json:"audio"`
	Language string `json:"language"`
}

var transcriptionLanguages = map[string]string{
	"en": "English",
	"kn": "Kannada",
	"hi": "Hindi",
	"te": "Telugu",
	"ta": "Tamil",
	"mr": "Marathi",
}

func (h *ChatHandler) SpeechToText(c *gin.Context) {
	var req SpeechToTextRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Audio == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No audio provided"})
		return
	}
	if req.Language == "" {
		req.Language = "en"
	}

	audio, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio payload did not decode"})
		return
	}

	langName, ok := transcriptionLanguages[req.Language]
	if !ok {
		langName = "English"
	}

	text, err := h.aiClient.Transcribe(c.Request.Context(), audio, langName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "text": ""})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"text":     text,
		"language": req.Language,
	})
}

func requestScheme(c *gin.Context) string {
	if c.Request.TLS != nil {
		return "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}
