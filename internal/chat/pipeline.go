package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dairydesk/internal/ai"
	"dairydesk/internal/model"
)

// ErrEmptyRequest is returned when a request carries neither text nor image.
var ErrEmptyRequest = errors.New("no message or image provided")

// Retriever supplies reference documents for a query. Implementations must
// be best-effort: an empty slice, never an error.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) []string
}

// Generator invokes the generative model.
type Generator interface {
	Generate(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResult, error)
}

// VoiceSynthesizer renders text to an audio file under the static dir.
type VoiceSynthesizer interface {
	Synthesize(ctx context.Context, text, langCode, filename string) error
}

// TranscriptSink receives an audit copy of each chat turn.
type TranscriptSink interface {
	Publish(ctx context.Context, entry model.ChatLog) error
}

// Request is one inbound chat message.
type Request struct {
	Message       string
	Language      string
	SessionID     string
	ImageBase64   string
	ForceLanguage bool
}

// Result is the pipeline's reply. VoiceFile is empty when synthesis was
// skipped or failed.
type Result struct {
	Reply              string
	VoiceFile          string
	Language           string
	SessionID          string
	ConversationLength int
	SafetyFlag         bool
}

const (
	retrievalK     = 3
	replyRuneLimit = 2000
	replySuffix    = "... Would you like me to continue with more details?"

	defaultSessionID = "default"
)

var harmfulKeywords = []string{
	"suicide", "self-harm", "kill myself", "end my life",
	"hurt others", "illegal drugs", "weapon", "bomb",
}

const (
	safeRedirectReply = "I cannot provide information on that topic. For dairy management help, feel free to ask about milk production, farm operations, or animal care practices."

	rateLimitReply = "I'm experiencing high demand right now 🕐. Here's a quick answer:\n\nTo increase milk yield:\n\n1. **Nutrition** 🌾: Provide balanced feed with 16-18% protein, minerals\n2. **Water** 💧: 60-80 liters/cow/day\n3. **Comfort** 🛏️: Clean, dry bedding, proper ventilation\n4. **Health** 💉: Regular vet checks, vaccinations\n5. **Milking** 🥛: 2-3 times daily, gentle handling\n\nPlease try again in a minute for detailed advice!"

	safetyBlockedReply = "As a dairy expert, I can help with that! Could you provide more specific details about your situation (number of animals, symptoms, current practices)? This will help me give you the most accurate advice."

	genericRedirectReply = "I'm here to help with dairy farming! Please ask about: milk production 🥛, animal diseases 🏥, feed nutrition 🌾, breeding 🐄, or farm management 📊. What would you like to know?"

	emptyOutputReply = "I'm your dairy farming expert! Please rephrase your question and I'll help with specific advice about milk production, animal health, feed, diseases, or any dairy topic. Ask me anything!"

	lastResortReply = "I'm your dairy management assistant! I can help you with milk production, farm operations, animal care, business management, and more. What would you like to know?"
)

// Pipeline orchestrates one chat turn: safety screen, retrieval, prompt
// composition, the model call with its fallback policy, history update,
// and best-effort voice synthesis. Every external dependency failure maps
// to a usable reply; Respond only errors on invalid input.
type Pipeline struct {
	sessions     *SessionStore
	retriever    Retriever
	generator    Generator
	synthesizer  VoiceSynthesizer
	transcripts  TranscriptSink
	logger       *slog.Logger
	modelTimeout time.Duration
	voiceEnabled bool
}

type PipelineOption func(*Pipeline)

// WithVoice enables voice synthesis through the given synthesizer.
func WithVoice(s VoiceSynthesizer) PipelineOption {
	return func(p *Pipeline) {
		p.synthesizer = s
		p.voiceEnabled = s != nil
	}
}

// WithTranscripts mirrors each turn to an audit sink.
func WithTranscripts(sink TranscriptSink) PipelineOption {
	return func(p *Pipeline) { p.transcripts = sink }
}

// WithModelTimeout bounds the outbound model call.
func WithModelTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.modelTimeout = d
		}
	}
}

func NewPipeline(sessions *SessionStore, retriever Retriever, generator Generator, logger *slog.Logger, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		sessions:     sessions,
		retriever:    retriever,
		generator:    generator,
		logger:       logger,
		modelTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Respond runs one request through the pipeline.
func (p *Pipeline) Respond(ctx context.Context, req Request) (*Result, error) {
	message := strings.TrimSpace(req.Message)
	if req.SessionID == "" {
		req.SessionID = defaultSessionID
	}
	if req.Language == "" {
		req.Language = "en"
	}

	if message == "" && req.ImageBase64 == "" {
		return nil, ErrEmptyRequest
	}

	if flagged(message) {
		return &Result{
			Reply:              safeRedirectReply,
			Language:           req.Language,
			SessionID:          req.SessionID,
			ConversationLength: p.sessions.Len(req.SessionID),
			SafetyFlag:         true,
		}, nil
	}

	image := decodeImage(req.ImageBase64, p.logger)

	docs := p.retriever.Retrieve(ctx, message, retrievalK)

	composed := Compose(PromptInput{
		Language:      req.Language,
		ForceLanguage: req.ForceLanguage,
		History:       p.sessions.History(req.SessionID),
		Documents:     docs,
		Message:       message,
		HasImage:      len(image) > 0,
	})

	reply := p.generate(ctx, composed.Prompt, image)

	if strings.TrimSpace(reply) == "" {
		reply = lastResortReply
	}
	if runes := []rune(reply); len(runes) > replyRuneLimit {
		reply = string(runes[:replyRuneLimit]) + replySuffix
	}

	p.sessions.Append(req.SessionID, RoleUser, composed.UserMessage)
	p.sessions.Append(req.SessionID, RoleAssistant, reply)
	p.publishTranscript(ctx, req.SessionID, req.Language, composed.UserMessage, reply)

	result := &Result{
		Reply:              reply,
		Language:           req.Language,
		SessionID:          req.SessionID,
		ConversationLength: p.sessions.Len(req.SessionID),
	}

	if p.voiceEnabled {
		filename := voiceFilename(req.SessionID)
		if err := p.synthesizer.Synthesize(ctx, reply, req.Language, filename); err != nil {
			p.logger.Warn("voice synthesis failed, continuing without audio",
				"session_id", req.SessionID, "error", err)
		} else {
			result.VoiceFile = filename
		}
	}

	return result, nil
}

// generate calls the model and maps every failure mode to a reply.
func (p *Pipeline) generate(ctx context.Context, prompt string, image []byte) string {
	callCtx, cancel := context.WithTimeout(ctx, p.modelTimeout)
	defer cancel()

	res, err := p.generator.Generate(callCtx, ai.GenerateRequest{
		Prompt:    prompt,
		Image:     image,
		ImageMIME: "image/jpeg",
		Sampling: ai.SamplingConfig{
			Temperature:     0.6,
			TopP:            0.9,
			TopK:            40,
			MaxOutputTokens: 1800,
		},
		Safety: ai.RelaxedSafetySettings(),
	})
	if err != nil {
		p.logger.Error("model call failed", "error", err)
		return classifyFailure(err)
	}

	if text := strings.TrimSpace(res.Text); text != "" {
		return res.Text
	}
	if res.Blocked {
		p.logger.Warn("model blocked the prompt")
		return safetyBlockedReply
	}
	p.logger.Warn("model returned empty output")
	return emptyOutputReply
}

// classifyFailure picks a canned reply from the error text. The rate-limit
// branch carries a substantive answer so throttled users still get content.
func classifyFailure(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota"), strings.Contains(msg, "rate"), strings.Contains(msg, "429"):
		return rateLimitReply
	case strings.Contains(msg, "block"), strings.Contains(msg, "safety"):
		return safetyBlockedReply
	default:
		return genericRedirectReply
	}
}

func flagged(message string) bool {
	if message == "" {
		return false
	}
	lower := strings.ToLower(message)
	for _, keyword := range harmfulKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// decodeImage accepts a raw or data-URL base64 payload. A payload that does
// not decode is dropped rather than failing the request.
func decodeImage(payload string, logger *slog.Logger) []byte {
	if payload == "" {
		return nil
	}
	if idx := strings.Index(payload, "base64,"); idx >= 0 {
		payload = payload[idx+len("base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		logger.Warn("image payload did not decode, ignoring", "error", err)
		return nil
	}
	return data
}

func (p *Pipeline) publishTranscript(ctx context.Context, sessionID, language, userMsg, reply string) {
	if p.transcripts == nil {
		return
	}
	entries := []model.ChatLog{
		{SessionID: sessionID, Role: RoleUser, Content: userMsg, Language: language},
		{SessionID: sessionID, Role: RoleAssistant, Content: reply, Language: language},
	}
	for _, entry := range entries {
		if err := p.transcripts.Publish(ctx, entry); err != nil {
			p.logger.Warn("transcript publish failed", "session_id", sessionID, "error", err)
			return
		}
	}
}

// voiceFilename derives the per-session audio filename. Session ids are
// caller-chosen strings, so anything outside a safe character set is
// replaced before the id lands in a filesystem path.
func voiceFilename(sessionID string) string {
	var b strings.Builder
	for _, r := range sessionID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return fmt.Sprintf("voice_response_%s.mp3", b.String())
}
