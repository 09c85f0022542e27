package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Config holds API settings for the Gemini REST backend.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
	RequestsPerSec float64
}

// SamplingConfig mirrors the generationConfig block of a generateContent call.
type SamplingConfig struct {
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
}

// SafetySetting maps a harm category to a blocking threshold.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// RelaxedSafetySettings block only high-severity content in every category.
// Veterinary and medical dairy topics trip mid-level thresholds, so the
// default thresholds are too aggressive for this domain.
func RelaxedSafetySettings() []SafetySetting {
	categories := []string{
		"HARM_CATEGORY_HARASSMENT",
		"HARM_CATEGORY_HATE_SPEECH",
		"HARM_CATEGORY_SEXUALLY_EXPLICIT",
		"HARM_CATEGORY_DANGEROUS_CONTENT",
	}
	settings := make([]SafetySetting, len(categories))
	for i, c := range categories {
		settings[i] = SafetySetting{Category: c, Threshold: "BLOCK_ONLY_HIGH"}
	}
	return settings
}

// GenerateRequest is one generateContent invocation. Image and Audio are raw
// bytes attached as inline data parts ahead of the prompt.
type GenerateRequest struct {
	Prompt        string
	Image         []byte
	ImageMIME     string
	Audio         []byte
	AudioMIME     string
	Sampling      SamplingConfig
	Safety        []SafetySetting
	ModelOverride string
}

// GenerateResult carries the model output. Blocked is set when the prompt was
// refused without a transport error (empty candidates with prompt feedback).
type GenerateResult struct {
	Text    string
	Blocked bool
}

// ModelInfo describes one entry of the models roster.
type ModelInfo struct {
	Name             string   `json:"name"`
	DisplayName      string   `json:"displayName"`
	Description      string   `json:"description"`
	SupportedMethods []string `json:"supportedGenerationMethods"`
}

// SupportsGenerate reports whether the model accepts generateContent calls.
func (m ModelInfo) SupportsGenerate() bool {
	for _, method := range m.SupportedMethods {
		if method == "generateContent" {
			return true
		}
	}
	return false
}

// Client talks to the Gemini REST API. Outbound calls are throttled by a
// client-side rate limiter so bursts of chat traffic do not trip quota
// errors upstream.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	cfg        Config
}

func NewClient(cfg Config) *Client {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		httpClient: &http.Client{Timeout: 90 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		cfg:        cfg,
	}
}

type generatePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *inlineDataPart `json:"inline_data,omitempty"`
}

type inlineDataPart struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateContentRequest struct {
	Contents []struct {
		Parts []generatePart `json:"parts"`
	} `json:"contents"`
	GenerationConfig map[string]interface{} `json:"generationConfig,omitempty"`
	SafetySettings   []SafetySetting        `json:"safetySettings,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Generate invokes generateContent with the composed prompt and any inline
// media, and returns the first candidate's text.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	var parts []generatePart
	if len(req.Image) > 0 {
		mime := req.ImageMIME
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, generatePart{InlineData: &inlineDataPart{
			MIMEType: mime,
			Data:     base64.StdEncoding.EncodeToString(req.Image),
		}})
	}
	if len(req.Audio) > 0 {
		mime := req.AudioMIME
		if mime == "" {
			mime = "audio/mpeg"
		}
		parts = append(parts, generatePart{InlineData: &inlineDataPart{
			MIMEType: mime,
			Data:     base64.StdEncoding.EncodeToString(req.Audio),
		}})
	}
	parts = append(parts, generatePart{Text: req.Prompt})

	body := generateContentRequest{SafetySettings: req.Safety}
	body.Contents = make([]struct {
		Parts []generatePart `json:"parts"`
	}, 1)
	body.Contents[0].Parts = parts
	if req.Sampling != (SamplingConfig{}) {
		body.GenerationConfig = map[string]interface{}{
			"temperature":     req.Sampling.Temperature,
			"topP":            req.Sampling.TopP,
			"topK":            req.Sampling.TopK,
			"maxOutputTokens": req.Sampling.MaxOutputTokens,
		}
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal generate request failed: %w", err)
	}

	model := req.ModelOverride
	if model == "" {
		model = c.cfg.Model
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), model, c.cfg.APIKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build generate request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read generate response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("generate response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed generateContentResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse generate json failed: %w", err)
	}

	var text strings.Builder
	for _, cand := range parsed.Candidates {
		for _, part := range cand.Content.Parts {
			text.WriteString(part.Text)
		}
		break
	}

	result := &GenerateResult{Text: text.String()}
	if result.Text == "" && parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
		result.Blocked = true
	}
	return result, nil
}

// Transcribe asks the model to transcribe audio in the given language.
// langName is a display name such as "Hindi", not a code.
func (c *Client) Transcribe(ctx context.Context, audio []byte, langName string) (string, error) {
	prompt := fmt.Sprintf("Transcribe this audio to text. The speaker is speaking in %s. "+
		"Output only the transcribed text without any additional commentary or explanation. "+
		"If the audio is in %s, provide transcription in %s script.", langName, langName, langName)

	result, err := c.Generate(ctx, GenerateRequest{
		Prompt:    prompt,
		Audio:     audio,
		AudioMIME: "audio/mpeg",
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Text), nil
}

// ListModels returns the model roster.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	url := fmt.Sprintf("%s/models?key=%s", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build list models request failed: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list models request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read list models response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("list models response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Models []ModelInfo `json:"models"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse list models json failed: %w", err)
	}
	return parsed.Models, nil
}

// preferredModels are tried in order when resolving against the roster.
var preferredModels = []string{
	"gemini-2.5-flash",
	"gemini-2.0-flash",
	"gemini-1.5-pro",
	"gemini-1.5-flash",
}

// ChoosePreferredModel picks the best generateContent-capable model from the
// roster, falling back to the first capable entry, then to fallback.
func ChoosePreferredModel(models []ModelInfo, fallback string) string {
	var capable []string
	for _, m := range models {
		if m.SupportsGenerate() {
			capable = append(capable, strings.TrimPrefix(m.Name, "models/"))
		}
	}
	for _, pref := range preferredModels {
		for _, name := range capable {
			if strings.Contains(name, pref) {
				return name
			}
		}
	}
	if len(capable) > 0 {
		return capable[0]
	}
	return fallback
}

// ResolveModel queries the roster and pins the client's model to the best
// available one. Resolution failure keeps the configured default.
func (c *Client) ResolveModel(ctx context.Context) string {
	models, err := c.ListModels(ctx)
	if err != nil {
		return c.cfg.Model
	}
	c.cfg.Model = ChoosePreferredModel(models, c.cfg.Model)
	return c.cfg.Model
}

// CurrentModel reports the model name in use.
func (c *Client) CurrentModel() string { return c.cfg.Model }

// HasAPIKey reports whether a key is configured; used by the diagnostic
// endpoints.
func (c *Client) HasAPIKey() bool { return c.cfg.APIKey != "" }

// APIKeyLength is exposed by the diagnostic endpoint for parity with the
// mobile client's expectations.
func (c *Client) APIKeyLength() int { return len(c.cfg.APIKey) }
