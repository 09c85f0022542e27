// Package tts converts reply text to speech using the Google Translate TTS
// endpoint and stores the result as an mp3 file under the static directory.
package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	endpoint = "https://translate.google.com/translate_tts"

	// maxSegmentRunes bounds each request; the endpoint rejects long inputs.
	maxSegmentRunes = 180
)

// supportedLanguages the synthesizer can voice; anything else falls back to
// English.
var supportedLanguages = map[string]bool{
	"en": true,
	"hi": true,
	"te": true,
	"ta": true,
	"mr": true,
	"kn": true,
}

// NormalizeLanguage reduces a region-qualified code ("kn-IN") to its base and
// maps unsupported codes to "en".
func NormalizeLanguage(code string) string {
	short := code
	if idx := strings.Index(code, "-"); idx > 0 {
		short = code[:idx]
	}
	if supportedLanguages[short] {
		return short
	}
	return "en"
}

// Synthesizer fetches speech audio and writes voice files.
type Synthesizer struct {
	httpClient *http.Client
	baseURL    string
	staticDir  string
}

func NewSynthesizer(staticDir string) *Synthesizer {
	return &Synthesizer{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    endpoint,
		staticDir:  staticDir,
	}
}

// Synthesize voices text in the given language code and writes the result to
// staticDir under filename. The language is normalized before use.
func (s *Synthesizer) Synthesize(ctx context.Context, text, langCode, filename string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("tts input is empty")
	}
	lang := NormalizeLanguage(langCode)

	var audio []byte
	for _, segment := range splitSegments(text, maxSegmentRunes) {
		chunk, err := s.fetchSegment(ctx, segment, lang)
		if err != nil {
			return err
		}
		// MP3 frames are self-contained; concatenated segments play back
		// as one stream.
		audio = append(audio, chunk...)
	}

	if err := os.MkdirAll(s.staticDir, 0o755); err != nil {
		return fmt.Errorf("create static dir failed: %w", err)
	}
	path := filepath.Join(s.staticDir, filename)
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return fmt.Errorf("write voice file failed: %w", err)
	}
	return nil
}

func (s *Synthesizer) fetchSegment(ctx context.Context, text, lang string) ([]byte, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("tl", lang)
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build tts request failed: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tts response status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tts response failed: %w", err)
	}
	return raw, nil
}

// splitSegments cuts text into rune-bounded chunks, preferring to break at
// whitespace so words are not split mid-syllable.
func splitSegments(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var segments []string
	for len(runes) > 0 {
		if len(runes) <= limit {
			segments = append(segments, string(runes))
			break
		}
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == ' ' || runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		segments = append(segments, strings.TrimSpace(string(runes[:cut])))
		runes = runes[cut:]
	}
	return segments
}
