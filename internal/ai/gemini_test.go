package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:        srv.URL,
		APIKey:         "test-key",
		Model:          "gemini-1.5-flash",
		EmbeddingModel: "text-embedding-004",
		RequestsPerSec: 1000,
	})
}

func TestClient_Generate(t *testing.T) {
	t.Run("returns first candidate text", func(t *testing.T) {
		var gotPath string
		var gotBody map[string]interface{}
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"the answer"}]}}]}`))
		})

		result, err := client.Generate(context.Background(), GenerateRequest{
			Prompt: "question",
			Sampling: SamplingConfig{
				Temperature:     0.6,
				TopP:            0.9,
				TopK:            40,
				MaxOutputTokens: 1800,
			},
			Safety: RelaxedSafetySettings(),
		})
		require.NoError(t, err)

		assert.Equal(t, "the answer", result.Text)
		assert.False(t, result.Blocked)
		assert.Equal(t, "/models/gemini-1.5-flash:generateContent", gotPath)

		genCfg, ok := gotBody["generationConfig"].(map[string]interface{})
		require.True(t, ok)
		assert.InDelta(t, 0.6, genCfg["temperature"], 1e-9)
		assert.InDelta(t, 1800, genCfg["maxOutputTokens"], 1e-9)

		safety, ok := gotBody["safetySettings"].([]interface{})
		require.True(t, ok)
		assert.Len(t, safety, 4)
	})

	t.Run("image is attached as inline data before the prompt", func(t *testing.T) {
		var gotBody generateContentRequest
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
		})

		_, err := client.Generate(context.Background(), GenerateRequest{
			Prompt: "what is this?",
			Image:  []byte("jpeg-bytes"),
		})
		require.NoError(t, err)

		require.Len(t, gotBody.Contents, 1)
		parts := gotBody.Contents[0].Parts
		require.Len(t, parts, 2)
		require.NotNil(t, parts[0].InlineData)
		assert.Equal(t, "image/jpeg", parts[0].InlineData.MIMEType)
		assert.Equal(t, "what is this?", parts[1].Text)
	})

	t.Run("error status carries code and body", func(t *testing.T) {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
		})

		_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "q"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
		assert.Contains(t, err.Error(), "quota exceeded")
	})

	t.Run("blocked prompt is flagged", func(t *testing.T) {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
		})

		result, err := client.Generate(context.Background(), GenerateRequest{Prompt: "q"})
		require.NoError(t, err)
		assert.True(t, result.Blocked)
		assert.Empty(t, result.Text)
	})

	t.Run("model override changes the path", func(t *testing.T) {
		var gotPath string
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
		})

		_, err := client.Generate(context.Background(), GenerateRequest{
			Prompt:        "q",
			ModelOverride: "gemini-2.0-flash",
		})
		require.NoError(t, err)
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", gotPath)
	})
}

func TestClient_Embed(t *testing.T) {
	t.Run("parses embedding values", func(t *testing.T) {
		var gotPath string
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.Write([]byte(`{"embedding":{"values":[0.1,0.2,0.3]}}`))
		})

		vec, err := client.Embed(context.Background(), "some text")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
		assert.Equal(t, "/models/text-embedding-004:embedContent", gotPath)
	})

	t.Run("empty input is rejected locally", func(t *testing.T) {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})
		_, err := client.Embed(context.Background(), "   ")
		assert.Error(t, err)
	})

	t.Run("batch embeds all texts", func(t *testing.T) {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/models/text-embedding-004:batchEmbedContents", r.URL.Path)
			w.Write([]byte(`{"embeddings":[{"values":[1,0]},{"values":[0,1]}]}`))
		})

		vecs, err := client.EmbedBatch(context.Background(), []string{"a", "b"})
		require.NoError(t, err)
		require.Len(t, vecs, 2)
		assert.Equal(t, []float32{1, 0}, vecs[0])
		assert.Equal(t, []float32{0, 1}, vecs[1])
	})
}

func TestClient_ListModels(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.Write([]byte(`{"models":[
			{"name":"models/gemini-1.5-flash","supportedGenerationMethods":["generateContent"]},
			{"name":"models/text-embedding-004","supportedGenerationMethods":["embedContent"]}
		]}`))
	})

	models, err := client.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.True(t, models[0].SupportsGenerate())
	assert.False(t, models[1].SupportsGenerate())
}

func TestChoosePreferredModel(t *testing.T) {
	generate := func(name string) ModelInfo {
		return ModelInfo{Name: name, SupportedMethods: []string{"generateContent"}}
	}

	t.Run("prefers the newest capable model", func(t *testing.T) {
		models := []ModelInfo{
			generate("models/gemini-1.5-flash"),
			generate("models/gemini-2.5-flash"),
			generate("models/gemini-1.5-pro"),
		}
		assert.Equal(t, "gemini-2.5-flash", ChoosePreferredModel(models, "fallback"))
	})

	t.Run("falls back to first capable model", func(t *testing.T) {
		models := []ModelInfo{generate("models/gemini-exotic")}
		assert.Equal(t, "gemini-exotic", ChoosePreferredModel(models, "fallback"))
	})

	t.Run("empty roster yields the fallback", func(t *testing.T) {
		assert.Equal(t, "gemini-1.5-flash", ChoosePreferredModel(nil, "gemini-1.5-flash"))

		embedOnly := []ModelInfo{{Name: "models/text-embedding-004", SupportedMethods: []string{"embedContent"}}}
		assert.Equal(t, "gemini-1.5-flash", ChoosePreferredModel(embedOnly, "gemini-1.5-flash"))
	})
}

func TestClient_Transcribe(t *testing.T) {
	var gotBody generateContentRequest
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  transcribed text  "}]}}]}`))
	})

	text, err := client.Transcribe(context.Background(), []byte("audio-bytes"), "Hindi")
	require.NoError(t, err)

	assert.Equal(t, "transcribed text", text)
	require.Len(t, gotBody.Contents, 1)
	parts := gotBody.Contents[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "audio/mpeg", parts[0].InlineData.MIMEType)
	assert.Contains(t, parts[1].Text, "speaking in Hindi")
}
