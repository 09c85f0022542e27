package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLanguage(t *testing.T) {
	assert.Equal(t, "kn", NormalizeLanguage("kn-IN"))
	assert.Equal(t, "hi", NormalizeLanguage("hi"))
	assert.Equal(t, "en", NormalizeLanguage("en-US"))
	assert.Equal(t, "en", NormalizeLanguage("fr"))
	assert.Equal(t, "en", NormalizeLanguage(""))
}

func TestSplitSegments(t *testing.T) {
	t.Run("short text is one segment", func(t *testing.T) {
		assert.Equal(t, []string{"hello world"}, splitSegments("hello world", 180))
	})

	t.Run("long text breaks at whitespace", func(t *testing.T) {
		words := strings.Repeat("word ", 100)
		segments := splitSegments(strings.TrimSpace(words), 180)

		require.Greater(t, len(segments), 1)
		for _, seg := range segments {
			assert.LessOrEqual(t, len([]rune(seg)), 180)
			assert.False(t, strings.HasPrefix(seg, " "))
			assert.False(t, strings.HasSuffix(seg, " "))
		}
		rejoined := strings.Join(segments, " ")
		assert.Equal(t, strings.TrimSpace(words), rejoined)
	})

	t.Run("unbroken text is cut at the limit", func(t *testing.T) {
		long := strings.Repeat("x", 400)
		segments := splitSegments(long, 180)

		require.Len(t, segments, 3)
		assert.Equal(t, strings.Repeat("x", 180), segments[0])
		assert.Equal(t, strings.Repeat("x", 40), segments[2])
	})
}

func TestSynthesizer_Synthesize(t *testing.T) {
	t.Run("writes concatenated segments", func(t *testing.T) {
		var langs []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			langs = append(langs, r.URL.Query().Get("tl"))
			w.Write([]byte("mp3:" + r.URL.Query().Get("q") + ";"))
		}))
		defer srv.Close()

		dir := t.TempDir()
		s := NewSynthesizer(dir)
		s.baseURL = srv.URL

		err := s.Synthesize(context.Background(), "hello farmer", "kn-IN", "voice.mp3")
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dir, "voice.mp3"))
		require.NoError(t, err)
		assert.Equal(t, "mp3:hello farmer;", string(data))
		assert.Equal(t, []string{"kn"}, langs)
	})

	t.Run("empty text is rejected", func(t *testing.T) {
		s := NewSynthesizer(t.TempDir())
		assert.Error(t, s.Synthesize(context.Background(), "   ", "en", "voice.mp3"))
	})

	t.Run("upstream failure returns an error without writing", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		dir := t.TempDir()
		s := NewSynthesizer(dir)
		s.baseURL = srv.URL

		err := s.Synthesize(context.Background(), "hello", "en", "voice.mp3")
		require.Error(t, err)
		assert.NoFileExists(t, filepath.Join(dir, "voice.mp3"))
	})
}
