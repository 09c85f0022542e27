// Package rag maintains the knowledge index behind the chat assistant:
// a small corpus of reference documents, their embeddings, and a cosine
// nearest-neighbor search over them.
package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"dairydesk/internal/pkg/pdfextract"
)

// defaultDocuments seed the index when the knowledge directory is empty so
// retrieval still has something to ground answers on.
var defaultDocuments = []string{
	"General dairy farming best practices: maintain hygiene, provide clean water, balanced feed, monitor udder health, vaccinate regularly.",
	"Mastitis management: isolate affected animal, consult vet, sample milk for culture, follow recommended antibiotic regimen based on sensitivity testing.",
}

// Embedder computes embedding vectors for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type snapshot struct {
	Documents  []string    `json:"documents"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Index owns the document corpus and its embedding matrix. The two are only
// ever replaced together, so the neighbor search always runs against the
// matrix the documents were embedded into.
//
// Index is safe for concurrent use; the first caller builds or loads it and
// concurrent first calls block until that finishes.
type Index struct {
	mu sync.Mutex

	embedder     Embedder
	knowledgeDir string
	snapshotPath string
	timeout      time.Duration
	logger       *slog.Logger

	docs       []string
	embeddings [][]float32
	ready      bool
}

func NewIndex(embedder Embedder, knowledgeDir, snapshotPath string, timeout time.Duration, logger *slog.Logger) *Index {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		embedder:     embedder,
		knowledgeDir: knowledgeDir,
		snapshotPath: snapshotPath,
		timeout:      timeout,
		logger:       logger,
	}
}

// Build reads the knowledge directory, embeds every document, and persists
// a snapshot. The snapshot write is best-effort; only embedding failure is
// an error.
func (i *Index) Build(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.buildLocked(ctx)
}

func (i *Index) buildLocked(ctx context.Context) error {
	docs := i.loadDocuments()
	if len(docs) == 0 {
		docs = append([]string(nil), defaultDocuments...)
	}

	embedCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	embeddings, err := i.embedder.EmbedBatch(embedCtx, docs)
	if err != nil {
		return fmt.Errorf("embed corpus failed: %w", err)
	}
	if len(embeddings) != len(docs) {
		return fmt.Errorf("embedding count mismatch: %d docs, %d vectors", len(docs), len(embeddings))
	}

	i.docs = docs
	i.embeddings = embeddings
	i.ready = true

	if err := i.saveSnapshot(); err != nil {
		i.logger.Warn("rag snapshot write failed", "error", err)
	}
	return nil
}

// Load restores the index from the snapshot file, rebuilding from source
// documents when the snapshot is absent, corrupt, or empty.
func (i *Index) Load(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.loadLocked(ctx)
}

func (i *Index) loadLocked(ctx context.Context) error {
	raw, err := os.ReadFile(i.snapshotPath)
	if err != nil {
		return i.buildLocked(ctx)
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil || len(snap.Embeddings) == 0 || len(snap.Documents) != len(snap.Embeddings) {
		return i.buildLocked(ctx)
	}

	i.docs = snap.Documents
	i.embeddings = snap.Embeddings
	i.ready = true
	return nil
}

// Retrieve returns the raw text of up to k documents nearest to the query,
// closest first. Retrieval is best-effort: any failure yields an empty
// result, never an error, so the chat pipeline keeps working without
// context.
func (i *Index) Retrieve(ctx context.Context, query string, k int) []string {
	if strings.TrimSpace(query) == "" || k <= 0 {
		return nil
	}

	docs, embeddings, ok := i.corpus(ctx)
	if !ok || len(docs) == 0 {
		return nil
	}

	embedCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	queryVec, err := i.embedder.Embed(embedCtx, query)
	if err != nil {
		i.logger.Warn("rag query embedding failed", "error", err)
		return nil
	}

	if k > len(docs) {
		k = len(docs)
	}
	return nearest(docs, embeddings, queryVec, k)
}

// corpus returns the current documents and embedding matrix, lazily
// building the index on first use. The query embedding and the neighbor
// scan run outside the lock: slice contents are never mutated after
// publication, only replaced wholesale.
func (i *Index) corpus(ctx context.Context) ([]string, [][]float32, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.ready {
		if err := i.loadLocked(ctx); err != nil {
			i.logger.Warn("rag index unavailable", "error", err)
			return nil, nil, false
		}
	}
	return i.docs, i.embeddings, true
}

// Len reports the number of indexed documents.
func (i *Index) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.docs)
}

// nearest scans the embedding matrix and returns the k documents with the
// smallest cosine distance to the query, ascending.
func nearest(docs []string, embeddings [][]float32, query []float32, k int) []string {
	type scored struct {
		idx      int
		distance float64
	}

	results := make([]scored, len(embeddings))
	for idx, vec := range embeddings {
		results[idx] = scored{idx: idx, distance: cosineDistance(query, vec)}
	}
	sort.Slice(results, func(a, b int) bool { return results[a].distance < results[b].distance })

	if k > len(results) {
		k = len(results)
	}
	texts := make([]string, 0, k)
	for _, r := range results[:k] {
		texts = append(texts, docs[r.idx])
	}
	return texts
}

func (i *Index) loadDocuments() []string {
	entries, err := os.ReadDir(i.knowledgeDir)
	if err != nil {
		return nil
	}

	var docs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(i.knowledgeDir, entry.Name())
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".txt":
			raw, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			if text := strings.TrimSpace(string(raw)); text != "" {
				docs = append(docs, text)
			}
		case ".pdf":
			f, err := os.Open(path)
			if err != nil {
				continue
			}
			text, err := pdfextract.ExtractText(f)
			f.Close()
			if err != nil {
				i.logger.Warn("knowledge pdf extraction failed", "file", entry.Name(), "error", err)
				continue
			}
			if text = strings.TrimSpace(text); text != "" {
				docs = append(docs, text)
			}
		}
	}
	return docs
}

func (i *Index) saveSnapshot() error {
	payload, err := json.Marshal(snapshot{Documents: i.docs, Embeddings: i.embeddings})
	if err != nil {
		return fmt.Errorf("marshal snapshot failed: %w", err)
	}
	if err := os.WriteFile(i.snapshotPath, payload, 0o644); err != nil {
		return fmt.Errorf("write snapshot failed: %w", err)
	}
	return nil
}

func cosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
