package library

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/mikeboe/scholar-agent/pkg/database"
	"github.com/mikeboe/scholar-agent/pkg/embeddings"
	"github.com/mikeboe/scholar-agent/pkg/research"
)

// Entry kinds stored in the library.
const (
	KindSource  = "source"
	KindFinding = "finding"
)

// Embedder is the embedding capability the store depends on.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Entry is one indexed library row: a curated source or a finding chunk.
type Entry struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Topic   string `json:"topic"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// SearchHit pairs an entry with its cosine similarity to the query.
type SearchHit struct {
	Entry      Entry   `json:"entry"`
	Similarity float64 `json:"similarity"`
}

// Store archives the outputs of pipeline runs in a pgvector table so
// they can be searched semantically later.
type Store struct {
	db           *database.PostgresDB
	embedder     Embedder
	collection   string
	chunkSize    int
	chunkOverlap int
	Logger       *slog.Logger
}

// isValidCollectionName validates that a collection (table) name contains
// only safe characters to prevent SQL injection through identifiers.
func isValidCollectionName(name string) bool {
	// Must start with a lower-case letter or underscore and stay within
	// PostgreSQL's 63-char identifier limit.
	matched, _ := regexp.MatchString(`^[a-z_][a-zA-Z0-9_]{0,62}$`, name)
	return matched
}

func NewStore(db *database.PostgresDB, embedder Embedder, collection string, chunkSize, chunkOverlap int) (*Store, error) {
	if !isValidCollectionName(collection) {
		return nil, fmt.Errorf("invalid collection name %q: must contain only alphanumeric characters and underscores, start with a letter or underscore, and be 1-63 characters long", collection)
	}
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	return &Store{
		db:           db,
		embedder:     embedder,
		collection:   collection,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		Logger:       slog.Default(),
	}, nil
}

// Init makes sure the pgvector extension and the collection table exist.
func (s *Store) Init(ctx context.Context) error {
	if err := s.db.EnsureVectorExtension(ctx); err != nil {
		return fmt.Errorf("failed to ensure vector extension: %w", err)
	}
	if err := s.db.CreateLibraryTable(ctx, s.collection, embeddings.Dimension); err != nil {
		return err
	}
	return nil
}

// IndexRun archives a completed pipeline run: every curated source and
// every successful finding (chunked) becomes a library entry. Error
// findings are skipped, they carry no research content.
func (s *Store) IndexRun(ctx context.Context, run *research.Result) error {
	entries := make([]Entry, 0, len(run.Sources)+len(run.Subtopics))

	for _, src := range run.Sources {
		content := strings.TrimSpace(src.Title + "\n" + src.Snippet)
		if content == "" {
			continue
		}
		entries = append(entries, Entry{
			Kind:    KindSource,
			Topic:   run.Topic,
			Title:   src.Title,
			URL:     src.URL,
			Content: content,
		})
	}

	ts := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.chunkSize),
		textsplitter.WithChunkOverlap(s.chunkOverlap),
	)

	indexed := make(map[string]bool)
	for _, sub := range run.Subtopics {
		if indexed[sub] {
			continue
		}
		indexed[sub] = true

		finding := run.Findings[sub]
		if finding == "" || strings.HasPrefix(finding, "Error: ") {
			continue
		}

		chunks, err := ts.SplitText(finding)
		if err != nil {
			s.Logger.Error("Failed to split finding", "subtopic", sub, "error", err)
			continue
		}
		for _, chunk := range chunks {
			entries = append(entries, Entry{
				Kind:    KindFinding,
				Topic:   run.Topic,
				Title:   sub,
				Content: chunk,
			})
		}
	}

	if len(entries) == 0 {
		return nil
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Content
	}
	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed library entries: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (kind, topic, title, url, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, pgx.Identifier{s.collection}.Sanitize())

	batch := &pgx.Batch{}
	for i, e := range entries {
		batch.Queue(query, e.Kind, e.Topic, e.Title, e.URL, e.Content, pgvector.NewVector(vectors[i]))
	}

	br := s.db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	for range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert library entry: %w", err)
		}
	}

	s.Logger.Info("Indexed pipeline run", "topic", run.Topic, "entries", len(entries))
	return nil
}

// Search embeds the query and returns the topK nearest entries by
// cosine similarity. kind filters to "source" or "finding"; empty
// searches both.
func (s *Store) Search(ctx context.Context, query string, topK int, kind string) ([]SearchHit, error) {
	if topK <= 0 {
		topK = 5
	}

	vec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	embedding := pgvector.NewVector(vec)

	var sql string
	var args []interface{}
	if kind != "" {
		sql = fmt.Sprintf(`
			SELECT id, kind, topic, title, url, content, 1 - (embedding <=> $1) AS similarity
			FROM %s
			WHERE kind = $2
			ORDER BY embedding <=> $1
			LIMIT $3
		`, pgx.Identifier{s.collection}.Sanitize())
		args = []interface{}{embedding, kind, topK}
	} else {
		sql = fmt.Sprintf(`
			SELECT id, kind, topic, title, url, content, 1 - (embedding <=> $1) AS similarity
			FROM %s
			ORDER BY embedding <=> $1
			LIMIT $2
		`, pgx.Identifier{s.collection}.Sanitize())
		args = []interface{}{embedding, topK}
	}

	rows, err := s.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute similarity search: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.Entry.ID, &h.Entry.Kind, &h.Entry.Topic, &h.Entry.Title, &h.Entry.URL, &h.Entry.Content, &h.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan library row: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
