package store

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/tmc/langchaingo/embeddings"

	"github.com/docsage/docsage/internal/types"
)

type PGVectorConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// PGIndex is the Postgres/pgvector index backend. The "location" of a
// pgvector index is its table name; the connection string is fixed per
// deployment.
type PGIndex struct {
	config   PGVectorConfig
	pool     *pgxpool.Pool
	embedder embeddings.Embedder
}

func OpenPGVector(ctx context.Context, config PGVectorConfig, embedder embeddings.Embedder) (*PGIndex, error) {
	if config.TableName == "" {
		config.TableName = "chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	idx := &PGIndex{
		config:   config,
		pool:     pool,
		embedder: embedder,
	}

	if err := idx.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return idx, nil
}

func (idx *PGIndex) initialize(ctx context.Context) error {
	_, err := idx.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT,
			metadata JSONB,
			embedding vector(%d)
		)`, idx.config.TableName, idx.config.VectorDim)

	_, err = idx.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		idx.config.TableName, idx.config.TableName)

	_, err = idx.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	return nil
}

// Add embeds each document and upserts it keyed by id.
func (idx *PGIndex) Add(ctx context.Context, docs []types.IndexDocument, ids []string) error {
	if len(docs) == 0 {
		return nil
	}
	if len(docs) != len(ids) {
		return fmt.Errorf("got %d documents but %d ids", len(docs), len(ids))
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = sanitizeUTF8(doc.Text)
	}
	vecs, err := idx.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to create embeddings: %v", err)
	}
	if len(vecs) != len(docs) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(vecs), len(docs))
	}

	tx, err := idx.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`,
		idx.config.TableName)

	for i := range docs {
		metaJSON, err := json.Marshal(docs[i].Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %v", err)
		}

		_, err = tx.Exec(ctx, stmt, ids[i], texts[i], metaJSON, pgvector.NewVector(vecs[i]))
		if err != nil {
			return fmt.Errorf("failed to upsert chunk: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

// Search embeds the query and returns the k nearest chunks with a cosine
// relevance score (1 - distance), best match first.
func (idx *PGIndex) Search(ctx context.Context, query string, k int) ([]types.Hit, error) {
	qvec, err := idx.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %v", err)
	}

	stmt := fmt.Sprintf(`
		SELECT content, metadata, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		idx.config.TableName)

	rows, err := idx.pool.Query(ctx, stmt, pgvector.NewVector(qvec), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %v", err)
	}
	defer rows.Close()

	var hits []types.Hit
	for rows.Next() {
		var content string
		var metaJSON []byte
		var score float64
		if err := rows.Scan(&content, &metaJSON, &score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		metadata := map[string]interface{}{}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata: %v", err)
			}
		}
		hits = append(hits, types.Hit{Text: content, Metadata: metadata, Score: score})
	}

	return hits, rows.Err()
}

func (idx *PGIndex) Close() error {
	if idx.pool != nil {
		idx.pool.Close()
	}
	return nil
}

// clearPGVector drops the index table; a table that does not exist is a
// no-op.
func clearPGVector(ctx context.Context, connString, tableName string) error {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", tableName)); err != nil {
		return fmt.Errorf("failed to drop table: %v", err)
	}
	return nil
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
