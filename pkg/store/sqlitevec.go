package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/viant/sqlite-vec/engine"
	"github.com/viant/sqlite-vec/vec"
	"github.com/viant/sqlite-vec/vector"

	"github.com/docsage/docsage/internal/types"
)

const (
	sqliteFileName = "chunks.db"
	sqliteVTable   = "emb_chunks"
	sqliteShadow   = "_vec_" + sqliteVTable
	sqliteDataset  = "default"
	embedBatchSize = 64
)

// SQLiteIndex is the default vector index backend: an embedded sqlite-vec
// database persisted inside the configured index directory. Everything the
// index owns lives under that one directory, so clearing it is a plain
// recursive delete.
type SQLiteIndex struct {
	db       *sql.DB
	path     string
	embedder embeddings.Embedder
}

// OpenSQLite opens (or creates) the index under dir. Opening a location
// that has never been written yields a usable empty index.
func OpenSQLite(dir string, embedder embeddings.Embedder) (*SQLiteIndex, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	path := filepath.Join(dir, sqliteFileName)
	db, err := engine.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	if err := vec.Register(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to register vector extension: %w", err)
	}

	// WAL keeps the vec vtable's lazy index writes from deadlocking against
	// the read lock held by an in-flight search.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragma: %w", err)
		}
	}

	s := &SQLiteIndex{db: db, path: path, embedder: embedder}
	if err := s.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteIndex) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vector_storage (
			shadow_table_name TEXT NOT NULL,
			dataset_id        TEXT NOT NULL DEFAULT '',
			"index"           BLOB,
			PRIMARY KEY (shadow_table_name, dataset_id)
		);`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			dataset_id       TEXT NOT NULL,
			id               TEXT NOT NULL,
			asset_id         TEXT NOT NULL,
			content          TEXT,
			meta             TEXT,
			embedding        BLOB,
			embedding_model  TEXT,
			scn              INTEGER NOT NULL,
			archived         INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (dataset_id, id)
		);`, sqliteShadow),
		// dbpath binds the virtual table to this handle's database file;
		// without it every MATCH in the process is served through whichever
		// connection registered the extension first.
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec(doc_id, dbpath=%s);`, sqliteVTable, s.path),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index schema: %w", err)
		}
	}
	return nil
}

// Add embeds and upserts documents keyed by id. Re-adding an existing id
// replaces the stored entry.
func (s *SQLiteIndex) Add(ctx context.Context, docs []types.IndexDocument, ids []string) error {
	if len(docs) == 0 {
		return nil
	}
	if len(docs) != len(ids) {
		return fmt.Errorf("got %d documents but %d ids", len(docs), len(ids))
	}

	vecs, err := s.embedDocuments(ctx, docs)
	if err != nil {
		return err
	}

	stmt, err := s.db.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s(dataset_id, id, asset_id, content, meta, embedding, embedding_model, scn, archived)
VALUES(?,?,?,?,?,?,?,0,0)
ON CONFLICT(dataset_id, id) DO UPDATE SET
	content=excluded.content,
	meta=excluded.meta,
	embedding=excluded.embedding,
	archived=0`, sqliteShadow))
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i, doc := range docs {
		metaJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %s: %w", ids[i], err)
		}
		blob, err := vector.EncodeEmbedding(vecs[i])
		if err != nil {
			return fmt.Errorf("failed to encode embedding for %s: %w", ids[i], err)
		}
		if _, err := stmt.ExecContext(ctx, sqliteDataset, ids[i], ids[i], doc.Text, string(metaJSON), blob, ""); err != nil {
			return fmt.Errorf("failed to upsert chunk %s: %w", ids[i], err)
		}
	}
	return nil
}

// Search runs a MATCH query against the vec virtual table and returns hits
// in descending relevance order. An empty index returns no hits, not an
// error.
func (s *SQLiteIndex) Search(ctx context.Context, query string, k int) ([]types.Hit, error) {
	qvec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	blob, err := vector.EncodeEmbedding(qvec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query embedding: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT d.content, d.meta, v.match_score
FROM %s v
JOIN %s d ON d.dataset_id = v.dataset_id AND d.id = v.doc_id
WHERE v.dataset_id = ?
  AND v.doc_id MATCH ?
  AND d.archived = 0
ORDER BY v.match_score DESC
LIMIT ?`, sqliteVTable, sqliteShadow), sqliteDataset, blob, k)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	defer rows.Close()

	var hits []types.Hit
	for rows.Next() {
		var content, metaJSON string
		var score float64
		if err := rows.Scan(&content, &metaJSON, &score); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		metadata := map[string]interface{}{}
		if metaJSON != "" {
			if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata: %w", err)
			}
		}
		hits = append(hits, types.Hit{Text: content, Metadata: metadata, Score: score})
	}
	return hits, rows.Err()
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

func (s *SQLiteIndex) embedDocuments(ctx context.Context, docs []types.IndexDocument) ([][]float32, error) {
	out := make([][]float32, 0, len(docs))
	for i := 0; i < len(docs); i += embedBatchSize {
		end := i + embedBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[i:end]
		texts := make([]string, len(batch))
		for j := range batch {
			texts[j] = batch[j].Text
		}
		vecs, err := s.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed documents: %w", err)
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(vecs), len(texts))
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// clearSQLite removes the whole index directory, nested structure included.
// A location that does not exist is a no-op.
func clearSQLite(dir string) error {
	return os.RemoveAll(dir)
}
