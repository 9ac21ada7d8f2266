package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/embeddings"

	"github.com/docsage/docsage/internal/models"
	"github.com/docsage/docsage/internal/types"
)

// Manager owns index handles for the lifetime of the process. Handles are
// cached per location so queries do not reopen the index every time, and
// the cache entry is invalidated when the location is cleared. For the
// sqlite backend a location is the index directory; for pgvector it is the
// table name.
type Manager struct {
	backend    string
	connString string
	vectorDim  int

	mu      sync.Mutex
	handles map[string]types.VectorIndex
}

type ManagerConfig struct {
	Backend    string // sqlite or pgvector
	ConnString string // pgvector only
	VectorDim  int    // pgvector only
}

func NewManager(config ManagerConfig) *Manager {
	if config.Backend == "" {
		config.Backend = "sqlite"
	}
	return &Manager{
		backend:    config.Backend,
		connString: config.ConnString,
		vectorDim:  config.VectorDim,
		handles:    make(map[string]types.VectorIndex),
	}
}

// Load opens the index at location, creating an empty one when nothing is
// persisted there yet. Repeated loads of the same location return the
// cached handle.
func (m *Manager) Load(ctx context.Context, location string, embedder embeddings.Embedder) (types.VectorIndex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(ctx, location, embedder)
}

func (m *Manager) loadLocked(ctx context.Context, location string, embedder embeddings.Embedder) (types.VectorIndex, error) {
	if handle, ok := m.handles[location]; ok {
		return handle, nil
	}

	var handle types.VectorIndex
	var err error
	switch m.backend {
	case "sqlite":
		handle, err = OpenSQLite(location, embedder)
	case "pgvector":
		handle, err = OpenPGVector(ctx, PGVectorConfig{
			ConnString: m.connString,
			TableName:  location,
			VectorDim:  m.vectorDim,
		}, embedder)
	default:
		err = fmt.Errorf("unknown index backend %q", m.backend)
	}
	if err != nil {
		return nil, err
	}

	m.handles[location] = handle
	return handle, nil
}

// Upsert embeds and stores chunks keyed by their content-derived ids.
// An empty chunk list is a no-op that still returns a valid handle.
func (m *Manager) Upsert(ctx context.Context, chunks []models.DocumentChunk, embedder embeddings.Embedder, location string) (types.VectorIndex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	handle, err := m.loadLocked(ctx, location, embedder)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return handle, nil
	}

	docs := make([]types.IndexDocument, len(chunks))
	ids := make([]string, len(chunks))
	for i, chunk := range chunks {
		metadata := make(map[string]interface{}, len(chunk.Metadata)+1)
		for k, v := range chunk.Metadata {
			metadata[k] = v
		}
		metadata["id"] = chunk.ID

		docs[i] = types.IndexDocument{Text: chunk.Text, Metadata: metadata}
		ids[i] = chunk.ID
	}

	if err := handle.Add(ctx, docs, ids); err != nil {
		return nil, err
	}
	return handle, nil
}

// Clear deletes everything persisted at location and invalidates any cached
// handle. Clearing a location that does not exist is a no-op.
func (m *Manager) Clear(ctx context.Context, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if handle, ok := m.handles[location]; ok {
		handle.Close()
		delete(m.handles, location)
	}

	switch m.backend {
	case "sqlite":
		return clearSQLite(location)
	case "pgvector":
		return clearPGVector(ctx, m.connString, location)
	default:
		return fmt.Errorf("unknown index backend %q", m.backend)
	}
}

// Close releases every cached handle.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for location, handle := range m.handles {
		handle.Close()
		delete(m.handles, location)
	}
}
