package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgPkg "github.com/docsage/docsage/pkg/config"
	"github.com/docsage/docsage/server"
)

func testConfig(t *testing.T) *cfgPkg.Config {
	t.Helper()

	dir := t.TempDir()
	var config cfgPkg.Config
	config.Embedding.Provider = "local"
	config.Embedding.LocalModel = "nomic-embed-text"
	config.Embedding.OllamaBaseURL = "http://localhost:11434"
	config.Generation.GroqModel = "llama-3.3-70b-versatile"
	config.Generation.Temperature = 0.2
	config.Generation.MaxTokens = 2000
	config.Chunking.ChunkSize = 500
	config.Chunking.ChunkOverlap = 50
	config.Retrieval.TopK = 5
	config.Retrieval.ScoreThreshold = 0.2
	config.Storage.Backend = "sqlite"
	config.Storage.IndexDir = filepath.Join(dir, "vectordb")
	config.Storage.UploadDir = filepath.Join(dir, "uploads")
	config.Server.Addr = ":0"
	config.Keys.Groq = "test-groq-key"
	return &config
}

func TestServer_Health(t *testing.T) {
	srv, err := server.New(context.Background(), testConfig(t))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_Clear(t *testing.T) {
	srv, err := server.New(context.Background(), testConfig(t))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/clear", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	getResp, err := http.Get(ts.URL + "/clear")
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, getResp.StatusCode)
}

func TestServer_UploadRejectsEmptyForm(t *testing.T) {
	srv, err := server.New(context.Background(), testConfig(t))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/upload", "multipart/form-data; boundary=x", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
