package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/websocket"
	"github.com/tmc/langchaingo/embeddings"

	"github.com/docsage/docsage/internal/types"
	"github.com/docsage/docsage/pkg/chunker"
	"github.com/docsage/docsage/pkg/citations"
	cfgPkg "github.com/docsage/docsage/pkg/config"
	"github.com/docsage/docsage/pkg/ingest"
	"github.com/docsage/docsage/pkg/llm"
	"github.com/docsage/docsage/pkg/pipeline"
	"github.com/docsage/docsage/pkg/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Message is the websocket frame sent to clients.
type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

// clientMessage is the websocket frame received from clients. Image paths
// refer to previously uploaded files under the upload directory.
type clientMessage struct {
	Type       string   `json:"type"`
	Content    string   `json:"content"`
	Multimodal bool     `json:"multimodal,omitempty"`
	Images     []string `json:"images,omitempty"`
}

// Server exposes the pipeline over HTTP: multipart uploads feed the index,
// a websocket endpoint answers questions, and a clear endpoint wipes the
// persisted index.
type Server struct {
	config       *cfgPkg.Config
	orchestrator *pipeline.Orchestrator
	manager      *store.Manager
	embedder     embeddings.Embedder
	chunker      *chunker.Chunker
	location     string
}

func New(ctx context.Context, config *cfgPkg.Config) (*Server, error) {
	embedder, err := llm.NewEmbedder(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %v", err)
	}

	textGen, err := llm.NewGroqGenerator(config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generation backend: %v", err)
	}

	var multimodalGen types.Generator
	if config.Keys.Gemini != "" {
		gemini, err := llm.NewGeminiGenerator(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize multimodal backend: %v", err)
		}
		multimodalGen = gemini
	}

	ch, err := chunker.NewWithConfig(chunker.Config{
		ChunkSize:    config.Chunking.ChunkSize,
		ChunkOverlap: config.Chunking.ChunkOverlap,
	})
	if err != nil {
		return nil, err
	}

	location := config.Storage.IndexDir
	if config.Storage.Backend == "pgvector" {
		location = config.Storage.TableName
	}

	return &Server{
		config:       config,
		orchestrator: pipeline.New(textGen, multimodalGen),
		manager: store.NewManager(store.ManagerConfig{
			Backend:    config.Storage.Backend,
			ConnString: config.Storage.URL,
			VectorDim:  config.Storage.VectorDim,
		}),
		embedder: embedder,
		chunker:  ch,
		location: location,
	}, nil
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/clear", s.handleClear)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

func (s *Server) ListenAndServe() error {
	defer s.manager.Close()

	log.Printf("Starting server on %s", s.config.Server.Addr)
	return http.ListenAndServe(s.config.Server.Addr, s.Routes())
}

// handleUpload saves the multipart files into the upload directory and
// ingests them. Per-file extraction failures come back as warnings, not as
// a failed request.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		http.Error(w, fmt.Sprintf("invalid multipart form: %v", err), http.StatusBadRequest)
		return
	}

	if err := os.MkdirAll(s.config.Storage.UploadDir, 0o755); err != nil {
		http.Error(w, fmt.Sprintf("failed to create upload dir: %v", err), http.StatusInternalServerError)
		return
	}

	var saved []string
	for _, header := range r.MultipartForm.File["files"] {
		path, err := s.saveUpload(header)
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to save %s: %v", header.Filename, err), http.StatusInternalServerError)
			return
		}
		saved = append(saved, path)
	}
	if len(saved) == 0 {
		http.Error(w, "no files uploaded", http.StatusBadRequest)
		return
	}

	report, err := pipeline.Ingest(r.Context(), saved, s.chunker, s.manager, s.embedder, s.location)
	if err != nil {
		http.Error(w, fmt.Sprintf("ingestion failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"files":    report.Files,
		"chunks":   report.ChunksAdded,
		"warnings": report.Warnings,
	})
}

func (s *Server) saveUpload(header *multipart.FileHeader) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	path := filepath.Join(s.config.Storage.UploadDir, filepath.Base(header.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.manager.Clear(r.Context(), s.location); err != nil {
		http.Error(w, fmt.Sprintf("failed to clear index: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "cleared"})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendMessage(conn, "error", fmt.Sprintf("invalid message: %v", err))
			continue
		}

		s.handleQuery(conn, msg)
	}
}

func (s *Server) handleQuery(conn *websocket.Conn, msg clientMessage) {
	query := msg.Content
	if query == "" {
		s.sendMessage(conn, "error", "query must not be empty")
		return
	}

	ctx := context.Background()
	index, err := s.manager.Load(ctx, s.location, s.embedder)
	if err != nil {
		s.sendMessage(conn, "error", fmt.Sprintf("failed to open index: %v", err))
		return
	}

	answer, err := s.orchestrator.Answer(ctx, query, index, pipeline.Options{
		TopK:           s.config.Retrieval.TopK,
		ScoreThreshold: s.config.Retrieval.ScoreThreshold,
		UseMultimodal:  msg.Multimodal,
		Images:         s.resolveImages(msg.Images),
	})
	if err != nil {
		s.sendMessage(conn, "error", fmt.Sprintf("Error: %v", err))
		return
	}

	for _, warning := range answer.Warnings {
		s.sendMessage(conn, "warning", warning)
	}

	sources := make([]string, len(answer.Sources))
	for i, source := range answer.Sources {
		sources[i] = citations.Format(i+1, source, citations.DefaultPreviewLen)
	}

	if err := conn.WriteJSON(Message{
		Type:    "response",
		Content: answer.AnswerText,
		Data: map[string]interface{}{
			"used_model": answer.UsedModel,
			"sources":    sources,
		},
	}); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

// resolveImages keeps only image files that exist under the upload dir.
func (s *Server) resolveImages(names []string) []string {
	var images []string
	for _, name := range names {
		path := filepath.Join(s.config.Storage.UploadDir, filepath.Base(name))
		if !ingest.IsImage(path) {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		images = append(images, path)
	}
	return images
}

func (s *Server) sendMessage(conn *websocket.Conn, msgType string, content string) {
	msg := Message{
		Type:    msgType,
		Content: content,
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}
