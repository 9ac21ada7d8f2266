package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Embedding struct {
		Provider      string `yaml:"provider"` // local, openai or gemini
		LocalModel    string `yaml:"local_model"`
		OpenAIModel   string `yaml:"openai_model"`
		GeminiModel   string `yaml:"gemini_model"`
		OllamaBaseURL string `yaml:"ollama_base_url"`
	} `yaml:"embedding"`

	Generation struct {
		GroqModel   string  `yaml:"groq_model"`
		GeminiModel string  `yaml:"gemini_model"`
		Temperature float64 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"generation"`

	Chunking struct {
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
	} `yaml:"chunking"`

	Retrieval struct {
		TopK           int     `yaml:"top_k"`
		ScoreThreshold float64 `yaml:"score_threshold"`
	} `yaml:"retrieval"`

	Storage struct {
		Backend   string `yaml:"backend"` // sqlite or pgvector
		IndexDir  string `yaml:"index_dir"`
		UploadDir string `yaml:"upload_dir"`
		URL       string `yaml:"url"`        // postgres connection string
		TableName string `yaml:"table_name"` // pgvector table
		VectorDim int    `yaml:"vector_dim"`
	} `yaml:"storage"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	// API keys come from the environment only, never from the yaml file.
	Keys struct {
		Groq   string `yaml:"-"`
		Gemini string `yaml:"-"`
		OpenAI string `yaml:"-"`
	} `yaml:"-"`
}

func LoadConfig(path string) (*Config, error) {
	// A .env next to the binary is loaded first; a missing file is fine.
	_ = godotenv.Load()

	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/docsage/config.yaml"),
			"/etc/docsage/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Embedding.Provider == "" {
		config.Embedding.Provider = "local"
	}
	if config.Embedding.LocalModel == "" {
		config.Embedding.LocalModel = "nomic-embed-text"
	}
	if config.Embedding.OpenAIModel == "" {
		config.Embedding.OpenAIModel = "text-embedding-3-small"
	}
	if config.Embedding.GeminiModel == "" {
		config.Embedding.GeminiModel = "embedding-001"
	}
	if config.Embedding.OllamaBaseURL == "" {
		config.Embedding.OllamaBaseURL = "http://localhost:11434"
	}

	if config.Generation.GroqModel == "" {
		config.Generation.GroqModel = "llama-3.3-70b-versatile"
	}
	if config.Generation.GeminiModel == "" {
		config.Generation.GeminiModel = "gemini-1.5-flash"
	}
	if config.Generation.Temperature == 0 {
		config.Generation.Temperature = 0.2
	}
	if config.Generation.MaxTokens == 0 {
		config.Generation.MaxTokens = 2000
	}

	if config.Chunking.ChunkSize == 0 {
		config.Chunking.ChunkSize = 500
	}
	if config.Chunking.ChunkOverlap == 0 {
		config.Chunking.ChunkOverlap = 50
	}

	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = 5
	}
	if config.Retrieval.ScoreThreshold == 0 {
		config.Retrieval.ScoreThreshold = 0.2
	}

	if config.Storage.Backend == "" {
		config.Storage.Backend = "sqlite"
	}
	if config.Storage.IndexDir == "" {
		config.Storage.IndexDir = "data/vectordb"
	}
	if config.Storage.UploadDir == "" {
		config.Storage.UploadDir = "data/uploads"
	}
	if config.Storage.TableName == "" {
		config.Storage.TableName = "chunks"
	}
	if config.Storage.VectorDim == 0 {
		config.Storage.VectorDim = 768
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
}

func mergeWithEnv(config *Config) {
	if provider := os.Getenv("EMBEDDING_PROVIDER"); provider != "" {
		config.Embedding.Provider = provider
	}
	if model := os.Getenv("LOCAL_EMBEDDING_MODEL"); model != "" {
		config.Embedding.LocalModel = model
	}
	if model := os.Getenv("OPENAI_EMBEDDING_MODEL"); model != "" {
		config.Embedding.OpenAIModel = model
	}
	if model := os.Getenv("GEMINI_EMBEDDING_MODEL"); model != "" {
		config.Embedding.GeminiModel = model
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.Embedding.OllamaBaseURL = baseURL
	}
	if model := os.Getenv("GROQ_MODEL"); model != "" {
		config.Generation.GroqModel = model
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		config.Generation.GeminiModel = model
	}
	if size := os.Getenv("CHUNK_SIZE_TOKENS"); size != "" {
		if v, err := strconv.Atoi(size); err == nil {
			config.Chunking.ChunkSize = v
		}
	}
	if overlap := os.Getenv("CHUNK_OVERLAP_TOKENS"); overlap != "" {
		if v, err := strconv.Atoi(overlap); err == nil {
			config.Chunking.ChunkOverlap = v
		}
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Storage.URL = dbURL
	}
	if dir := os.Getenv("INDEX_DIR"); dir != "" {
		config.Storage.IndexDir = dir
	}
	if dir := os.Getenv("UPLOAD_DIR"); dir != "" {
		config.Storage.UploadDir = dir
	}
	if topK := os.Getenv("RETRIEVER_TOP_K"); topK != "" {
		if v, err := strconv.Atoi(topK); err == nil {
			config.Retrieval.TopK = v
		}
	}
	if threshold := os.Getenv("RETRIEVAL_SCORE_THRESHOLD"); threshold != "" {
		if v, err := strconv.ParseFloat(threshold, 64); err == nil {
			config.Retrieval.ScoreThreshold = v
		}
	}

	config.Keys.Groq = os.Getenv("GROQ_API_KEY")
	config.Keys.Gemini = os.Getenv("GEMINI_API_KEY")
	config.Keys.OpenAI = os.Getenv("OPENAI_API_KEY")
}
