package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CorpusConfig locates the question bank.
type CorpusConfig struct {
	Path string `yaml:"path"`
}

// OllamaEmbedderConfig holds connection details for the Ollama embedder.
type OllamaEmbedderConfig struct {
	Host        string `yaml:"host"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
// Dimension pins the expected vector dimensionality for remote models so a
// persisted index built with a different model fails fast on load; 0 lets
// the dimension be learned from the first embedding.
type EmbedderConfig struct {
	Type      string                `yaml:"type"`
	Dimension int                   `yaml:"dimension"`
	Ollama    *OllamaEmbedderConfig `yaml:"ollama,omitempty"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// QdrantConfig points at an optional Qdrant collection the indexer mirrors
// built vectors into.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// IndexConfig locates the persisted index artifact.
type IndexConfig struct {
	Dir    string        `yaml:"dir"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// RetrievalConfig tunes the retriever.
type RetrievalConfig struct {
	TopK         int     `yaml:"top_k"`
	Threshold    float64 `yaml:"threshold"`
	CacheTTLSecs int     `yaml:"cache_ttl_secs"`
}

// GenerationConfig configures the Ollama generation backend.
type GenerationConfig struct {
	Host        string  `yaml:"host"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// LoggingConfig configures the application logger.
type LoggingConfig struct {
	FilePath   string `yaml:"file_path"`
	Production bool   `yaml:"production"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Corpus     CorpusConfig     `yaml:"corpus"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Index      IndexConfig      `yaml:"index"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Generation GenerationConfig `yaml:"generation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/examqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/examqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "examqa", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Corpus:   CorpusConfig{Path: "data/past_questions.json"},
		Embedder: EmbedderConfig{Type: "tfidf"},
		Index:    IndexConfig{Dir: "data/index"},
		Retrieval: RetrievalConfig{
			TopK:         3,
			Threshold:    0.3,
			CacheTTLSecs: 300,
		},
		Generation: GenerationConfig{
			Model:       "llama3",
			Temperature: 0.7,
			MaxTokens:   512,
			TimeoutSecs: 300,
		},
		Logging: LoggingConfig{FilePath: "logs/examqa.log"},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Corpus.Path == "" {
		cfg.Corpus.Path = "data/past_questions.json"
	}
	if cfg.Index.Dir == "" {
		cfg.Index.Dir = "data/index"
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.CacheTTLSecs == 0 {
		cfg.Retrieval.CacheTTLSecs = 300
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "llama3"
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 512
	}
	if cfg.Generation.TimeoutSecs == 0 {
		cfg.Generation.TimeoutSecs = 300
	}
	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = "logs/examqa.log"
	}
	if cfg.Embedder.Type == "ollama" && cfg.Embedder.Ollama == nil {
		cfg.Embedder.Ollama = &OllamaEmbedderConfig{}
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
}
