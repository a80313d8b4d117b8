package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// RetrieverConfig configures how many rules are retrieved per query.
type RetrieverConfig struct {
	TopK int `yaml:"top_k"`
}

// ModelConfig configures the chat-completion service that produces verdicts.
// The key itself lives in the environment variable named by APIKeyEnv and is
// resolved at wiring time, never stored in the file.
type ModelConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	MaxTokens   int    `yaml:"max_tokens"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// PreCheckConfig toggles the heuristic short-circuit layer.
type PreCheckConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
}

// BatchConfig bounds batch classification parallelism.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	RulesPath string          `yaml:"rules_path"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Retriever RetrieverConfig `yaml:"retriever"`
	Model     ModelConfig     `yaml:"model"`
	PreCheck  PreCheckConfig  `yaml:"precheck"`
	Batch     BatchConfig     `yaml:"batch"`
}

// PreCheckEnabled reports the pre-check toggle, defaulting to on.
func (c *AppConfig) PreCheckEnabled() bool {
	if c.PreCheck.Enabled == nil {
		return true
	}
	return *c.PreCheck.Enabled
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

// LoadDefault tries ./config.yaml first, then ~/.config/compliance/config.yaml.
// If neither exists, it writes defaults to ~/.config/compliance/config.yaml
// and returns them.
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
	return filepath.Join(home, ".config", "compliance", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		RulesPath: "compliance_rules.yaml",
		Embedder:  EmbedderConfig{Type: "tfidf"},
		Retriever: RetrieverConfig{TopK: 3},
		Model: ModelConfig{
			BaseURL:     "https://dashscope.aliyuncs.com/compatible-mode/v1",
			APIKeyEnv:   "DASHSCOPE_API_KEY",
			Model:       "qwen-max",
			MaxTokens:   500,
			TimeoutSecs: 60,
		},
		Batch: BatchConfig{Concurrency: 4},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.RulesPath == "" {
		cfg.RulesPath = "compliance_rules.yaml"
	}
	if cfg.Retriever.TopK == 0 {
		cfg.Retriever.TopK = 3
	}
	if cfg.Model.BaseURL == "" {
		cfg.Model.BaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	}
	if cfg.Model.APIKeyEnv == "" {
		cfg.Model.APIKeyEnv = "DASHSCOPE_API_KEY"
	}
	if cfg.Model.Model == "" {
		cfg.Model.Model = "qwen-max"
	}
	if cfg.Model.MaxTokens == 0 {
		cfg.Model.MaxTokens = 500
	}
	if cfg.Model.TimeoutSecs == 0 {
		cfg.Model.TimeoutSecs = 60
	}
	if cfg.Batch.Concurrency == 0 {
		cfg.Batch.Concurrency = 4
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
}
