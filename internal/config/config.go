package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`
}

type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider,omitempty"`
	Providers       map[string]ProviderConfig `yaml:"providers,omitempty"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

type EmbeddingConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

type RetrievalConfig struct {
	VectorStoreURL string `yaml:"vector_store_url,omitempty"`
	Collection     string `yaml:"collection,omitempty"`
	TopK           int    `yaml:"top_k,omitempty"`
}

type EvaluationConfig struct {
	Dataset      string        `yaml:"dataset,omitempty"`       // ground-truth QnA JSON path
	LogDir       string        `yaml:"log_dir,omitempty"`       // eval log directory
	Workers      int           `yaml:"workers,omitempty"`       // worker pool size
	Limit        int           `yaml:"limit,omitempty"`         // max entries per run, 0 = all
	JudgeTimeout time.Duration `yaml:"judge_timeout,omitempty"` // per-attempt judge timeout
}

type StorageConfig struct {
	Type string `yaml:"type,omitempty"` // "sqlite" or "memory"
	Path string `yaml:"path,omitempty"` // SQLite file path
}

type ServerConfig struct {
	Addr        string   `yaml:"addr,omitempty"`         // listen address
	APIKey      string   `yaml:"api_key,omitempty"`      // X-API-Key the API requires
	DisableAuth bool     `yaml:"disable_auth,omitempty"` // serve without a key
	CORSOrigins []string `yaml:"cors_origins,omitempty"` // allowed origins, "*" for any
}

func Load(path string) (*Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LLM.Providers == nil {
		cfg.LLM.Providers = make(map[string]ProviderConfig)
	}
	if strings.TrimSpace(cfg.LLM.DefaultProvider) == "" {
		cfg.LLM.DefaultProvider = "claude"
	}
	if strings.TrimSpace(cfg.Retrieval.Collection) == "" {
		cfg.Retrieval.Collection = "minecraft_wiki"
	}
	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = 5
	}
	if strings.TrimSpace(cfg.Evaluation.Dataset) == "" {
		cfg.Evaluation.Dataset = "data/ground_truth_qna.json"
	}
	if strings.TrimSpace(cfg.Evaluation.LogDir) == "" {
		cfg.Evaluation.LogDir = "data"
	}
	if cfg.Evaluation.Workers <= 0 {
		cfg.Evaluation.Workers = 4
	}
	if cfg.Evaluation.JudgeTimeout <= 0 {
		cfg.Evaluation.JudgeTimeout = 15 * time.Second
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = ":8080"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" {
		p := cfg.LLM.Providers["claude"]
		p.APIKey = v
		cfg.LLM.Providers["claude"] = p
	} else if v := strings.TrimSpace(os.Getenv("ANTHROPIC_AUTH_TOKEN")); v != "" {
		p := cfg.LLM.Providers["claude"]
		p.APIKey = v
		cfg.LLM.Providers["claude"] = p
	}

	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		p := cfg.LLM.Providers["openai"]
		p.APIKey = v
		cfg.LLM.Providers["openai"] = p

		if cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey = v
		}
	}

	if v := strings.TrimSpace(os.Getenv("RAGCHECK_API_KEY")); v != "" {
		cfg.Server.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("RAGCHECK_DISABLE_AUTH")); strings.EqualFold(v, "true") {
		cfg.Server.DisableAuth = true
	}
	if v := strings.TrimSpace(os.Getenv("RAGCHECK_CORS_ORIGINS")); v != "" {
		cfg.Server.CORSOrigins = nil
		for _, part := range strings.Split(v, ",") {
			if origin := strings.TrimSpace(part); origin != "" {
				cfg.Server.CORSOrigins = append(cfg.Server.CORSOrigins, origin)
			}
		}
	}
}

// LogPath returns the eval log file for an evaluation type, e.g.
// data/retrieval_results.json.
func (c *Config) LogPath(evalType string) string {
	dir := "data"
	if c != nil && strings.TrimSpace(c.Evaluation.LogDir) != "" {
		dir = c.Evaluation.LogDir
	}
	return strings.TrimRight(dir, "/") + "/" + evalType + "_results.json"
}
