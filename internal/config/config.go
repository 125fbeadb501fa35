package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Project struct {
		Root      string   `yaml:"root"`
		Languages []string `yaml:"languages"`
	} `yaml:"project"`
	Oracle struct {
		Provider string `yaml:"provider"`
		Model    string `yaml:"model"`
		APIKey   string `yaml:"api_key"`
		BaseURL  string `yaml:"base_url"`
	} `yaml:"oracle"`
	Retrieval struct {
		RoundLimit   int    `yaml:"round_limit"`
		ProxyRetries int    `yaml:"proxy_retries"`
		OutputDir    string `yaml:"output_dir"`
	} `yaml:"retrieval"`
	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, err
	}

	// 3. Override with Environment Variables if present
	if apiKey := os.Getenv("BUGSCOPE_API_KEY"); apiKey != "" {
		cfg.Oracle.APIKey = apiKey
	}
	if provider := os.Getenv("BUGSCOPE_ORACLE_PROVIDER"); provider != "" {
		cfg.Oracle.Provider = provider
	}
	if model := os.Getenv("BUGSCOPE_ORACLE_MODEL"); model != "" {
		cfg.Oracle.Model = model
	}
	if baseURL := os.Getenv("BUGSCOPE_ORACLE_BASE_URL"); baseURL != "" {
		cfg.Oracle.BaseURL = baseURL
	}
	if limit := os.Getenv("BUGSCOPE_ROUND_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			cfg.Retrieval.RoundLimit = n
		}
	}

	if len(cfg.Project.Languages) == 0 {
		cfg.Project.Languages = []string{"go", "python"}
	}

	return &cfg, nil
}
