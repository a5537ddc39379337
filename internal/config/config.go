package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete sidecar configuration.
// It mirrors the schema described in SPEC_FULL.md Section 2/AMBIENT STACK.
type Config struct {
	Version      int                `yaml:"version" json:"version"`
	Segmenter    SegmenterConfig    `yaml:"segmenter" json:"segmenter"`
	Classify     ClassifyConfig     `yaml:"classify" json:"classify"`
	Batch        BatchConfig        `yaml:"batch" json:"batch"`
	Query        QueryConfig        `yaml:"query" json:"query"`
	SearchEngine SearchEngineConfig `yaml:"search_engine" json:"search_engine"`
	Server       ServerConfig       `yaml:"server" json:"server"`
	Store        StoreConfig        `yaml:"store" json:"store"`
}

// SegmenterConfig configures the Thai segmentation backend (C1).
type SegmenterConfig struct {
	// Backend selects the primary segmentation engine.
	// One of "newmm", "attacut", "deepcut", "fallback_char".
	Backend string `yaml:"backend" json:"backend"`

	// FallbackChain lists backends to try, in order, after Backend fails.
	// "fallback_char" is appended automatically if missing.
	FallbackChain []string `yaml:"fallback_chain" json:"fallback_chain"`

	// DockerEndpoint is the base URL of the dockerized segmentation
	// service (e.g. http://localhost:8841). Empty points the docker-backed
	// backends at http://127.0.0.1:8000; when that is unreachable,
	// segmentation ends at fallback_char through the fallback chain.
	DockerEndpoint string `yaml:"docker_endpoint" json:"docker_endpoint"`

	// DockerImage is the image tag to run when the sidecar manages the
	// container lifecycle itself (docker.go).
	DockerImage string `yaml:"docker_image" json:"docker_image"`

	// RequestTimeout bounds a single segmentation HTTP call.
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`

	// DictionaryPath is the custom dictionary file watched for hot reload.
	DictionaryPath string `yaml:"dictionary_path" json:"dictionary_path"`

	// CompoundMinLength is the minimum rune length of a Thai token before
	// it is considered a compound-split candidate.
	CompoundMinLength int `yaml:"compound_min_length" json:"compound_min_length"`

	// CandidateCacheSize bounds the compound-candidate LRU cache.
	CandidateCacheSize int `yaml:"candidate_cache_size" json:"candidate_cache_size"`
}

// ClassifyConfig configures content classification (C2).
type ClassifyConfig struct {
	// ThaiThreshold is the fraction (0.0-1.0) of Thai graphemes required
	// for a string to be classified ThaiText.
	ThaiThreshold float64 `yaml:"thai_threshold" json:"thai_threshold"`
}

// BatchConfig configures the bounded-concurrency batch engine (C6).
type BatchConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent" json:"max_concurrent"`
	ChunkSize     int           `yaml:"chunk_size" json:"chunk_size"`
	DedupeCacheSize int         `yaml:"dedupe_cache_size" json:"dedupe_cache_size"`
	RetryMaxAttempts int        `yaml:"retry_max_attempts" json:"retry_max_attempts"`
	RetryInitialDelay time.Duration `yaml:"retry_initial_delay" json:"retry_initial_delay"`
	RetryMultiplier float64     `yaml:"retry_multiplier" json:"retry_multiplier"`
}

// QueryConfig configures the query processor cache (C7).
type QueryConfig struct {
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// SearchEngineConfig configures the outbound Meilisearch-shaped client.
type SearchEngineConfig struct {
	BaseURL                  string        `yaml:"base_url" json:"base_url"`
	APIKey                   string        `yaml:"api_key" json:"api_key"`
	Index                    string        `yaml:"index" json:"index"`
	Timeout                  time.Duration `yaml:"timeout" json:"timeout"`
	CircuitBreakerThreshold  int           `yaml:"circuit_breaker_threshold" json:"circuit_breaker_threshold"`
	CircuitBreakerResetAfter time.Duration `yaml:"circuit_breaker_reset_after" json:"circuit_breaker_reset_after"`
}

// ServerConfig configures the inbound HTTP API.
type ServerConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	LogLevel string `yaml:"log_level" json:"log_level"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

// StoreConfig configures the SQLite-backed persistence layer.
type StoreConfig struct {
	// Path is the SQLite database file. Defaults under ~/.thaisidecar/store.db.
	Path string `yaml:"path" json:"path"`
}

// defaultFallbackChain is always appended with fallback_char if missing.
var defaultFallbackChain = []string{"newmm", "attacut", "deepcut"}

// NewConfig creates a Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Segmenter: SegmenterConfig{
			Backend:            "newmm",
			FallbackChain:      append([]string{}, defaultFallbackChain...),
			DockerEndpoint:     "",
			DockerImage:        "thaisidecar/segmenter-newmm:latest",
			RequestTimeout:     5 * time.Second,
			DictionaryPath:     defaultDictionaryPath(),
			CompoundMinLength:  6,
			CandidateCacheSize: 2048,
		},
		Classify: ClassifyConfig{
			ThaiThreshold: 0.5,
		},
		Batch: BatchConfig{
			MaxConcurrent:     8,
			ChunkSize:         100,
			DedupeCacheSize:   4096,
			RetryMaxAttempts:  3,
			RetryInitialDelay: 1 * time.Second,
			RetryMultiplier:   2.0,
		},
		Query: QueryConfig{
			CacheSize: 1024,
		},
		SearchEngine: SearchEngineConfig{
			BaseURL:                  "http://localhost:7700",
			APIKey:                   "",
			Index:                    "documents",
			Timeout:                  10 * time.Second,
			CircuitBreakerThreshold:  5,
			CircuitBreakerResetAfter: 30 * time.Second,
		},
		Server: ServerConfig{
			Host:     "127.0.0.1",
			Port:     8790,
			LogLevel: "info",
			Debug:    false,
		},
		Store: StoreConfig{
			Path: defaultStorePath(),
		},
	}
}

func defaultDictionaryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".thaisidecar", "dictionary.txt")
	}
	return filepath.Join(home, ".thaisidecar", "dictionary.txt")
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".thaisidecar", "store.db")
	}
	return filepath.Join(home, ".thaisidecar", "store.db")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/thaisidecar/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/thaisidecar/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "thaisidecar", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "thaisidecar", "config.yaml")
	}
	return filepath.Join(home, ".config", "thaisidecar", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist (that's OK).
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// Load loads configuration from the specified directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/thaisidecar/config.yaml)
//  3. Project config (.thaisidecar.yaml in the given directory)
//  4. Environment variables (THAI_TOKENIZER_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .thaisidecar.yaml or .thaisidecar.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".thaisidecar.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".thaisidecar.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Segmenter.Backend != "" {
		c.Segmenter.Backend = other.Segmenter.Backend
	}
	if len(other.Segmenter.FallbackChain) > 0 {
		c.Segmenter.FallbackChain = other.Segmenter.FallbackChain
	}
	if other.Segmenter.DockerEndpoint != "" {
		c.Segmenter.DockerEndpoint = other.Segmenter.DockerEndpoint
	}
	if other.Segmenter.DockerImage != "" {
		c.Segmenter.DockerImage = other.Segmenter.DockerImage
	}
	if other.Segmenter.RequestTimeout != 0 {
		c.Segmenter.RequestTimeout = other.Segmenter.RequestTimeout
	}
	if other.Segmenter.DictionaryPath != "" {
		c.Segmenter.DictionaryPath = other.Segmenter.DictionaryPath
	}
	if other.Segmenter.CompoundMinLength != 0 {
		c.Segmenter.CompoundMinLength = other.Segmenter.CompoundMinLength
	}
	if other.Segmenter.CandidateCacheSize != 0 {
		c.Segmenter.CandidateCacheSize = other.Segmenter.CandidateCacheSize
	}

	if other.Classify.ThaiThreshold != 0 {
		c.Classify.ThaiThreshold = other.Classify.ThaiThreshold
	}

	if other.Batch.MaxConcurrent != 0 {
		c.Batch.MaxConcurrent = other.Batch.MaxConcurrent
	}
	if other.Batch.ChunkSize != 0 {
		c.Batch.ChunkSize = other.Batch.ChunkSize
	}
	if other.Batch.DedupeCacheSize != 0 {
		c.Batch.DedupeCacheSize = other.Batch.DedupeCacheSize
	}
	if other.Batch.RetryMaxAttempts != 0 {
		c.Batch.RetryMaxAttempts = other.Batch.RetryMaxAttempts
	}
	if other.Batch.RetryInitialDelay != 0 {
		c.Batch.RetryInitialDelay = other.Batch.RetryInitialDelay
	}
	if other.Batch.RetryMultiplier != 0 {
		c.Batch.RetryMultiplier = other.Batch.RetryMultiplier
	}

	if other.Query.CacheSize != 0 {
		c.Query.CacheSize = other.Query.CacheSize
	}

	if other.SearchEngine.BaseURL != "" {
		c.SearchEngine.BaseURL = other.SearchEngine.BaseURL
	}
	if other.SearchEngine.APIKey != "" {
		c.SearchEngine.APIKey = other.SearchEngine.APIKey
	}
	if other.SearchEngine.Index != "" {
		c.SearchEngine.Index = other.SearchEngine.Index
	}
	if other.SearchEngine.Timeout != 0 {
		c.SearchEngine.Timeout = other.SearchEngine.Timeout
	}
	if other.SearchEngine.CircuitBreakerThreshold != 0 {
		c.SearchEngine.CircuitBreakerThreshold = other.SearchEngine.CircuitBreakerThreshold
	}
	if other.SearchEngine.CircuitBreakerResetAfter != 0 {
		c.SearchEngine.CircuitBreakerResetAfter = other.SearchEngine.CircuitBreakerResetAfter
	}

	if other.Server.Host != "" {
		c.Server.Host = other.Server.Host
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
	if other.Server.Debug {
		c.Server.Debug = other.Server.Debug
	}

	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}
}

// applyEnvOverrides applies THAI_TOKENIZER_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("THAI_TOKENIZER_SEGMENTER_BACKEND"); v != "" {
		c.Segmenter.Backend = v
	}
	if v := os.Getenv("THAI_TOKENIZER_SEGMENTER_DOCKER"); v != "" {
		c.Segmenter.DockerEndpoint = v
	}
	if v := os.Getenv("THAI_TOKENIZER_SEGMENTER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Segmenter.RequestTimeout = d
		}
	}
	if v := os.Getenv("THAI_TOKENIZER_DICTIONARY_PATH"); v != "" {
		c.Segmenter.DictionaryPath = v
	}

	if v := os.Getenv("THAI_TOKENIZER_CLASSIFY_THRESHOLD"); v != "" {
		if t, err := parseFloat64(v); err == nil && t >= 0 && t <= 1 {
			c.Classify.ThaiThreshold = t
		}
	}

	if v := os.Getenv("THAI_TOKENIZER_BATCH_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Batch.MaxConcurrent = n
		}
	}
	if v := os.Getenv("THAI_TOKENIZER_BATCH_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Batch.ChunkSize = n
		}
	}

	if v := os.Getenv("THAI_TOKENIZER_SEARCH_ENGINE_URL"); v != "" {
		c.SearchEngine.BaseURL = v
	}
	if v := os.Getenv("THAI_TOKENIZER_SEARCH_ENGINE_API_KEY"); v != "" {
		c.SearchEngine.APIKey = v
	}
	if v := os.Getenv("THAI_TOKENIZER_SEARCH_ENGINE_INDEX"); v != "" {
		c.SearchEngine.Index = v
	}

	if v := os.Getenv("THAI_TOKENIZER_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("THAI_TOKENIZER_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("THAI_TOKENIZER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("THAI_TOKENIZER_DEBUG"); v != "" {
		c.Server.Debug = strings.ToLower(v) == "true" || v == "1"
	}

	if v := os.Getenv("THAI_TOKENIZER_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
}

// parseFloat64 parses a string to float64, used for config parsing.
func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// FindProjectRoot finds the project root directory.
// It looks for a .git directory or .thaisidecar.yaml/.yml file by walking
// up the directory tree.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}

		if fileExists(filepath.Join(currentDir, ".thaisidecar.yaml")) ||
			fileExists(filepath.Join(currentDir, ".thaisidecar.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	validBackends := map[string]bool{"newmm": true, "attacut": true, "deepcut": true, "fallback_char": true}
	if !validBackends[c.Segmenter.Backend] {
		return fmt.Errorf("segmenter.backend must be one of newmm, attacut, deepcut, fallback_char, got %s", c.Segmenter.Backend)
	}

	if c.Classify.ThaiThreshold < 0 || c.Classify.ThaiThreshold > 1 {
		return fmt.Errorf("classify.thai_threshold must be between 0 and 1, got %f", c.Classify.ThaiThreshold)
	}

	if c.Batch.MaxConcurrent <= 0 {
		return fmt.Errorf("batch.max_concurrent must be positive, got %d", c.Batch.MaxConcurrent)
	}
	if c.Batch.ChunkSize <= 0 {
		return fmt.Errorf("batch.chunk_size must be positive, got %d", c.Batch.ChunkSize)
	}

	if c.SearchEngine.BaseURL == "" {
		return fmt.Errorf("search_engine.base_url must not be empty")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}
