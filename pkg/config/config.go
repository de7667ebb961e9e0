package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MaxPerKeyword is the largest page size the search endpoint accepts
const MaxPerKeyword = 30

// Config holds all configuration options for a fetch run
type Config struct {
	Unsplash  UnsplashConfig  `yaml:"unsplash" json:"unsplash"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	Download  DownloadConfig  `yaml:"download" json:"download"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry" json:"retry"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// UnsplashConfig holds API endpoint and credential settings
type UnsplashConfig struct {
	AccessKey     string `yaml:"access_key" json:"access_key"`
	APIURL        string `yaml:"api_url" json:"api_url"`
	AcceptVersion string `yaml:"accept_version" json:"accept_version"`
}

// SearchConfig holds what to search for and which image variant to keep
type SearchConfig struct {
	Keywords    []string `yaml:"keywords" json:"keywords"`
	PerKeyword  int      `yaml:"per_keyword" json:"per_keyword"`
	Orientation string   `yaml:"orientation" json:"orientation"`
	Quality     string   `yaml:"quality" json:"quality"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	Directory     string `yaml:"directory" json:"directory"`
	WriteManifest bool   `yaml:"write_manifest" json:"write_manifest"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	// Timeout of 0 leaves HTTP requests without a deadline
	Timeout            time.Duration `yaml:"timeout" json:"timeout"`
	ChunkSize          int           `yaml:"chunk_size" json:"chunk_size"`
	ConcurrentKeywords int           `yaml:"concurrent_keywords" json:"concurrent_keywords"`
}

// RateLimitConfig caps search requests per hour; 0 disables the limiter
type RateLimitConfig struct {
	RequestsPerHour int `yaml:"requests_per_hour" json:"requests_per_hour"`
}

// RetryConfig holds retry settings for search requests; MaxAttempts of 1 means no retry
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultKeywords is the keyword list used when none is configured
var DefaultKeywords = []string{
	"gourmet food photography",
	"plated dish top view",
	"home cooking flat lay",
	"healthy breakfast bowl",
	"chocolate cake slice closeup",
	"fresh artisan bread",
	"steak dinner plating",
	"vibrant fruit salad",
	"roasted vegetables dish",
	"cozy restaurant interior",
	"cafe ambiance",
	"chef cooking action",
	"fresh ingredients macro",
	"tempting dessert display",
	"ramen noodle bowl",
	"pasta carbonara plate",
}

// ValidQualities lists the image variants the API returns for each photo
var ValidQualities = []string{"raw", "full", "regular", "small", "thumb"}

// ValidOrientations lists the accepted orientation filters; empty means no filter
var ValidOrientations = []string{"landscape", "portrait", "squarish"}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	keywords := make([]string, len(DefaultKeywords))
	copy(keywords, DefaultKeywords)

	return &Config{
		Unsplash: UnsplashConfig{
			APIURL:        "https://api.unsplash.com",
			AcceptVersion: "v1",
		},
		Search: SearchConfig{
			Keywords:    keywords,
			PerKeyword:  5,
			Orientation: "landscape",
			Quality:     "regular",
		},
		Output: OutputConfig{
			Directory: "downloaded_food_images",
		},
		Download: DownloadConfig{
			Timeout:            0,
			ChunkSize:          1024,
			ConcurrentKeywords: 1,
		},
		RateLimit: RateLimitConfig{
			RequestsPerHour: 0,
		},
		Retry: RetryConfig{
			MaxAttempts: 1,
			BaseDelay:   time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if key := os.Getenv("IMGFETCH_ACCESS_KEY"); key != "" {
		c.Unsplash.AccessKey = key
	}
	if apiURL := os.Getenv("IMGFETCH_API_URL"); apiURL != "" {
		c.Unsplash.APIURL = apiURL
	}

	if keywords := os.Getenv("IMGFETCH_KEYWORDS"); keywords != "" {
		c.Search.Keywords = splitKeywords(keywords)
	}
	if err := envInt("IMGFETCH_PER_KEYWORD", &c.Search.PerKeyword); err != nil {
		return err
	}
	if orientation, ok := os.LookupEnv("IMGFETCH_ORIENTATION"); ok {
		c.Search.Orientation = orientation
	}
	if quality := os.Getenv("IMGFETCH_QUALITY"); quality != "" {
		c.Search.Quality = quality
	}

	if outputDir := os.Getenv("IMGFETCH_OUTPUT_DIR"); outputDir != "" {
		c.Output.Directory = outputDir
	}
	if manifest := os.Getenv("IMGFETCH_WRITE_MANIFEST"); manifest != "" {
		c.Output.WriteManifest = strings.ToLower(manifest) == "true"
	}

	if err := envInt("IMGFETCH_CONCURRENT_KEYWORDS", &c.Download.ConcurrentKeywords); err != nil {
		return err
	}
	if timeout := os.Getenv("IMGFETCH_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid IMGFETCH_TIMEOUT: %w", err)
		}
		c.Download.Timeout = d
	}

	if err := envInt("IMGFETCH_REQUESTS_PER_HOUR", &c.RateLimit.RequestsPerHour); err != nil {
		return err
	}
	if err := envInt("IMGFETCH_MAX_RETRIES", &c.Retry.MaxAttempts); err != nil {
		return err
	}

	if logLevel := os.Getenv("IMGFETCH_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("IMGFETCH_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return nil
}

// envInt stores the integer in name into dst when the variable is set.
// Range checks are left to Validate.
func envInt(name string, dst *int) error {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = val
	return nil
}

func splitKeywords(raw string) []string {
	var keywords []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"imgfetch.yaml",
		".imgfetch.yaml",
		".imgfetch.yml",
		filepath.Join(home, ".config", "imgfetch", "config.yaml"),
		filepath.Join(home, ".config", "imgfetch", "config.yml"),
		filepath.Join(home, ".imgfetch.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid.
// The access key is not checked here because it may still come from the credential store.
func (c *Config) Validate() error {
	var errs []error

	if c.Unsplash.APIURL == "" {
		errs = append(errs, errors.New("API URL is required"))
	}

	if len(c.Search.Keywords) == 0 {
		errs = append(errs, errors.New("at least one keyword is required"))
	}
	for i, k := range c.Search.Keywords {
		if strings.TrimSpace(k) == "" {
			errs = append(errs, fmt.Errorf("keyword %d is blank", i))
		}
	}
	if c.Search.PerKeyword <= 0 || c.Search.PerKeyword > MaxPerKeyword {
		errs = append(errs, fmt.Errorf("per keyword count must be between 1 and %d", MaxPerKeyword))
	}
	if c.Search.Orientation != "" && !contains(ValidOrientations, c.Search.Orientation) {
		errs = append(errs, fmt.Errorf("invalid orientation %q", c.Search.Orientation))
	}
	if !contains(ValidQualities, c.Search.Quality) {
		errs = append(errs, fmt.Errorf("invalid image quality %q", c.Search.Quality))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if c.Download.Timeout < 0 {
		errs = append(errs, errors.New("download timeout cannot be negative"))
	}
	if c.Download.ChunkSize <= 0 {
		errs = append(errs, errors.New("chunk size must be positive"))
	}
	if c.Download.ConcurrentKeywords <= 0 {
		errs = append(errs, errors.New("concurrent keywords must be positive"))
	}
	if c.Download.ConcurrentKeywords > 10 {
		errs = append(errs, errors.New("concurrent keywords should not exceed 10"))
	}

	if c.RateLimit.RequestsPerHour < 0 {
		errs = append(errs, errors.New("requests per hour cannot be negative"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("max attempts must be at least 1"))
	}
	if c.Retry.BaseDelay < 0 {
		errs = append(errs, errors.New("retry base delay cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Numeric flags present in flags are applied as given so Validate can reject them.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if key, ok := flags["access-key"].(string); ok && key != "" {
		c.Unsplash.AccessKey = key
	}
	if keywords, ok := flags["keywords"].([]string); ok && len(keywords) > 0 {
		c.Search.Keywords = keywords
	}
	if perKeyword, ok := flags["per-keyword"].(int); ok {
		c.Search.PerKeyword = perKeyword
	}
	if orientation, ok := flags["orientation"].(string); ok {
		c.Search.Orientation = orientation
	}
	if quality, ok := flags["quality"].(string); ok && quality != "" {
		c.Search.Quality = quality
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.Directory = outputDir
	}
	if manifest, ok := flags["manifest"].(bool); ok {
		c.Output.WriteManifest = manifest
	}
	if concurrent, ok := flags["concurrent"].(int); ok {
		c.Download.ConcurrentKeywords = concurrent
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok {
		c.Download.Timeout = timeout
	}
	if rph, ok := flags["requests-per-hour"].(int); ok {
		c.RateLimit.RequestsPerHour = rph
	}
	if attempts, ok := flags["max-attempts"].(int); ok {
		c.Retry.MaxAttempts = attempts
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".imgfetch.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
