/*
Package config manages TOML config for battserve.

The config file is created with defaults on first run. When a file fails to
decode as a whole, every section that still parses is kept and the rest
falls back to defaults:

	[search]
	max_results = 15
	exact_sufficient = 5
	debounce_ms = 120

	[fuzzy]
	threshold = 0.3
	distance = 200
	location = 0
	min_match_len = 2

	[catalog]
	path = "data/batteries.json"

	[cart]
	path = ""

	[cli]
	show_scores = true
*/
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bastiangx/battserve/internal/utils"
	"github.com/bastiangx/battserve/pkg/match"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Search  SearchConfig  `toml:"search"`
	Fuzzy   FuzzyConfig   `toml:"fuzzy"`
	Catalog CatalogConfig `toml:"catalog"`
	Cart    CartConfig    `toml:"cart"`
	CLI     CliConfig     `toml:"cli"`
}

// SearchConfig has result composition and debounce options.
type SearchConfig struct {
	MaxResults      int `toml:"max_results"`
	ExactSufficient int `toml:"exact_sufficient"`
	DebounceMs      int `toml:"debounce_ms"`
}

// FuzzyConfig holds the approximate matcher tuning.
type FuzzyConfig struct {
	Threshold   float64 `toml:"threshold"`
	Distance    int     `toml:"distance"`
	Location    int     `toml:"location"`
	MinMatchLen int     `toml:"min_match_len"`
}

// CatalogConfig points at the catalog file.
type CatalogConfig struct {
	Path string `toml:"path"`
}

// CartConfig points at the selection file. Empty means cart.msgpack in the config dir.
type CartConfig struct {
	Path string `toml:"path"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	ShowScores bool `toml:"show_scores"`
}

const (
	configFileName = "config.toml"
	// CartFileName is the selection file kept next to the config
	CartFileName = "cart.msgpack"
)

// GetConfigDir returns the config directory, the same one the path
// resolver places the cart file in. See utils.ConfigDir.
func GetConfigDir() (string, error) {
	return utils.ConfigDir()
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFileName), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from -config flag
// 2. Default path: [UserConfigDir]/battserve/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}

	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			MaxResults:      match.DefaultMaxResults,
			ExactSufficient: match.DefaultExactSufficient,
			DebounceMs:      120,
		},
		Fuzzy: FuzzyConfig{
			Threshold:   match.DefaultThreshold,
			Distance:    match.DefaultDistance,
			Location:    match.DefaultLocation,
			MinMatchLen: match.DefaultMinMatchLen,
		},
		Catalog: CatalogConfig{
			Path: filepath.Join("data", "batteries.json"),
		},
		Cart: CartConfig{
			Path: "",
		},
		CLI: CliConfig{
			ShowScores: true,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse keeps every well typed value of a file that failed to decode
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "search"); ok {
		extractSearchConfig(section, &config.Search)
	}
	if section, ok := utils.ExtractSection(tempConfig, "fuzzy"); ok {
		extractFuzzyConfig(section, &config.Fuzzy)
	}
	if section, ok := utils.ExtractSection(tempConfig, "catalog"); ok {
		if val, ok := utils.ExtractString(section, "path"); ok {
			config.Catalog.Path = val
		}
	}
	if section, ok := utils.ExtractSection(tempConfig, "cart"); ok {
		if val, ok := utils.ExtractString(section, "path"); ok {
			config.Cart.Path = val
		}
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		if val, ok := utils.ExtractBool(section, "show_scores"); ok {
			config.CLI.ShowScores = val
		}
	}
	return config, nil
}

// extractSearchConfig extracts search configuration from a map
func extractSearchConfig(data map[string]any, search *SearchConfig) {
	if val, ok := utils.ExtractInt64(data, "max_results"); ok {
		search.MaxResults = val
	}
	if val, ok := utils.ExtractInt64(data, "exact_sufficient"); ok {
		search.ExactSufficient = val
	}
	if val, ok := utils.ExtractInt64(data, "debounce_ms"); ok {
		search.DebounceMs = val
	}
}

// extractFuzzyConfig extracts fuzzy matcher configuration from a map
func extractFuzzyConfig(data map[string]any, fuzzy *FuzzyConfig) {
	if val, ok := utils.ExtractFloat64(data, "threshold"); ok {
		fuzzy.Threshold = val
	}
	if val, ok := utils.ExtractInt64(data, "distance"); ok {
		fuzzy.Distance = val
	}
	if val, ok := utils.ExtractInt64(data, "location"); ok {
		fuzzy.Location = val
	}
	if val, ok := utils.ExtractInt64(data, "min_match_len"); ok {
		fuzzy.MinMatchLen = val
	}
}

// MatchOptions converts the search and fuzzy sections for the match package.
// Out of range values are replaced by the match defaults there.
func (c *Config) MatchOptions() match.Options {
	return match.Options{
		MaxResults:      c.Search.MaxResults,
		ExactSufficient: c.Search.ExactSufficient,
		Fuzzy: match.FuzzyOptions{
			Threshold:   c.Fuzzy.Threshold,
			Distance:    c.Fuzzy.Distance,
			Location:    c.Fuzzy.Location,
			MinMatchLen: c.Fuzzy.MinMatchLen,
		},
	}
}

// DebounceInterval returns the quiet interval; zero lets the session pick its default
func (c *Config) DebounceInterval() time.Duration {
	if c.Search.DebounceMs <= 0 {
		return 0
	}
	return time.Duration(c.Search.DebounceMs) * time.Millisecond
}

// CartPath returns the selection file, resolving the empty default against configDir
func (c *Config) CartPath(configDir string) string {
	if c.Cart.Path != "" {
		return c.Cart.Path
	}
	return filepath.Join(configDir, CartFileName)
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	configDir := filepath.Dir(defaultPath)
	if err := utils.EnsureDir(configDir); err != nil {
		return err
	}
	return utils.SaveTOMLFile(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// Update changes the search tuning and saves to file.
// An empty configPath only updates the values in memory.
func (c *Config) Update(configPath string, maxResults, exactSufficient *int, threshold *float64) error {
	if maxResults != nil {
		c.Search.MaxResults = *maxResults
	}
	if exactSufficient != nil {
		c.Search.ExactSufficient = *exactSufficient
	}
	if threshold != nil {
		c.Fuzzy.Threshold = *threshold
	}
	if configPath == "" {
		return nil
	}
	return SaveConfig(c, configPath)
}
