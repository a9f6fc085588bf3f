package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// AppName names the per-user config and data directories.
const AppName = "wordstalk"

// ConfigDir returns the XDG config directory, e.g. ~/.config/wordstalk on Linux.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DataDir returns the XDG data directory, e.g. ~/.local/share/wordstalk on Linux.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// DefaultDatabasePath is where the sqlite backend writes when no path is set.
func DefaultDatabasePath() string {
	return filepath.Join(DataDir(), AppName+".db")
}

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flags are applied by the caller on top of the returned Config.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("WORDSTALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if ext := strings.TrimPrefix(filepath.Ext(configPath), "."); ext != "" {
			v.SetConfigType(ext)
		}
	} else {
		v.SetConfigName("wordstalk")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath(ConfigDir())
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".wordstalk"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env vars can override them.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("crawl.start_pages", cfg.Crawl.StartPages)
	v.SetDefault("crawl.max_depth", cfg.Crawl.MaxDepth)
	v.SetDefault("crawl.timeout", cfg.Crawl.Timeout)
	v.SetDefault("crawl.popular_word_count", cfg.Crawl.PopularWordCount)
	v.SetDefault("crawl.ignored_urls", cfg.Crawl.IgnoredURLs)
	v.SetDefault("crawl.parallelism", cfg.Crawl.Parallelism)
	v.SetDefault("crawl.implementation", cfg.Crawl.Implementation)
	v.SetDefault("crawl.fail_fast", cfg.Crawl.FailFast)

	v.SetDefault("parser.site", cfg.Parser.Site)
	v.SetDefault("parser.ignored_words", cfg.Parser.IgnoredWords)
	v.SetDefault("parser.min_word_length", cfg.Parser.MinWordLength)

	v.SetDefault("output.type", cfg.Output.Type)
	v.SetDefault("output.path", cfg.Output.Path)
	v.SetDefault("output.profile_path", cfg.Output.ProfilePath)
	v.SetDefault("output.mongo.uri", cfg.Output.Mongo.URI)
	v.SetDefault("output.mongo.database", cfg.Output.Mongo.Database)
	v.SetDefault("output.mongo.collection", cfg.Output.Mongo.Collection)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)
	v.SetDefault("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
