// Package config loads bot settings from a YAML file, a .env file and
// MARKOVBOT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/markovbot/internal/bot"
	"github.com/rcliao/markovbot/internal/feed"
	"github.com/rcliao/markovbot/internal/model"
	"github.com/rcliao/markovbot/internal/session"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MARKOVBOT"

// Config is the whole run-time configuration.
type Config struct {
	DBPath          string              `yaml:"db_path" mapstructure:"db_path"`
	LogFile         string              `yaml:"log_file,omitempty" mapstructure:"log_file"`
	Credentials     session.Credentials `yaml:"credentials" mapstructure:"credentials"`
	Feed            FeedConfig          `yaml:"feed" mapstructure:"feed"`
	Limit           int                 `yaml:"limit" mapstructure:"limit"`
	MaxAttempts     int                 `yaml:"max_attempts" mapstructure:"max_attempts"`
	ExclusionTTL    time.Duration       `yaml:"exclusion_ttl" mapstructure:"exclusion_ttl"`
	SupervisorTick  time.Duration       `yaml:"supervisor_tick" mapstructure:"supervisor_tick"`
	MetricsAddr     string              `yaml:"metrics_addr,omitempty" mapstructure:"metrics_addr"`
	WatchDir        string              `yaml:"watch_dir,omitempty" mapstructure:"watch_dir"`
	WatchCorpus     string              `yaml:"watch_corpus,omitempty" mapstructure:"watch_corpus"`
	SimpleResponses string              `yaml:"simple_responses,omitempty" mapstructure:"simple_responses"`

	// Workers start on `run` only when their section is present.
	Reply   *ReplySection   `yaml:"reply,omitempty" mapstructure:"reply"`
	Post    *PostSection    `yaml:"post,omitempty" mapstructure:"post"`
	Reshare *ReshareSection `yaml:"reshare,omitempty" mapstructure:"reshare"`
}

// FeedConfig locates the feed service.
type FeedConfig struct {
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	StreamURL string        `yaml:"stream_url,omitempty" mapstructure:"stream_url"`
	RateLimit float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
	Burst     int           `yaml:"burst" mapstructure:"burst"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ReplySection configures auto-reply. Prefix, Suffix and Corpus accept a
// single string or a list.
type ReplySection struct {
	Target       string        `yaml:"target" mapstructure:"target"`
	Keywords     any           `yaml:"keywords,omitempty" mapstructure:"keywords"`
	Prefix       any           `yaml:"prefix,omitempty" mapstructure:"prefix"`
	Suffix       any           `yaml:"suffix,omitempty" mapstructure:"suffix"`
	Corpus       any           `yaml:"corpus,omitempty" mapstructure:"corpus"`
	MaxConvDepth int           `yaml:"max_conv_depth" mapstructure:"max_conv_depth"`
	MinDelay     time.Duration `yaml:"min_delay" mapstructure:"min_delay"`
}

// PostSection configures auto-post.
type PostSection struct {
	Keywords any           `yaml:"keywords,omitempty" mapstructure:"keywords"`
	Prefix   any           `yaml:"prefix,omitempty" mapstructure:"prefix"`
	Suffix   any           `yaml:"suffix,omitempty" mapstructure:"suffix"`
	Corpus   any           `yaml:"corpus,omitempty" mapstructure:"corpus"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
	Jitter   time.Duration `yaml:"jitter" mapstructure:"jitter"`
}

// ReshareSection configures the search-and-reshare worker. Blacklists accept
// a single string or a list.
type ReshareSection struct {
	Term          string        `yaml:"term" mapstructure:"term"`
	Lang          string        `yaml:"lang,omitempty" mapstructure:"lang"`
	WordBlacklist any           `yaml:"word_blacklist,omitempty" mapstructure:"word_blacklist"`
	UserBlacklist any           `yaml:"user_blacklist,omitempty" mapstructure:"user_blacklist"`
	MaxAge        time.Duration `yaml:"max_age,omitempty" mapstructure:"max_age"`
	MaxFetch      int           `yaml:"max_fetch,omitempty" mapstructure:"max_fetch"`
	Interval      time.Duration `yaml:"interval" mapstructure:"interval"`
	Enabled       bool          `yaml:"enabled" mapstructure:"enabled"`
}

// Dir returns ~/.markovbot.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".markovbot")
}

// DefaultPath returns $MARKOVBOT_CONFIG or ~/.markovbot/config.yaml.
func DefaultPath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		DBPath:         filepath.Join(Dir(), "markovbot.db"),
		Limit:          140,
		MaxAttempts:    100,
		SupervisorTick: 5 * time.Second,
		Feed: FeedConfig{
			RateLimit: 1,
			Burst:     5,
			Timeout:   30 * time.Second,
		},
	}
}

// Load reads path (DefaultPath when empty). A missing default file yields the
// defaults; a missing explicit file is an error. A .env file next to the
// config file or in the working directory is loaded first without overriding
// variables already set.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	for _, env := range []string{filepath.Join(filepath.Dir(path), ".env"), ".env"} {
		if err := godotenv.Load(env); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", env, err)
		}
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("log_file", "")
	v.SetDefault("limit", d.Limit)
	v.SetDefault("max_attempts", d.MaxAttempts)
	v.SetDefault("exclusion_ttl", "0s")
	v.SetDefault("supervisor_tick", d.SupervisorTick.String())
	v.SetDefault("metrics_addr", "")
	v.SetDefault("watch_dir", "")
	v.SetDefault("watch_corpus", "")
	v.SetDefault("simple_responses", "")
	v.SetDefault("feed.base_url", "")
	v.SetDefault("feed.stream_url", "")
	v.SetDefault("feed.rate_limit", d.Feed.RateLimit)
	v.SetDefault("feed.burst", d.Feed.Burst)
	v.SetDefault("feed.timeout", d.Feed.Timeout.String())
	for _, k := range []string{"consumer_key", "consumer_secret", "access_token", "access_token_secret"} {
		v.SetDefault("credentials."+k, "")
	}
}

// Save writes cfg as YAML with owner-only permissions.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// FeedClientConfig converts the feed section for feed.NewDialer.
func (c *Config) FeedClientConfig() feed.Config {
	return feed.Config{
		BaseURL:   c.Feed.BaseURL,
		StreamURL: c.Feed.StreamURL,
		RateLimit: c.Feed.RateLimit,
		Burst:     c.Feed.Burst,
		Timeout:   c.Feed.Timeout,
	}
}

// ReplyConfig converts the reply section. ok is false when it is absent.
func (c *Config) ReplyConfig() (cfg bot.ReplyConfig, ok bool, err error) {
	r := c.Reply
	if r == nil {
		return cfg, false, nil
	}
	keywords, err := stringList("reply.keywords", r.Keywords)
	if err != nil {
		return cfg, true, err
	}
	prefix, err := choice("reply.prefix", r.Prefix)
	if err != nil {
		return cfg, true, err
	}
	suffix, err := choice("reply.suffix", r.Suffix)
	if err != nil {
		return cfg, true, err
	}
	corpusNames, err := stringList("reply.corpus", r.Corpus)
	if err != nil {
		return cfg, true, err
	}
	return bot.ReplyConfig{
		Target:       r.Target,
		Keywords:     keywords,
		Prefix:       prefix,
		Suffix:       suffix,
		Corpus:       bot.ParsePolicy(corpusNames),
		MaxConvDepth: r.MaxConvDepth,
		MinDelay:     r.MinDelay,
	}, true, nil
}

// PostConfig converts the post section. ok is false when it is absent.
func (c *Config) PostConfig() (cfg bot.PostConfig, ok bool, err error) {
	p := c.Post
	if p == nil {
		return cfg, false, nil
	}
	keywords, err := choice("post.keywords", p.Keywords)
	if err != nil {
		return cfg, true, err
	}
	prefix, err := choice("post.prefix", p.Prefix)
	if err != nil {
		return cfg, true, err
	}
	suffix, err := choice("post.suffix", p.Suffix)
	if err != nil {
		return cfg, true, err
	}
	corpusNames, err := stringList("post.corpus", p.Corpus)
	if err != nil {
		return cfg, true, err
	}
	return bot.PostConfig{
		Keywords: keywords,
		Prefix:   prefix,
		Suffix:   suffix,
		Corpus:   bot.ParsePolicy(corpusNames),
		Interval: p.Interval,
		Jitter:   p.Jitter,
	}, true, nil
}

// ReshareConfig converts the reshare section. ok is false when it is absent.
// A section with enabled false runs as a dry run.
func (c *Config) ReshareConfig() (cfg bot.ReshareConfig, ok bool, err error) {
	r := c.Reshare
	if r == nil {
		return cfg, false, nil
	}
	words, err := stringList("reshare.word_blacklist", r.WordBlacklist)
	if err != nil {
		return cfg, true, err
	}
	users, err := stringList("reshare.user_blacklist", r.UserBlacklist)
	if err != nil {
		return cfg, true, err
	}
	return bot.ReshareConfig{
		Term:          r.Term,
		Lang:          r.Lang,
		WordBlacklist: words,
		UserBlacklist: users,
		MaxAge:        r.MaxAge,
		MaxFetch:      r.MaxFetch,
		Interval:      r.Interval,
		DryRun:        !r.Enabled,
	}, true, nil
}

func choice(key string, v any) (bot.Choice, error) {
	values, err := stringList(key, v)
	if err != nil {
		return bot.Absent(), err
	}
	return bot.ChoiceFrom(values), nil
}

// stringList accepts nil, a string, or a list of strings.
func stringList(key string, v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if val == "" {
			return nil, nil
		}
		return []string{val}, nil
	case []string:
		return val, nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s must be a string or a list of strings", model.ErrConfiguration, key)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a string or a list of strings", model.ErrConfiguration, key)
	}
}

// LoadSimpleResponses reads a YAML mapping of trigger phrase to reply or
// list of replies. Entry types are checked by corpus.SetSimpleResponses.
func LoadSimpleResponses(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read simple responses: %w", err)
	}
	var responses map[string]any
	if err := yaml.Unmarshal(data, &responses); err != nil {
		return nil, fmt.Errorf("%w: simple responses %s: %v", model.ErrConfiguration, path, err)
	}
	return responses, nil
}
