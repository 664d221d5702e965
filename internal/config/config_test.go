package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/markovbot/internal/bot"
	"github.com/rcliao/markovbot/internal/model"
)

const sampleYAML = `
db_path: /tmp/bot.db
limit: 120
exclusion_ttl: 72h
credentials:
  consumer_key: ck
  access_token: file-token
feed:
  base_url: https://feed.example
  rate_limit: 2.5
reply:
  target: "@markovbot"
  keywords: [cat, dog]
  prefix: "Well,"
  suffix: ["#bot", "#markov"]
  corpus: auto-language
  max_conv_depth: 3
  min_delay: 90s
post:
  keywords: weather
  corpus: [default, de]
  interval: 6h
  jitter: 30m
reshare:
  term: golang news
  lang: en
  word_blacklist: crypto
  user_blacklist: [spammer, "@bot"]
  max_age: 2h
  interval: 45m
  enabled: true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/bot.db", cfg.DBPath)
	assert.Equal(t, 120, cfg.Limit)
	assert.Equal(t, 100, cfg.MaxAttempts, "default kept")
	assert.Equal(t, 72*time.Hour, cfg.ExclusionTTL)
	assert.Equal(t, 5*time.Second, cfg.SupervisorTick)
	assert.Equal(t, "ck", cfg.Credentials.ConsumerKey)
	assert.Equal(t, "https://feed.example", cfg.Feed.BaseURL)
	assert.Equal(t, 2.5, cfg.Feed.RateLimit)
	assert.Equal(t, 5, cfg.Feed.Burst)
	assert.Equal(t, 30*time.Second, cfg.FeedClientConfig().Timeout)

	reply, ok, err := cfg.ReplyConfig()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "@markovbot", reply.Target)
	assert.Equal(t, []string{"cat", "dog"}, reply.Keywords)
	assert.Equal(t, bot.Literal("Well,"), reply.Prefix)
	assert.Equal(t, bot.OneOf("#bot", "#markov"), reply.Suffix)
	assert.Equal(t, bot.PolicyByLanguage, reply.Corpus.Kind)
	assert.Equal(t, 3, reply.MaxConvDepth)
	assert.Equal(t, 90*time.Second, reply.MinDelay)

	post, ok, err := cfg.PostConfig()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, bot.Literal("weather"), post.Keywords)
	assert.True(t, post.Prefix.IsAbsent())
	assert.Equal(t, bot.OneOfCorpora("default", "de"), post.Corpus)
	assert.Equal(t, 6*time.Hour, post.Interval)
	assert.Equal(t, 30*time.Minute, post.Jitter)

	reshare, ok, err := cfg.ReshareConfig()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "golang news", reshare.Term)
	assert.Equal(t, "en", reshare.Lang)
	assert.Equal(t, []string{"crypto"}, reshare.WordBlacklist)
	assert.Equal(t, []string{"spammer", "@bot"}, reshare.UserBlacklist)
	assert.Equal(t, 2*time.Hour, reshare.MaxAge)
	assert.Equal(t, 45*time.Minute, reshare.Interval)
	assert.False(t, reshare.DryRun)
}

func TestReshareConfig_DisabledIsDryRun(t *testing.T) {
	cfg, err := Load(writeConfig(t, "reshare:\n  term: golang\n"))
	require.NoError(t, err)
	reshare, ok, err := cfg.ReshareConfig()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, reshare.DryRun)
	assert.Empty(t, reshare.WordBlacklist)

	cfg, err = Load(writeConfig(t, "reshare:\n  term: golang\n  user_blacklist: [1, 2]\n"))
	require.NoError(t, err)
	_, _, err = cfg.ReshareConfig()
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MARKOVBOT_CREDENTIALS_ACCESS_TOKEN", "env-token")
	t.Setenv("MARKOVBOT_LIMIT", "100")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Credentials.AccessToken)
	assert.Equal(t, 100, cfg.Limit)
}

func TestLoad_DotEnvNextToConfig(t *testing.T) {
	path := writeConfig(t, "limit: 50\n")
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), ".env"),
		[]byte("MARKOVBOT_CREDENTIALS_CONSUMER_SECRET=from-dotenv\n"), 0600))
	t.Setenv("MARKOVBOT_CREDENTIALS_CONSUMER_SECRET", "")
	os.Unsetenv("MARKOVBOT_CREDENTIALS_CONSUMER_SECRET")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Credentials.ConsumerSecret)
	assert.Nil(t, cfg.Reply)
	_, ok, err := cfg.ReplyConfig()
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestLoad_MissingFiles(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err, "explicit path must exist")

	t.Setenv("HOME", t.TempDir())
	t.Setenv("MARKOVBOT_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Limit, cfg.Limit)
}

func TestReplyConfig_BadValueType(t *testing.T) {
	cfg, err := Load(writeConfig(t, "reply:\n  target: x\n  prefix:\n    nested: map\n"))
	require.NoError(t, err)
	_, _, err = cfg.ReplyConfig()
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Default()
	cfg.Credentials.AccessToken = "tok"
	cfg.Post = &PostSection{Corpus: "random-database", Interval: 2 * time.Hour}
	require.NoError(t, Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tok", loaded.Credentials.AccessToken)
	assert.Equal(t, cfg.SupervisorTick, loaded.SupervisorTick)
	post, ok, err := loaded.PostConfig()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, bot.PolicyRandomNonEmpty, post.Corpus.Kind)
	assert.Equal(t, 2*time.Hour, post.Interval)
}

func TestLoadSimpleResponses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "responses.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hello: [Hi!, Hey!]\nbye: Later.\n"), 0600))

	got, err := LoadSimpleResponses(path)
	require.NoError(t, err)
	assert.Equal(t, "Later.", got["bye"])
	assert.Equal(t, []any{"Hi!", "Hey!"}, got["hello"])

	require.NoError(t, os.WriteFile(path, []byte("- just\n- a list\n"), 0600))
	_, err = LoadSimpleResponses(path)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}
