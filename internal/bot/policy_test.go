package bot

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rcliao/markovbot/internal/corpus"
	"github.com/rcliao/markovbot/internal/model"
)

func TestChoice(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	_, ok := Absent().Resolve(rng)
	assert.False(t, ok)

	v, ok := Literal("#bot").Resolve(rng)
	require.True(t, ok)
	assert.Equal(t, "#bot", v)

	seen := map[string]bool{}
	c := OneOf("a", "b", "c")
	for i := 0; i < 200; i++ {
		v, ok := c.Resolve(rng)
		require.True(t, ok)
		seen[v] = true
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, seen)

	assert.True(t, ChoiceFrom(nil).IsAbsent())
	assert.True(t, ChoiceFrom([]string{" ", ""}).IsAbsent())
	assert.Equal(t, Literal("x"), ChoiceFrom([]string{"", "x"}))
	assert.Equal(t, OneOf("x", "y"), ChoiceFrom([]string{"x", " ", "y"}))
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, Fixed(corpus.DefaultName), ParsePolicy(nil))
	assert.Equal(t, Fixed("poems"), ParsePolicy([]string{"poems"}))
	assert.Equal(t, OneOfCorpora("a", "b"), ParsePolicy([]string{"a", "b"}))
	assert.Equal(t, PolicyByLanguage, ParsePolicy([]string{AutoLanguage}).Kind)
	assert.Equal(t, PolicyRandomNonEmpty, ParsePolicy([]string{RandomDatabase}).Kind)
	assert.Equal(t, PolicySimpleResponse, ParsePolicy([]string{corpus.SimpleResponseName}).Kind)
}

func policyCorpora(t *testing.T) *corpus.Collection {
	t.Helper()
	c := corpus.New()
	for name, text := range map[string]string{
		corpus.DefaultName: "the default corpus speaks.",
		"en":               "an english corpus speaks.",
		"nl":               "een nederlands corpus spreekt.",
		"hollow":           "two words",
	} {
		_, err := c.Ingest(text, name, false)
		require.NoError(t, err)
	}
	require.NoError(t, c.SetSimpleResponses(map[string]any{"hello": "Hi!"}, false))
	return c
}

func TestResolveCorpus(t *testing.T) {
	c := policyCorpora(t)
	rng := rand.New(rand.NewSource(1))
	log := zap.NewNop()
	resolve := func(p CorpusPolicy, item *model.Item) string {
		return resolveCorpus(p, item, c, rng, log)
	}

	assert.Equal(t, "nl", resolve(Fixed("nl"), nil))
	assert.Equal(t, corpus.DefaultName, resolve(Fixed("klingon"), nil), "unknown falls back")
	assert.Equal(t, corpus.DefaultName, resolve(Fixed("hollow"), nil), "empty falls back")
	assert.Equal(t, corpus.SimpleResponseName, resolve(SimpleResponse(), nil))

	for i := 0; i < 50; i++ {
		got := resolve(OneOfCorpora("en", "nl"), nil)
		assert.Contains(t, []string{"en", "nl"}, got)

		got = resolve(RandomNonEmpty(), nil)
		assert.NotEqual(t, corpus.SimpleResponseName, got)
		assert.NotEqual(t, "hollow", got)
	}
}

func TestResolveCorpus_ByLanguage(t *testing.T) {
	c := policyCorpora(t)
	rng := rand.New(rand.NewSource(1))
	log := zap.NewNop()

	assert.Equal(t, "nl", resolveCorpus(ByLanguage(), &model.Item{Lang: "NL"}, c, rng, log))
	assert.Equal(t, FallbackLanguage, resolveCorpus(ByLanguage(), &model.Item{Lang: "fr"}, c, rng, log))

	noEnglish := corpus.New()
	_, err := noEnglish.Ingest("only the default here.", corpus.DefaultName, false)
	require.NoError(t, err)
	assert.Equal(t, corpus.DefaultName, resolveCorpus(ByLanguage(), &model.Item{Lang: "fr"}, noEnglish, rng, log))
}
