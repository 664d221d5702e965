package generator

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/markovbot/internal/corpus"
	"github.com/rcliao/markovbot/internal/model"
)

func newGen(t *testing.T, entries ...corpus.Entry) *Generator {
	t.Helper()
	c := corpus.New()
	c.Merge(corpus.Snapshot{Corpora: map[string][]corpus.Entry{corpus.DefaultName: entries}}, false)
	return New(c, WithRand(rand.New(rand.NewSource(1))))
}

func TestGenerate_SingleKeyIsDeterministic(t *testing.T) {
	g := newGen(t, corpus.Entry{W1: "the", W2: "end", Successors: []string{"came."}})
	for i := 0; i < 20; i++ {
		got, err := g.Generate(1, nil, corpus.DefaultName, 5)
		require.NoError(t, err)
		assert.Equal(t, "The end came.", got)
	}
}

func TestGenerate_SingleKeyWithoutPunctuationFails(t *testing.T) {
	g := newGen(t, corpus.Entry{W1: "no", W2: "stop", Successors: []string{"here"}})
	_, err := g.Generate(1, nil, corpus.DefaultName, 3)
	assert.True(t, errors.Is(err, model.ErrGenerationExhausted))
}

func TestGenerate_DeadEndIsRetriedThenExhausted(t *testing.T) {
	g := newGen(t, corpus.Entry{W1: "a", W2: "b", Successors: []string{"c."}})
	// Two steps need (b, c.) which was never observed.
	_, err := g.Generate(2, nil, corpus.DefaultName, 4)
	assert.True(t, errors.Is(err, model.ErrGenerationExhausted))
}

func TestGenerate_WalkEmitsMaxWordsPlusTwo(t *testing.T) {
	g := newGen(t,
		corpus.Entry{W1: "a.", W2: "b.", Successors: []string{"c."}},
		corpus.Entry{W1: "b.", W2: "c.", Successors: []string{"a."}},
		corpus.Entry{W1: "c.", W2: "a.", Successors: []string{"b."}},
	)
	for maxWords := 0; maxWords <= 6; maxWords++ {
		got, err := g.Generate(maxWords, nil, corpus.DefaultName, 1)
		require.NoError(t, err)
		assert.Len(t, strings.Fields(got), maxWords+2, got)
	}
}

func TestGenerate_EmptyCorpusFailsFast(t *testing.T) {
	g := New(corpus.New())
	_, err := g.Generate(10, nil, corpus.DefaultName, 100)
	assert.True(t, errors.Is(err, model.ErrEmptyCorpus))
	assert.False(t, errors.Is(err, model.ErrGenerationExhausted))
}

func TestGenerate_UnknownCorpus(t *testing.T) {
	g := New(corpus.New())
	_, err := g.Generate(10, nil, "klingon", 100)
	assert.True(t, errors.Is(err, model.ErrConfiguration))
}

func TestGenerate_SeedWordPicksMatchingPair(t *testing.T) {
	c := corpus.New()
	_, err := c.Ingest("The cat sat. The cat ran.", corpus.DefaultName, false)
	require.NoError(t, err)
	g := New(c)

	for i := 0; i < 50; i++ {
		got, err := g.Generate(1, []string{"cat"}, corpus.DefaultName, 10)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, "The cat ") || strings.HasPrefix(got, "Cat sat."), got)
	}
}

func TestGenerate_SeedPriorityFallsThrough(t *testing.T) {
	c := corpus.New()
	_, err := c.Ingest("one two three. one two three. four five six. four five six.", corpus.DefaultName, false)
	require.NoError(t, err)
	g := New(c)

	for i := 0; i < 20; i++ {
		got, err := g.Generate(1, []string{"missing", "five six."}, corpus.DefaultName, 10)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, "Five six."), got)
	}
}

func TestGenerate_CapitalizesAfterFullStopAndBareI(t *testing.T) {
	g := newGen(t,
		corpus.Entry{W1: "yes.", W2: "i", Successors: []string{"know."}},
		corpus.Entry{W1: "i", W2: "know.", Successors: []string{"yes."}},
		corpus.Entry{W1: "know.", W2: "yes.", Successors: []string{"i"}},
	)
	got, err := g.Generate(4, []string{"yes. i"}, corpus.DefaultName, 5)
	require.NoError(t, err)
	assert.Equal(t, "Yes. I know. Yes. I know.", got)
}

func TestGenerate_SoftStopBecomesFullStop(t *testing.T) {
	g := newGen(t, corpus.Entry{W1: "well", W2: "then", Successors: []string{"maybe,"}})
	got, err := g.Generate(1, nil, corpus.DefaultName, 3)
	require.NoError(t, err)
	assert.Equal(t, "Well then maybe.", got)
}

func TestTrim(t *testing.T) {
	assert.Equal(t, []string{"a.", "b"}[:1], trim([]string{"a.", "b"}))
	assert.Equal(t, []string{"a", "b!"}, trim([]string{"a", "b!", "c", "d"}))
	assert.Nil(t, trim([]string{"a", "b"}))
}
