package bot

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/RadhiFadlillah/whatlanggo"
	"go.uber.org/zap"

	"github.com/rcliao/markovbot/internal/corpus"
	"github.com/rcliao/markovbot/internal/model"
)

// Names accepted in configuration for the non-literal corpus policies.
const (
	AutoLanguage   = "auto-language"
	RandomDatabase = "random-database"
)

// FallbackLanguage is tried when an item's language has no corpus of its own.
const FallbackLanguage = "en"

// PolicyKind selects how a worker picks its corpus.
type PolicyKind int

const (
	PolicyFixed PolicyKind = iota
	PolicyOneOf
	PolicyByLanguage
	PolicyRandomNonEmpty
	PolicySimpleResponse
)

func (k PolicyKind) String() string {
	switch k {
	case PolicyFixed:
		return "fixed"
	case PolicyOneOf:
		return "one-of"
	case PolicyByLanguage:
		return AutoLanguage
	case PolicyRandomNonEmpty:
		return RandomDatabase
	case PolicySimpleResponse:
		return corpus.SimpleResponseName
	}
	return fmt.Sprintf("PolicyKind(%d)", int(k))
}

// CorpusPolicy decides which corpus a post is generated from.
type CorpusPolicy struct {
	Kind  PolicyKind
	Names []string
}

// Fixed always uses name.
func Fixed(name string) CorpusPolicy { return CorpusPolicy{Kind: PolicyFixed, Names: []string{name}} }

// OneOfCorpora picks a random name from names.
func OneOfCorpora(names ...string) CorpusPolicy {
	return CorpusPolicy{Kind: PolicyOneOf, Names: append([]string(nil), names...)}
}

// ByLanguage maps the item language onto a same-named corpus.
func ByLanguage() CorpusPolicy { return CorpusPolicy{Kind: PolicyByLanguage} }

// RandomNonEmpty picks any corpus with content.
func RandomNonEmpty() CorpusPolicy { return CorpusPolicy{Kind: PolicyRandomNonEmpty} }

// SimpleResponse answers with a literal from the simple-response table.
func SimpleResponse() CorpusPolicy { return CorpusPolicy{Kind: PolicySimpleResponse} }

// ParsePolicy reads the config form: one name, a list of names, or one of the
// keywords auto-language, random-database and simpleresponse. No values means
// the default corpus.
func ParsePolicy(values []string) CorpusPolicy {
	c := ChoiceFrom(values)
	switch {
	case c.IsAbsent():
		return Fixed(corpus.DefaultName)
	case len(c.values) > 1:
		return OneOfCorpora(c.values...)
	}
	switch v := c.values[0]; v {
	case AutoLanguage:
		return ByLanguage()
	case RandomDatabase:
		return RandomNonEmpty()
	case corpus.SimpleResponseName:
		return SimpleResponse()
	default:
		return Fixed(v)
	}
}

func (p CorpusPolicy) String() string {
	switch p.Kind {
	case PolicyFixed, PolicyOneOf:
		return strings.Join(p.Names, ",")
	}
	return p.Kind.String()
}

// resolveCorpus picks the corpus for one post. The simple-response policy
// resolves to corpus.SimpleResponseName. Anything unknown or empty falls back to
// the default corpus.
func resolveCorpus(p CorpusPolicy, item *model.Item, coll *corpus.Collection, rng *rand.Rand, log *zap.Logger) string {
	var name string
	switch p.Kind {
	case PolicySimpleResponse:
		return corpus.SimpleResponseName
	case PolicyFixed:
		if len(p.Names) > 0 {
			name = p.Names[0]
		}
	case PolicyOneOf:
		if len(p.Names) > 0 {
			name = p.Names[rng.Intn(len(p.Names))]
			log.Debug("randomly chose corpus", zap.String("corpus", name))
		}
	case PolicyRandomNonEmpty:
		names := coll.NonEmptyNames()
		if len(names) > 0 {
			name = names[rng.Intn(len(names))]
			log.Debug("randomly chose corpus", zap.String("corpus", name))
		}
	case PolicyByLanguage:
		lang := itemLanguage(item)
		switch {
		case lang != "" && coll.Exists(lang):
			name = lang
		case coll.Exists(FallbackLanguage):
			name = FallbackLanguage
		}
		log.Debug("language corpus", zap.String("lang", lang), zap.String("corpus", name))
	}

	switch {
	case name == "":
		log.Info("no corpus selected, using default", zap.Stringer("policy", p))
		name = corpus.DefaultName
	case !coll.Exists(name):
		log.Info("selected corpus does not exist, using default", zap.String("corpus", name))
		name = corpus.DefaultName
	case coll.IsEmpty(name):
		log.Info("selected corpus is empty, using default", zap.String("corpus", name))
		name = corpus.DefaultName
	}
	return name
}

// itemLanguage prefers the language the feed reported, then a local guess.
func itemLanguage(item *model.Item) string {
	if item == nil {
		return ""
	}
	if item.Lang != "" {
		return strings.ToLower(item.Lang)
	}
	info := whatlanggo.Detect(item.Text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
