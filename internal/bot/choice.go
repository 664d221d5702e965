package bot

import (
	"math/rand"
	"strings"
)

type choiceKind int

const (
	choiceAbsent choiceKind = iota
	choiceLiteral
	choiceOneOf
)

// Choice is a configuration value that is absent, a fixed literal, or a list
// to pick from at random each time it is resolved.
type Choice struct {
	kind   choiceKind
	values []string
}

// Absent returns the empty choice.
func Absent() Choice { return Choice{} }

// Literal returns a choice that always resolves to s.
func Literal(s string) Choice {
	return Choice{kind: choiceLiteral, values: []string{s}}
}

// OneOf returns a choice resolving to a random element of values.
func OneOf(values ...string) Choice {
	if len(values) == 0 {
		return Absent()
	}
	return Choice{kind: choiceOneOf, values: append([]string(nil), values...)}
}

// ChoiceFrom maps a config list onto a choice: no values is Absent, one is a
// Literal, more is OneOf. Blank entries are ignored.
func ChoiceFrom(values []string) Choice {
	var kept []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			kept = append(kept, v)
		}
	}
	switch len(kept) {
	case 0:
		return Absent()
	case 1:
		return Literal(kept[0])
	default:
		return OneOf(kept...)
	}
}

// IsAbsent reports whether the choice holds nothing.
func (c Choice) IsAbsent() bool { return c.kind == choiceAbsent }

// Resolve picks the value for one use. ok is false for Absent.
func (c Choice) Resolve(rng *rand.Rand) (string, bool) {
	switch c.kind {
	case choiceLiteral:
		return c.values[0], true
	case choiceOneOf:
		return c.values[rng.Intn(len(c.values))], true
	default:
		return "", false
	}
}

func (c Choice) String() string {
	switch c.kind {
	case choiceLiteral:
		return c.values[0]
	case choiceOneOf:
		return "one of [" + strings.Join(c.values, ", ") + "]"
	default:
		return "<none>"
	}
}
