// Package pattern provides a rule engine that answers queries from a TOML
// file of templates. Templates are matched word by word after both sides
// are upper-cased and stripped of punctuation; "*" matches one or more
// words.
package pattern

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.RuleEngine = (*Engine)(nil)

const wildcard = "*"

// starPlaceholder in an answer is replaced by the words the first
// wildcard captured.
const starPlaceholder = "{star}"

// Rule is one entry in a rules file.
type Rule struct {
	Patterns []string `toml:"patterns"`
	Answer   string   `toml:"answer"`
}

// RuleSet is the contents of a rules file:
//
//	[[rule]]
//	patterns = ["WHAT IS THE TUITION FEE", "TUITION FEE *"]
//	answer = "Tuition is 1,20,000 per year."
type RuleSet struct {
	Rules []Rule `toml:"rule"`
}

type template struct {
	words    []string
	literals int
	answer   string
}

// Engine matches queries against compiled templates. Exact templates are
// tried first, then wildcard templates with the most literal words; file
// order breaks remaining ties. Engine is immutable and safe for
// concurrent use.
type Engine struct {
	exact    map[string]string
	wildcard []template
}

// LoadFile reads a TOML rules file and compiles it.
func LoadFile(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var set RuleSet
	if err := toml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return New(set)
}

// New compiles a rule set. An empty set is valid and never matches.
func New(set RuleSet) (*Engine, error) {
	e := &Engine{exact: make(map[string]string)}

	for i, rule := range set.Rules {
		answer := strings.TrimSpace(rule.Answer)
		if answer == "" {
			return nil, fmt.Errorf("%w: rule %d has no answer", domain.ErrInvalidInput, i+1)
		}
		if len(rule.Patterns) == 0 {
			return nil, fmt.Errorf("%w: rule %d has no patterns", domain.ErrInvalidInput, i+1)
		}

		for _, p := range rule.Patterns {
			words := normalisePattern(p)
			if len(words) == 0 {
				return nil, fmt.Errorf("%w: rule %d has an empty pattern", domain.ErrInvalidInput, i+1)
			}

			literals := 0
			for _, w := range words {
				if w != wildcard {
					literals++
				}
			}
			if literals == len(words) {
				key := strings.Join(words, " ")
				if _, dup := e.exact[key]; !dup {
					e.exact[key] = answer
				}
				continue
			}
			e.wildcard = append(e.wildcard, template{words: words, literals: literals, answer: answer})
		}
	}

	slices.SortStableFunc(e.wildcard, func(a, b template) int {
		return b.literals - a.literals
	})
	return e, nil
}

// Match returns the answer of the first template that matches text.
func (e *Engine) Match(ctx context.Context, text string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	words := Normalise(text)
	if len(words) == 0 {
		return "", false, nil
	}

	if answer, ok := e.exact[strings.Join(words, " ")]; ok {
		return answer, true, nil
	}
	for _, t := range e.wildcard {
		if stars, ok := matchWords(t.words, words); ok {
			return expand(t.answer, stars), true, nil
		}
	}
	return "", false, nil
}

// Len returns the number of compiled templates.
func (e *Engine) Len() int {
	return len(e.exact) + len(e.wildcard)
}

// matchWords matches a template against input words, returning what each
// wildcard captured.
func matchWords(pattern, input []string) ([]string, bool) {
	if len(pattern) == 0 {
		return nil, len(input) == 0
	}
	if pattern[0] != wildcard {
		if len(input) == 0 || input[0] != pattern[0] {
			return nil, false
		}
		return matchWords(pattern[1:], input[1:])
	}
	// A wildcard consumes at least one word; prefer the shortest capture.
	for n := 1; n <= len(input); n++ {
		if rest, ok := matchWords(pattern[1:], input[n:]); ok {
			return append([]string{strings.Join(input[:n], " ")}, rest...), true
		}
	}
	return nil, false
}

func expand(answer string, stars []string) string {
	if len(stars) == 0 || !strings.Contains(answer, starPlaceholder) {
		return answer
	}
	return strings.ReplaceAll(answer, starPlaceholder, strings.ToLower(stars[0]))
}

// Normalise upper-cases text and splits it into words, treating every
// character that is not a letter or digit as a separator.
func Normalise(text string) []string {
	return strings.FieldsFunc(strings.ToUpper(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func normalisePattern(p string) []string {
	var words []string
	for _, field := range strings.Fields(p) {
		if field == wildcard || field == "_" {
			words = append(words, wildcard)
			continue
		}
		words = append(words, Normalise(field)...)
	}
	return words
}
