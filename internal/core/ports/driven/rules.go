package driven

import "context"

// RuleEngine answers queries from a fixed set of patterns.
type RuleEngine interface {
	// Match returns the answer for text. ok is false when no pattern matched.
	Match(ctx context.Context, text string) (answer string, ok bool, err error)
}
