package services

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/custodia-labs/concierge/internal/core/domain"
)

// Validation reasons reported in ValidationError.Reason.
const (
	ReasonEmpty       = "empty"
	ReasonSelfHarm    = "self_harm"
	ReasonAbusive     = "abusive"
	ReasonInjection   = "prompt_injection"
	ReasonSensitive   = "sensitive_extraction"
	ReasonGibberish   = "gibberish"
	ReasonTooShort    = "too_short"
	ReasonGreeting    = "greeting"
	ReasonOutOfScope  = "out_of_scope"
	ReasonProgramming = "programming_out_of_scope"
)

// Messages shown for refused queries.
const (
	MessageEmpty    = "Query is empty. Please type your question."
	MessageSelfHarm = "If you are having thoughts of self-harm, please reach out for help now:\n" +
		"- National Suicide Prevention Lifeline: 988 (US)\n" +
		"- International Association for Suicide Prevention: https://www.iasp.info/resources/Crisis_Centres/\n" +
		"- Your campus counselling centre\n" +
		"I can help with questions about the college, not crisis support."
	MessageAbusive    = "Please use respectful language. This assistant is here to help you."
	MessageInjection  = "Your query appears to contain instructions to change how I work. Please ask a direct question."
	MessageSensitive  = "I cannot provide sensitive student or administrative data. Please contact the registrar or student services."
	MessageGibberish  = "Your message looks invalid. Please ask a proper question."
	MessageTooShort   = "Please provide more detail. Example: 'What is the hostel fee?'"
	MessageGreeting   = "Hello! Ask me about admissions, fees, academics or campus life."
	MessageOutOfScope = "I can only answer questions about the college: administration, admissions, academics and campus life."
)

var (
	selfHarmPatterns = compileAll(
		`(?i)\b(suicide|suicidal|kill myself|cut my wrist|slit my|overdose|jump off)\b`,
		`(?i)\b(hurt myself|harm myself|end my life|want to die)\b`,
	)
	abusePatterns = compileAll(
		`(?i)\b(fuck\w*|bitch|madarchod|chutiya|asshole|bastard)\b`,
		`(?i)\b(idiot|moron|retard)\b`,
	)
	injectionPatterns = compileAll(
		`(?i)\b(ignore|disregard|forget) (all |the )?(previous|prior|above) (instructions|rules|prompts?)\b`,
		`(?i)\bsystem prompt\b`,
		`(?i)\b(role-?play as|pretend to be|you are now|act as)\b`,
		`(?i)\b(from now on|henceforth)\b`,
		`(?i)\b(follow these instructions|new instructions|updated rules)\b`,
		`(?i)\b(drop table|union select|where 1=1)\b`,
		`(?i)\b(__import__|eval\(|exec\()`,
	)
	sensitivePatterns = compileAll(
		`(?i)\b(all student names|list of passwords?|admin account|api key|access token)\b`,
		`(?i)\b(all emails|all phone numbers?|database dump)\b`,
	)
	gibberishPatterns = compileAll(
		`^(asdf|qwer|zxcv|1234|0000)+$`,
		`^[0-9]+$`,
	)
	outOfScopePatterns = compileAll(
		`(?i)\b(bitcoin|crypto|stock market|share market)\b`,
		`(?i)\b(virat|kohli|cricket|ipl|football|messi|ronaldo)\b`,
		`(?i)\b(movie|actor|actress|netflix|anime)\b`,
		`(?i)\b(politics|election|prime minister)\b`,
		`(?i)\b(girlfriend|boyfriend|love letter|breakup)\b`,
		`(?i)\b(black hole|galaxy)\b`,
	)
	programmingPatterns = compileAll(
		`(?i)\b(python|java|c\+\+|javascript|react|node|flask|django)\b`,
		`(?i)\b(write code|bug|exception|stack trace|leetcode|binary search)\b`,
	)
	greetings = map[string]bool{
		"hi": true, "hello": true, "hey": true, "greetings": true,
		"good morning": true, "good afternoon": true, "good evening": true,
	}
	punctuation = regexp.MustCompile(`[^\w\s]`)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// QueryValidator rejects unsafe, malformed and out-of-scope queries
// before classification.
type QueryValidator struct {
	safety bool
	scope  bool
}

// NewQueryValidator creates a validator from the guard settings.
func NewQueryValidator(guards domain.GuardSettings) *QueryValidator {
	return &QueryValidator{safety: guards.Validation, scope: guards.Scope}
}

// Validate returns a *domain.ValidationError when query must not be routed.
// The empty check always applies.
func (v *QueryValidator) Validate(query string) error {
	q := strings.TrimSpace(query)
	if q == "" {
		return invalid(ReasonEmpty, MessageEmpty)
	}

	if v.scope && IsGreeting(q) {
		return invalid(ReasonGreeting, MessageGreeting)
	}

	if v.safety {
		switch {
		case matchesAny(selfHarmPatterns, q):
			return invalid(ReasonSelfHarm, MessageSelfHarm)
		case matchesAny(abusePatterns, q):
			return invalid(ReasonAbusive, MessageAbusive)
		case matchesAny(injectionPatterns, q):
			return invalid(ReasonInjection, MessageInjection)
		case matchesAny(sensitivePatterns, q):
			return invalid(ReasonSensitive, MessageSensitive)
		case isGibberish(q):
			return invalid(ReasonGibberish, MessageGibberish)
		case len(strings.Fields(q)) < 2:
			return invalid(ReasonTooShort, MessageTooShort)
		}
	}

	if v.scope {
		if matchesAny(outOfScopePatterns, q) {
			return invalid(ReasonOutOfScope, MessageOutOfScope)
		}
		lower := strings.ToLower(q)
		if matchesAny(programmingPatterns, q) && (strings.Contains(lower, "code") || strings.Contains(lower, "program")) {
			return invalid(ReasonProgramming, MessageOutOfScope)
		}
	}

	return nil
}

// IsGreeting reports whether query is only a greeting.
func IsGreeting(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	q = strings.TrimSpace(punctuation.ReplaceAllString(q, ""))
	return greetings[q]
}

func isGibberish(q string) bool {
	compact := strings.ToLower(strings.ReplaceAll(q, " ", ""))
	if len([]rune(compact)) <= 2 {
		return true
	}

	var special, total int
	for _, r := range q {
		total++
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			special++
		}
	}
	if float64(special)/float64(total) > 0.5 {
		return true
	}

	return matchesAny(gibberishPatterns, compact) || isRepeatedBlock(compact)
}

// isRepeatedBlock reports whether s is one four-character block repeated,
// like "abcdabcdabcd".
func isRepeatedBlock(s string) bool {
	r := []rune(s)
	if len(r) < 8 || len(r)%4 != 0 {
		return false
	}
	for i := 4; i < len(r); i++ {
		if r[i] != r[i-4] {
			return false
		}
	}
	return true
}

func invalid(reason, message string) error {
	return &domain.ValidationError{Reason: reason, Message: message}
}
