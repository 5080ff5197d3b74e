// Package parse contains the text heuristics behind the voice flow:
// action extraction, due-date resolution, and project matching. All
// functions are pure and never fail on malformed input; they return
// empty results and leave the user-facing response to the caller.
package parse

import (
	"regexp"
	"strings"
	"unicode"
)

const imperativeVerbs = `Create|Build|Setup|Configure|Install|Update|Review|Analyze|Implement|Add|Remove|Fix|Test|Deploy|Write|Design|Plan|Research|Contact|Schedule|Book|Buy|Order|Call|Email|Send|Upload|Download|Backup|Delete|Archive|Organize|Clean|Prepare|Check|Verify|Validate|Monitor|Track|Document|Record|Report|Submit|Approve|Reject|Complete|Finish|Start|Begin|Launch|Stop|Pause|Resume|Cancel|Postpone|Reschedule`

// actionPatterns are applied in order over the whole input. Each pattern
// captures one candidate action per matched line.
var actionPatterns = []*regexp.Regexp{
	// Bulleted lines.
	regexp.MustCompile(`(?im)^\s*[-*•]\s*(.+)$`),
	// Numbered lines.
	regexp.MustCompile(`(?im)^\s*\d+\.\s*(.+)$`),
	// Explicit task markers.
	regexp.MustCompile(`(?im)^\s*(?:TODO|Action|Task|Step)\s*:?\s*(.+)$`),
	// Lines starting with an imperative verb.
	regexp.MustCompile(`(?im)^\s*((?:` + imperativeVerbs + `)\s+.+)$`),
}

var (
	leadingFillerRe = regexp.MustCompile(`(?i)^(that|to|and|or|but)\s+`)
	trailingPunctRe = regexp.MustCompile(`[.!?]+$`)
	sentenceSplitRe = regexp.MustCompile(`[.!?]\s+`)
	conjunctionRe   = regexp.MustCompile(`(?i),\s*and\s+|,\s*|\s+and\s+`)
	verbStartRe     = regexp.MustCompile(`(?i)^(?:` + imperativeVerbs + `)\b`)
)

// fallbackVerbs trigger the sentence-level fallback when none of the
// line patterns produced an action.
var fallbackVerbs = []string{
	"create", "make", "build", "setup", "install", "configure",
	"update", "review", "analyze", "implement", "add", "remove",
	"fix", "test", "deploy", "write", "design", "plan", "research",
	"contact", "schedule", "book", "buy", "order", "call", "email", "send",
}

// ExtractActions turns free-form text into a deduplicated list of
// discrete task strings. Pattern rules run first; if none fires, the
// text is split into sentences and those starting with an action verb
// are kept. Every returned entry is 4-499 characters after trimming.
// Empty input yields an empty result, never an error.
func ExtractActions(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var actions []string
	seen := make(map[string]struct{})

	add := func(candidate string) {
		if len(candidate) <= 3 || len(candidate) >= 500 {
			return
		}
		candidate = cleanAction(candidate)
		if len(candidate) <= 3 {
			return
		}
		if _, ok := seen[candidate]; ok {
			return
		}
		seen[candidate] = struct{}{}
		actions = append(actions, candidate)
	}

	for _, pattern := range actionPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			for _, clause := range splitClauses(strings.TrimSpace(m[1])) {
				add(clause)
			}
		}
	}

	if len(actions) > 0 {
		return actions
	}

	// Fallback: keep sentences that open with an action verb.
	for _, sentence := range sentenceSplitRe.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) <= 5 || len(sentence) >= 500 {
			continue
		}
		lower := strings.ToLower(sentence)
		for _, verb := range fallbackVerbs {
			if strings.HasPrefix(lower, verb) {
				for _, clause := range splitClauses(sentence) {
					add(clause)
				}
				break
			}
		}
	}

	return actions
}

// splitClauses breaks a candidate on commas and "and" wherever the
// following clause opens with another imperative verb, so that
// "buy milk and call mom" yields two separate actions. Separators not
// followed by a verb are kept as part of the action.
func splitClauses(candidate string) []string {
	locs := conjunctionRe.FindAllStringIndex(candidate, -1)
	if len(locs) == 0 {
		return []string{candidate}
	}

	var clauses []string
	start := 0
	for _, loc := range locs {
		rest := candidate[loc[1]:]
		if !verbStartRe.MatchString(rest) {
			continue
		}
		clauses = append(clauses, strings.TrimSpace(candidate[start:loc[0]]))
		start = loc[1]
	}
	clauses = append(clauses, strings.TrimSpace(candidate[start:]))
	return clauses
}

// cleanAction strips leading filler words and trailing punctuation.
func cleanAction(action string) string {
	action = leadingFillerRe.ReplaceAllString(action, "")
	action = trailingPunctRe.ReplaceAllString(action, "")
	return strings.TrimSpace(action)
}

var (
	leadingArticleRe = regexp.MustCompile(`(?i)^(my|the|a|an)\s+`)
	multiSpaceRe     = regexp.MustCompile(`\s+`)
)

// GenerateProjectName turns a spoken hint into a presentable project
// name: articles are dropped, whitespace collapsed, and each word
// capitalized. An empty hint produces "New Project".
func GenerateProjectName(hint string) string {
	cleaned := strings.TrimSpace(hint)
	cleaned = leadingArticleRe.ReplaceAllString(cleaned, "")
	cleaned = multiSpaceRe.ReplaceAllString(cleaned, " ")

	words := strings.Fields(cleaned)
	for i, word := range words {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}

	if len(words) == 0 {
		return "New Project"
	}
	return strings.Join(words, " ")
}
