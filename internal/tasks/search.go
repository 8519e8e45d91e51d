package tasks

import (
	"sort"
	"strings"
)

// Relevance tiers: exact title match beats a title substring match, which
// beats any match reachable only token-by-token.
const (
	tierExactTitle   = 1
	tierPartialTitle = 2
	tierOther        = 3
)

// Tokenize lower-cases, trims and splits a raw query on whitespace.
func Tokenize(query string) []string {
	return strings.Fields(strings.ToLower(strings.TrimSpace(query)))
}

// matchesAllTokens reports whether every token appears as a substring of the
// task's title or description, case-insensitively.
func matchesAllTokens(t Task, tokens []string) bool {
	title := strings.ToLower(t.Title)
	desc := strings.ToLower(t.Description)
	for _, tok := range tokens {
		if !strings.Contains(title, tok) && !strings.Contains(desc, tok) {
			return false
		}
	}
	return true
}

func relevanceTier(t Task, query string) int {
	title := strings.ToLower(t.Title)
	switch {
	case title == query:
		return tierExactTitle
	case strings.Contains(title, query):
		return tierPartialTitle
	default:
		return tierOther
	}
}

// Rank filters list down to tasks matching every token of query and orders
// them by relevance tier, then most recent first. The tier is computed
// against the whole lower-cased query, not its tokens. An empty or
// whitespace-only query yields an empty result.
func Rank(list []Task, query string) []Task {
	normalized := strings.ToLower(strings.TrimSpace(query))
	tokens := strings.Fields(normalized)
	if len(tokens) == 0 {
		return []Task{}
	}

	type ranked struct {
		task Task
		tier int
	}

	matched := make([]ranked, 0)
	for _, t := range list {
		if matchesAllTokens(t, tokens) {
			matched = append(matched, ranked{task: t, tier: relevanceTier(t, normalized)})
		}
	}

	// Stable so that equal (tier, created_at) pairs keep the store's order
	// and repeated calls agree.
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].tier != matched[j].tier {
			return matched[i].tier < matched[j].tier
		}
		return matched[i].task.CreatedAt.After(matched[j].task.CreatedAt)
	})

	result := make([]Task, len(matched))
	for i, m := range matched {
		result[i] = m.task
	}
	return result
}
