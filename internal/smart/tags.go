package smart

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxTags = 5

type techTag struct {
	name     string
	keywords []string
}

var techTags = []techTag{
	{"frontend", []string{"frontend", "ui", "react", "vue", "angular", "css", "html", "javascript"}},
	{"backend", []string{"backend", "api", "server", "database", "node", "express", "mongodb"}},
	{"mobile", []string{"mobile", "ios", "android", "app", "react native"}},
	{"database", []string{"database", "db", "sql", "mongodb", "postgres", "mysql"}},
	{"security", []string{"security", "auth", "login", "password", "token", "encryption"}},
	{"performance", []string{"performance", "optimize", "speed", "slow", "fast", "cache"}},
	{"deployment", []string{"deploy", "deployment", "production", "staging", "release"}},
}

var typeTags = []techTag{
	{"bug", []string{"bug", "fix", "error"}},
	{"feature", []string{"feature", "new"}},
	{"refactor", []string{"refactor", "cleanup"}},
	{"urgent", []string{"urgent", "asap"}},
	{"testing", []string{"test", "testing"}},
}

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"the", "and", "for", "are", "but", "not", "you", "all", "can", "her",
		"was", "one", "our", "had", "words", "what", "some", "time", "very",
		"when", "come", "may", "say", "each", "which", "she", "how", "its",
		"two", "more", "these", "want", "way", "look", "first", "also", "new",
		"because", "day", "use", "man", "here", "old", "see", "him", "has",
		"been",
	} {
		stopWords[w] = struct{}{}
	}
}

// SuggestTags proposes up to 5 tags for a task: technical-area tags, then
// task-type tags, then the most frequent significant words of the text
// itself. Tags keep insertion order.
func SuggestTags(title, description string) []string {
	text := combined(title, description)

	tags := make([]string, 0, maxTags)
	seen := make(map[string]struct{})
	add := func(tag string) {
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	for _, t := range techTags {
		for _, kw := range t.keywords {
			if strings.Contains(text, kw) {
				add(t.name)
				break
			}
		}
	}

	for _, t := range typeTags {
		for _, kw := range t.keywords {
			if strings.Contains(text, kw) {
				add(t.name)
				break
			}
		}
	}

	for _, word := range topWords(text, 3) {
		add(word)
	}

	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	return tags
}

// topWords extracts the n most frequent alphabetic words longer than 3
// characters, skipping stop words. Ties keep first-occurrence order.
func topWords(text string, n int) []string {
	freq := make(map[string]int)
	order := make([]string, 0)

	for _, word := range strings.Fields(text) {
		if utf8.RuneCountInString(word) <= 3 || !alphabetic(word) {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		if freq[word] == 0 {
			order = append(order, word)
		}
		freq[word]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})

	if len(order) > n {
		order = order[:n]
	}
	return order
}

func alphabetic(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
