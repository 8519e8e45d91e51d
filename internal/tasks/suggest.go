package tasks

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxSuggestions = 5

// Suggest derives autocomplete candidates for a partial query from the task
// titles in list: unique title words longer than 3 characters that start
// with the partial and consist only of letters, sorted lexicographically,
// at most 5. Partials shorter than 2 characters yield nothing.
func Suggest(list []Task, partial string) []string {
	if utf8.RuneCountInString(partial) < 2 {
		return []string{}
	}
	prefix := strings.ToLower(partial)

	seen := make(map[string]struct{})
	for _, t := range list {
		for _, word := range strings.Fields(strings.ToLower(t.Title)) {
			if utf8.RuneCountInString(word) <= 3 {
				continue
			}
			if !strings.HasPrefix(word, prefix) || !lettersOnly(word) {
				continue
			}
			seen[word] = struct{}{}
		}
	}

	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)

	if len(words) > maxSuggestions {
		words = words[:maxSuggestions]
	}
	return words
}

func lettersOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
