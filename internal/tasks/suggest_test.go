package tasks

import (
	"reflect"
	"testing"
)

func titled(titles ...string) []Task {
	list := make([]Task, len(titles))
	for i, title := range titles {
		list[i] = Task{ID: i + 1, Title: title, UserID: 1}
	}
	return list
}

func TestSuggest_LexicographicAndCapped(t *testing.T) {
	list := titled("meeting", "message", "memo notes", "mercury project", "merge queue", "metrics dashboard")

	got := Suggest(list, "me")

	// Six candidates sort lexicographically and cap at five.
	want := []string{"meeting", "memo", "mercury", "merge", "message"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Suggest = %v, want %v", got, want)
	}
}

func TestSuggest_Scenario(t *testing.T) {
	list := titled("meeting", "message", "memo")

	got := Suggest(list, "me")

	want := []string{"meeting", "memo", "message"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Suggest = %v, want %v", got, want)
	}
}

func TestSuggest_ShortPartial(t *testing.T) {
	list := titled("meeting")

	if got := Suggest(list, "m"); len(got) != 0 {
		t.Errorf("Suggest with 1-char partial = %v, want empty", got)
	}
	if got := Suggest(list, ""); len(got) != 0 {
		t.Errorf("Suggest with empty partial = %v, want empty", got)
	}
}

func TestSuggest_FiltersShortAndNonAlphabetic(t *testing.T) {
	list := titled("dev dev2 devops de deploy-1 deployment")

	got := Suggest(list, "de")

	// "dev" and "de" are too short, "dev2" and "deploy-1" are not purely
	// alphabetic.
	want := []string{"deployment", "devops"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Suggest = %v, want %v", got, want)
	}
}

func TestSuggest_Deduplicates(t *testing.T) {
	list := titled("backend cleanup", "backend migration", "Backend review")

	got := Suggest(list, "ba")

	want := []string{"backend"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Suggest = %v, want %v", got, want)
	}
}

func TestSuggest_CaseInsensitivePrefix(t *testing.T) {
	list := titled("Meeting agenda")

	got := Suggest(list, "ME")

	want := []string{"meeting"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Suggest = %v, want %v", got, want)
	}
}
