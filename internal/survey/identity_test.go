package survey

import (
	"reflect"
	"testing"
)

func generatedQuestion(id, templateID, commodity string) GeneratedQuestion {
	return GeneratedQuestion{
		ID:                     id,
		ProjectID:              "project-1",
		Text:                   "How many hectares do you farm?",
		ResponseType:           "number",
		AssignedRespondentType: "farmer",
		AssignedCommodity:      commodity,
		AssignedCountry:        "GH",
		SourceTemplateID:       templateID,
	}
}

func TestIdentityUsesSourceTemplateID(t *testing.T) {
	question := generatedQuestion("q-1", "tpl-1", "cocoa")
	key := question.Identity()
	if key.SourceRef != "tpl-1" {
		t.Fatalf("expected template id as source ref, got %q", key.SourceRef)
	}
}

func TestIdentityFallsBackToQuestionText(t *testing.T) {
	question := generatedQuestion("q-1", "", "cocoa")
	key := question.Identity()
	if key.SourceRef != question.Text {
		t.Fatalf("expected question text fallback, got %q", key.SourceRef)
	}
}

func TestIdentitySeparatorValuesDoNotCollide(t *testing.T) {
	// A commodity containing a plausible key separator must not produce
	// the same identity as a different split of the same characters.
	first := generatedQuestion("q-1", "tpl-1", "cocoa_GH")
	first.AssignedCountry = "CI"
	second := generatedQuestion("q-2", "tpl-1", "cocoa")
	second.AssignedCountry = "GH_CI"
	if first.Identity() == second.Identity() {
		t.Fatalf("expected distinct identities for separator-bearing values")
	}
}

func TestDeduplicateFirstOccurrenceWins(t *testing.T) {
	original := generatedQuestion("q-1", "tpl-1", "cocoa")
	duplicate := generatedQuestion("q-2", "tpl-1", "cocoa")
	other := generatedQuestion("q-3", "tpl-2", "cocoa")

	result := Deduplicate([]GeneratedQuestion{original, duplicate, other})
	if len(result) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(result))
	}
	if result[0].ID != "q-1" {
		t.Fatalf("expected first occurrence to win, got %q", result[0].ID)
	}
	if result[1].ID != "q-3" {
		t.Fatalf("expected non-duplicate to survive, got %q", result[1].ID)
	}
}

func TestDeduplicateIsIdempotent(t *testing.T) {
	questions := []GeneratedQuestion{
		generatedQuestion("q-1", "tpl-1", "cocoa"),
		generatedQuestion("q-2", "tpl-1", "cocoa"),
		generatedQuestion("q-3", "tpl-2", "coffee"),
	}
	once := Deduplicate(questions)
	twice := Deduplicate(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("expected dedupe to be idempotent: %v vs %v", once, twice)
	}
	if len(once) > len(questions) {
		t.Fatalf("dedupe must never grow the collection")
	}
}

func TestDeduplicateKeepsDistinctTriples(t *testing.T) {
	ghana := generatedQuestion("q-1", "tpl-1", "cocoa")
	ivory := generatedQuestion("q-2", "tpl-1", "cocoa")
	ivory.AssignedCountry = "CI"

	result := Deduplicate([]GeneratedQuestion{ghana, ivory})
	if len(result) != 2 {
		t.Fatalf("expected both triples to survive, got %d", len(result))
	}
}

func TestDeduplicateEmptyInput(t *testing.T) {
	if got := Deduplicate(nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}
