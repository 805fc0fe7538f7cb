package drafts

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/openharvest/fieldcache/internal/kvstore"
	"github.com/openharvest/fieldcache/internal/survey"
)

func mustProject(t *testing.T, raw string) survey.ProjectID {
	t.Helper()
	project, err := survey.NewProjectID(raw)
	if err != nil {
		t.Fatalf("failed to build project id: %v", err)
	}
	return project
}

func mustRespondent(t *testing.T, raw string) survey.RespondentID {
	t.Helper()
	respondent, err := survey.NewRespondentID(raw)
	if err != nil {
		t.Fatalf("failed to build respondent id: %v", err)
	}
	return respondent
}

func newTestStore(t *testing.T, backend kvstore.Store, clock func() time.Time) *Store {
	t.Helper()
	if clock == nil {
		clock = func() time.Time { return time.Unix(1700000000, 0) }
	}
	store, err := NewStore(StoreConfig{Backend: backend, Clock: clock})
	if err != nil {
		t.Fatalf("failed to build draft store: %v", err)
	}
	return store
}

func sampleDraft() Draft {
	return Draft{
		ProjectID:    "project-1",
		RespondentID: "resp-1",
		Target:       survey.TargetTriple{RespondentType: "farmer", Commodity: "cocoa", Country: "GH"},
		Answers:      map[string]string{"q-1": "12"},
	}
}

func TestDraftSaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, kvstore.NewMemory(), nil)

	if err := store.Save(ctx, sampleDraft()); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	draft, ok, err := store.Get(ctx, mustProject(t, "project-1"), mustRespondent(t, "resp-1"))
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if !ok {
		t.Fatalf("expected stored draft")
	}
	if draft.Status != StatusInProgress {
		t.Fatalf("expected default status, got %q", draft.Status)
	}
	if draft.CreatedAtSeconds != 1700000000 || draft.LastAnswerAtSeconds != 1700000000 {
		t.Fatalf("expected timestamps stamped, got %d / %d", draft.CreatedAtSeconds, draft.LastAnswerAtSeconds)
	}
	if !reflect.DeepEqual(draft.Answers, map[string]string{"q-1": "12"}) {
		t.Fatalf("unexpected answers: %v", draft.Answers)
	}
}

func TestDraftSaveOverwritesAndKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	store := newTestStore(t, kvstore.NewMemory(), func() time.Time { return now })

	if err := store.Save(ctx, sampleDraft()); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	now = time.Unix(1700000500, 0)
	updated := sampleDraft()
	updated.Answers["q-2"] = "yes"
	if err := store.Save(ctx, updated); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	draft, ok, err := store.Get(ctx, mustProject(t, "project-1"), mustRespondent(t, "resp-1"))
	if err != nil || !ok {
		t.Fatalf("unexpected get result: ok=%v err=%v", ok, err)
	}
	if draft.CreatedAtSeconds != 1700000000 {
		t.Fatalf("expected original creation time preserved, got %d", draft.CreatedAtSeconds)
	}
	if draft.LastAnswerAtSeconds != 1700000500 {
		t.Fatalf("expected last answer time updated, got %d", draft.LastAnswerAtSeconds)
	}
	if len(draft.Answers) != 2 {
		t.Fatalf("expected overwritten answers, got %v", draft.Answers)
	}
}

func TestDraftDiscard(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, kvstore.NewMemory(), nil)

	if err := store.Save(ctx, sampleDraft()); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}
	if err := store.Discard(ctx, mustProject(t, "project-1"), mustRespondent(t, "resp-1")); err != nil {
		t.Fatalf("unexpected discard error: %v", err)
	}
	if _, ok, _ := store.Get(ctx, mustProject(t, "project-1"), mustRespondent(t, "resp-1")); ok {
		t.Fatalf("expected draft removed")
	}

	// Discarding again is a no-op, not an error.
	if err := store.Discard(ctx, mustProject(t, "project-1"), mustRespondent(t, "resp-1")); err != nil {
		t.Fatalf("unexpected repeat discard error: %v", err)
	}
}

func TestDraftSaveRejectsInvalidIdentifiers(t *testing.T) {
	store := newTestStore(t, kvstore.NewMemory(), nil)
	draft := sampleDraft()
	draft.ProjectID = "  "
	if err := store.Save(context.Background(), draft); !errors.Is(err, survey.ErrInvalidProjectID) {
		t.Fatalf("expected invalid project id, got %v", err)
	}
}

func TestDraftCorruptPayloadSurfacesTypedError(t *testing.T) {
	ctx := context.Background()
	backend := kvstore.NewMemory()
	store := newTestStore(t, backend, nil)

	if err := backend.Set(ctx, "fieldcache_draft_project-1_resp-1", "{broken"); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	_, _, err := store.Get(ctx, mustProject(t, "project-1"), mustRespondent(t, "resp-1"))
	if !errors.Is(err, ErrDraftCorrupt) {
		t.Fatalf("expected corrupt draft error, got %v", err)
	}
}

func TestDecodeAnswerValueParsesComposite(t *testing.T) {
	decoded := DecodeAnswerValue(`{"selected":["cocoa","coffee"]}`)
	composite, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("expected composite value, got %T", decoded)
	}
	if _, ok := composite["selected"]; !ok {
		t.Fatalf("expected selected key, got %v", composite)
	}
}

func TestDecodeAnswerValueKeepsUnparseableRaw(t *testing.T) {
	raw := "not json at all {"
	if got := DecodeAnswerValue(raw); got != raw {
		t.Fatalf("expected raw value preserved, got %v", got)
	}
}
