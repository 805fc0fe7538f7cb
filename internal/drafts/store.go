package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/openharvest/fieldcache/internal/kvstore"
	"github.com/openharvest/fieldcache/internal/survey"
)

var (
	// ErrDraftCorrupt indicates a stored draft that no longer parses.
	ErrDraftCorrupt = errors.New("drafts: stored draft corrupt")

	errMissingBackend = errors.New("key-value backend is required")
)

// StoreConfig carries the dependencies for a draft Store.
type StoreConfig struct {
	Backend kvstore.Store
	Clock   func() time.Time
	Logger  *zap.Logger
}

// Store persists one draft per (project, respondent) session over the
// key-value backend. Server-side draft synchronization is the surrounding
// application's concern; this store only holds the local representation.
type Store struct {
	kv     kvstore.Store
	clock  func() time.Time
	logger *zap.Logger
}

// NewStore validates the configuration and returns a draft Store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Backend == nil {
		return nil, errMissingBackend
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: cfg.Backend, clock: clock, logger: logger}, nil
}

func draftKey(project survey.ProjectID, respondent survey.RespondentID) string {
	return fmt.Sprintf("fieldcache_draft_%s_%s", project, respondent)
}

// Save persists the draft, overwriting any existing draft for the same
// respondent. CreatedAtSeconds is stamped on first save and preserved on
// overwrite; LastAnswerAtSeconds is stamped on every save.
func (s *Store) Save(ctx context.Context, draft Draft) error {
	project, err := survey.NewProjectID(draft.ProjectID)
	if err != nil {
		return err
	}
	respondent, err := survey.NewRespondentID(draft.RespondentID)
	if err != nil {
		return err
	}

	now := s.clock().UTC().Unix()
	if draft.CreatedAtSeconds == 0 {
		draft.CreatedAtSeconds = now
		if existing, ok, err := s.Get(ctx, project, respondent); err == nil && ok {
			draft.CreatedAtSeconds = existing.CreatedAtSeconds
		}
	}
	draft.LastAnswerAtSeconds = now
	if draft.Status == "" {
		draft.Status = StatusInProgress
	}
	if draft.Answers == nil {
		draft.Answers = make(map[string]string)
	}

	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("drafts: marshal draft: %w", err)
	}
	if err := s.kv.Set(ctx, draftKey(project, respondent), string(payload)); err != nil {
		return fmt.Errorf("drafts: save draft: %w", err)
	}
	s.logger.Debug("draft saved",
		zap.String("project", project.String()),
		zap.String("respondent", respondent.String()),
		zap.Int("answers", len(draft.Answers)))
	return nil
}

// Get returns the stored draft for a respondent, if any.
func (s *Store) Get(ctx context.Context, project survey.ProjectID, respondent survey.RespondentID) (Draft, bool, error) {
	raw, ok, err := s.kv.Get(ctx, draftKey(project, respondent))
	if err != nil {
		return Draft{}, false, fmt.Errorf("drafts: read draft: %w", err)
	}
	if !ok {
		return Draft{}, false, nil
	}
	var draft Draft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return Draft{}, false, fmt.Errorf("%w: %v", ErrDraftCorrupt, err)
	}
	return draft, true, nil
}

// Discard removes the stored draft for a respondent. Removing a missing
// draft is not an error.
func (s *Store) Discard(ctx context.Context, project survey.ProjectID, respondent survey.RespondentID) error {
	if err := s.kv.Remove(ctx, draftKey(project, respondent)); err != nil {
		return fmt.Errorf("drafts: discard draft: %w", err)
	}
	return nil
}
