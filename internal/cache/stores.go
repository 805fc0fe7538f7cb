package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/openharvest/fieldcache/internal/kvstore"
	"github.com/openharvest/fieldcache/internal/survey"
)

const (
	kindQuestionBank = "fieldcache_question_bank"
	kindGenerated    = "fieldcache_generated_questions"
)

// StoreConfig carries the dependencies and tuning for a collection store.
// Zero values fall back to the defaults the field client ships with.
type StoreConfig struct {
	Backend       kvstore.Store
	CeilingBytes  int
	ChunkBudgetMB float64
	Clock         func() time.Time
	Logger        *zap.Logger
}

func newCollection(cfg StoreConfig, kind string) (*collection, error) {
	if cfg.Backend == nil {
		return nil, errMissingBackend
	}
	ceiling := cfg.CeilingBytes
	if ceiling <= 0 {
		ceiling = DefaultCeilingBytes
	}
	budget := cfg.ChunkBudgetMB
	if budget <= 0 {
		budget = DefaultChunkBudgetMB
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &collection{
		kv:            cfg.Backend,
		kind:          kind,
		ceilingBytes:  ceiling,
		chunkBudgetMB: budget,
		clock:         clock,
		logger:        logger,
	}, nil
}

// QuestionBankStore persists per-project question-template collections,
// transparently chunked when large.
type QuestionBankStore struct {
	col *collection
}

// NewQuestionBankStore validates the configuration and returns a store.
func NewQuestionBankStore(cfg StoreConfig) (*QuestionBankStore, error) {
	col, err := newCollection(cfg, kindQuestionBank)
	if err != nil {
		return nil, err
	}
	return &QuestionBankStore{col: col}, nil
}

// Put compresses and persists a project's templates. Safe to call
// repeatedly with the same input.
func (s *QuestionBankStore) Put(ctx context.Context, project survey.ProjectID, templates []survey.QuestionTemplate) error {
	records := make([]CompressedQuestion, 0, len(templates))
	for _, template := range templates {
		records = append(records, CompressTemplate(template))
	}
	return s.col.put(ctx, project.String(), records)
}

// Get returns a project's cached templates. ReadStats reports expected
// versus loaded chunk counts so callers can detect an incomplete read.
func (s *QuestionBankStore) Get(ctx context.Context, project survey.ProjectID) ([]survey.QuestionTemplate, ReadStats, error) {
	records, stats, err := s.col.get(ctx, project.String())
	if err != nil {
		return nil, stats, err
	}
	templates := make([]survey.QuestionTemplate, 0, len(records))
	for _, record := range records {
		templates = append(templates, record.Template())
	}
	return templates, stats, nil
}

// GeneratedQuestionStore persists per-project generated-question
// collections. Every write is deduplicated by identity key first, so
// regenerating an already-covered respondent context never grows the store.
type GeneratedQuestionStore struct {
	col *collection
}

// NewGeneratedQuestionStore validates the configuration and returns a store.
func NewGeneratedQuestionStore(cfg StoreConfig) (*GeneratedQuestionStore, error) {
	col, err := newCollection(cfg, kindGenerated)
	if err != nil {
		return nil, err
	}
	return &GeneratedQuestionStore{col: col}, nil
}

// Put deduplicates, compresses and persists a project's generated
// questions. Safe to call repeatedly with the same input.
func (s *GeneratedQuestionStore) Put(ctx context.Context, project survey.ProjectID, questions []survey.GeneratedQuestion) error {
	deduplicated := survey.Deduplicate(questions)
	records := make([]CompressedQuestion, 0, len(deduplicated))
	for _, question := range deduplicated {
		records = append(records, CompressGenerated(question))
	}
	return s.col.put(ctx, project.String(), records)
}

// Get returns a project's cached generated questions in stored order.
func (s *GeneratedQuestionStore) Get(ctx context.Context, project survey.ProjectID) ([]survey.GeneratedQuestion, ReadStats, error) {
	records, stats, err := s.col.get(ctx, project.String())
	if err != nil {
		return nil, stats, err
	}
	questions := make([]survey.GeneratedQuestion, 0, len(records))
	for _, record := range records {
		questions = append(questions, record.Generated())
	}
	return questions, stats, nil
}
