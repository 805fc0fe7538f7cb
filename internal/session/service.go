package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/openharvest/fieldcache/internal/cache"
	"github.com/openharvest/fieldcache/internal/drafts"
	"github.com/openharvest/fieldcache/internal/survey"
)

var (
	errMissingBankStore      = errors.New("question bank store is required")
	errMissingGeneratedStore = errors.New("generated question store is required")
	errMissingDraftStore     = errors.New("draft store is required")
	errMissingGenerator      = errors.New("generator is required")
	errMissingQuestionSource = errors.New("no remote question source configured")
	noOpLogger               = zap.NewNop()

	// ErrDraftNotFound indicates that neither a local nor a remote draft
	// exists for the respondent.
	ErrDraftNotFound = errors.New("session: no draft exists for respondent")
)

// ServiceError carries a dotted operation code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the dotted operation code, e.g. "session.resume.incomplete_target".
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew      = "session.service.new"
	opSeedBank        = "session.seed_bank"
	opQuestionBank    = "session.question_bank"
	opGenerateOffline = "session.generate_offline"
	opListQuestions   = "session.list_questions"
	opSyncQuestions   = "session.sync_questions"
	opSaveDraft       = "session.save_draft"
	opGetDraft        = "session.get_draft"
	opDiscardDraft    = "session.discard_draft"
	opResume          = "session.resume"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig carries the dependencies for a Service.
type ServiceConfig struct {
	Bank      *cache.QuestionBankStore
	Generated *cache.GeneratedQuestionStore
	Drafts    *drafts.Store
	Generator *survey.Generator
	// Remote is the server-held draft record source. Optional: without it
	// resume runs purely on local state.
	Remote DraftSource
	// Questions is the server-side question-assignment source. Optional:
	// without it the cache is seeded only through SeedQuestionBank.
	Questions QuestionSource
	Clock     func() time.Time
	Logger    *zap.Logger
}

// Service coordinates the offline question-generation and draft-resume
// flows over the cache stores. All operations are safe to invoke
// repeatedly with the same input.
type Service struct {
	bank      *cache.QuestionBankStore
	generated *cache.GeneratedQuestionStore
	drafts    *drafts.Store
	generator *survey.Generator
	remote    DraftSource
	questions QuestionSource
	clock     func() time.Time
	logger    *zap.Logger
}

// NewService validates dependencies and returns a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Bank == nil {
		return nil, newServiceError(opServiceNew, "missing_bank_store", errMissingBankStore)
	}
	if cfg.Generated == nil {
		return nil, newServiceError(opServiceNew, "missing_generated_store", errMissingGeneratedStore)
	}
	if cfg.Drafts == nil {
		return nil, newServiceError(opServiceNew, "missing_draft_store", errMissingDraftStore)
	}
	if cfg.Generator == nil {
		return nil, newServiceError(opServiceNew, "missing_generator", errMissingGenerator)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		bank:      cfg.Bank,
		generated: cfg.Generated,
		drafts:    cfg.Drafts,
		generator: cfg.Generator,
		remote:    cfg.Remote,
		questions: cfg.Questions,
		clock:     clock,
		logger:    logger,
	}, nil
}

// SeedQuestionBank replaces a project's cached templates with a freshly
// synced collection.
func (s *Service) SeedQuestionBank(ctx context.Context, project survey.ProjectID, templates []survey.QuestionTemplate) error {
	if err := s.bank.Put(ctx, project, templates); err != nil {
		s.logError(opSeedBank, "bank_write_failed", err, zap.String("project", project.String()))
		return newServiceError(opSeedBank, "bank_write_failed", err)
	}
	return nil
}

// QuestionBank returns a project's cached templates with read statistics.
func (s *Service) QuestionBank(ctx context.Context, project survey.ProjectID) ([]survey.QuestionTemplate, cache.ReadStats, error) {
	templates, stats, err := s.bank.Get(ctx, project)
	if err != nil {
		s.logError(opQuestionBank, "bank_read_failed", err, zap.String("project", project.String()))
		return nil, stats, newServiceError(opQuestionBank, "bank_read_failed", err)
	}
	return templates, stats, nil
}

// GenerateOffline reproduces the server's question assignment against the
// cached bank for one target triple and persists the newly generated
// questions. Repeated calls for an already-covered triple generate nothing.
func (s *Service) GenerateOffline(ctx context.Context, project survey.ProjectID, target survey.TargetTriple) ([]survey.GeneratedQuestion, error) {
	if err := target.Validate(); err != nil {
		s.logError(opGenerateOffline, "incomplete_target", err, zap.String("project", project.String()))
		return nil, newServiceError(opGenerateOffline, "incomplete_target", err)
	}

	templates, bankStats, err := s.bank.Get(ctx, project)
	if err != nil {
		s.logError(opGenerateOffline, "bank_read_failed", err, zap.String("project", project.String()))
		return nil, newServiceError(opGenerateOffline, "bank_read_failed", err)
	}
	if !bankStats.Complete() {
		s.logger.Warn("question bank read incomplete, generating from partial data",
			zap.String("project", project.String()),
			zap.Int("expected_chunks", bankStats.ExpectedChunks),
			zap.Int("loaded_chunks", bankStats.LoadedChunks))
	}

	existing, _, err := s.generated.Get(ctx, project)
	if err != nil {
		s.logError(opGenerateOffline, "generated_read_failed", err, zap.String("project", project.String()))
		return nil, newServiceError(opGenerateOffline, "generated_read_failed", err)
	}

	generated, err := s.generator.Generate(project, target, templates, existing)
	if err != nil {
		reason := "generation_failed"
		if errors.Is(err, survey.ErrCacheNotPopulated) {
			reason = "cache_not_populated"
		}
		s.logError(opGenerateOffline, reason, err, zap.String("project", project.String()))
		return nil, newServiceError(opGenerateOffline, reason, err)
	}
	if len(generated) == 0 {
		return nil, nil
	}

	if err := s.generated.Put(ctx, project, append(existing, generated...)); err != nil {
		s.logError(opGenerateOffline, "generated_write_failed", err, zap.String("project", project.String()))
		return nil, newServiceError(opGenerateOffline, "generated_write_failed", err)
	}
	return generated, nil
}

const syncPageSize = 100

// SyncGeneratedQuestions pulls the server-assigned questions for one
// target triple into the local cache, page by page, while connectivity
// lasts. Server records merge with locally generated ones through the
// store's identity deduplication, so a repeated sync never grows the
// cache. Returns the number of records fetched.
func (s *Service) SyncGeneratedQuestions(ctx context.Context, project survey.ProjectID, target survey.TargetTriple) (int, error) {
	if s.questions == nil {
		return 0, newServiceError(opSyncQuestions, "no_remote_source", errMissingQuestionSource)
	}
	if err := target.Validate(); err != nil {
		s.logError(opSyncQuestions, "incomplete_target", err, zap.String("project", project.String()))
		return 0, newServiceError(opSyncQuestions, "incomplete_target", err)
	}

	var fetched []survey.GeneratedQuestion
	for page := 1; ; page++ {
		batch, err := s.questions.QuestionsForRespondent(ctx, project, target, Page{Number: page, Size: syncPageSize})
		if err != nil {
			s.logError(opSyncQuestions, "remote_fetch_failed", err,
				zap.String("project", project.String()),
				zap.Int("page", page))
			return 0, newServiceError(opSyncQuestions, "remote_fetch_failed", err)
		}
		fetched = append(fetched, batch...)
		if len(batch) < syncPageSize {
			break
		}
	}
	if len(fetched) == 0 {
		return 0, nil
	}

	existing, _, err := s.generated.Get(ctx, project)
	if err != nil {
		s.logError(opSyncQuestions, "generated_read_failed", err, zap.String("project", project.String()))
		return 0, newServiceError(opSyncQuestions, "generated_read_failed", err)
	}
	if err := s.generated.Put(ctx, project, append(fetched, existing...)); err != nil {
		s.logError(opSyncQuestions, "generated_write_failed", err, zap.String("project", project.String()))
		return 0, newServiceError(opSyncQuestions, "generated_write_failed", err)
	}
	return len(fetched), nil
}

// QuestionsForTarget returns the cached generated questions pinned to one
// target triple, ordered by their order index.
func (s *Service) QuestionsForTarget(ctx context.Context, project survey.ProjectID, target survey.TargetTriple) ([]survey.GeneratedQuestion, cache.ReadStats, error) {
	if err := target.Validate(); err != nil {
		return nil, cache.ReadStats{}, newServiceError(opListQuestions, "incomplete_target", err)
	}
	questions, stats, err := s.generated.Get(ctx, project)
	if err != nil {
		s.logError(opListQuestions, "generated_read_failed", err, zap.String("project", project.String()))
		return nil, stats, newServiceError(opListQuestions, "generated_read_failed", err)
	}

	matched := make([]survey.GeneratedQuestion, 0, len(questions))
	for _, question := range questions {
		if question.AssignedRespondentType == target.RespondentType &&
			question.AssignedCommodity == target.Commodity &&
			question.AssignedCountry == target.Country {
			matched = append(matched, question)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].OrderIndex < matched[j].OrderIndex
	})
	return matched, stats, nil
}

// SaveDraft persists the respondent's in-progress session. A partially
// filled target triple is allowed here; it only becomes fatal at resume or
// generation time.
func (s *Service) SaveDraft(ctx context.Context, draft drafts.Draft) error {
	if err := s.drafts.Save(ctx, draft); err != nil {
		s.logError(opSaveDraft, "draft_save_failed", err,
			zap.String("project", draft.ProjectID),
			zap.String("respondent", draft.RespondentID))
		return newServiceError(opSaveDraft, "draft_save_failed", err)
	}
	return nil
}

// Draft returns the locally stored draft for a respondent, if any.
func (s *Service) Draft(ctx context.Context, project survey.ProjectID, respondent survey.RespondentID) (drafts.Draft, bool, error) {
	draft, ok, err := s.drafts.Get(ctx, project, respondent)
	if err != nil {
		s.logError(opGetDraft, "draft_read_failed", err,
			zap.String("project", project.String()),
			zap.String("respondent", respondent.String()))
		return drafts.Draft{}, false, newServiceError(opGetDraft, "draft_read_failed", err)
	}
	return draft, ok, nil
}

// DiscardDraft removes the locally stored draft for a respondent.
func (s *Service) DiscardDraft(ctx context.Context, project survey.ProjectID, respondent survey.RespondentID) error {
	if err := s.drafts.Discard(ctx, project, respondent); err != nil {
		s.logError(opDiscardDraft, "draft_discard_failed", err,
			zap.String("project", project.String()),
			zap.String("respondent", respondent.String()))
		return newServiceError(opDiscardDraft, "draft_discard_failed", err)
	}
	return nil
}

// ResumeResult is the merged continuation state for an interrupted session.
type ResumeResult struct {
	Point     ResumePoint
	Questions []survey.GeneratedQuestion
	Answers   map[string]string
	Stats     cache.ReadStats
}

// Resume merges the local draft, the server-held draft record when one is
// reachable, and the cached question order into a single resume point.
// The operation refuses to run on an incomplete target triple and writes
// no state.
func (s *Service) Resume(ctx context.Context, project survey.ProjectID, respondent survey.RespondentID) (ResumeResult, error) {
	localDraft, hasLocal, err := s.drafts.Get(ctx, project, respondent)
	if err != nil {
		s.logError(opResume, "draft_read_failed", err,
			zap.String("project", project.String()),
			zap.String("respondent", respondent.String()))
		return ResumeResult{}, newServiceError(opResume, "draft_read_failed", err)
	}

	remoteDraft, hasRemote := s.fetchRemoteDraft(ctx, project, respondent)

	var target survey.TargetTriple
	switch {
	case hasLocal:
		target = localDraft.Target
	case hasRemote:
		target = remoteDraft.Target
	default:
		s.logError(opResume, "draft_not_found", ErrDraftNotFound,
			zap.String("project", project.String()),
			zap.String("respondent", respondent.String()))
		return ResumeResult{}, newServiceError(opResume, "draft_not_found", ErrDraftNotFound)
	}

	if err := target.Validate(); err != nil {
		s.logError(opResume, "incomplete_target", err,
			zap.String("project", project.String()),
			zap.String("respondent", respondent.String()))
		return ResumeResult{}, newServiceError(opResume, "incomplete_target", err)
	}

	var remoteAnswers []drafts.AnswerRecord
	if hasRemote && s.remote != nil {
		records, err := s.remote.RespondentResponses(ctx, remoteDraft.DraftID)
		if err != nil {
			// Offline is the normal case; local answers carry the session.
			s.logger.Warn("remote responses unavailable, resuming from local answers",
				zap.String("project", project.String()),
				zap.String("respondent", respondent.String()),
				zap.Error(err))
		} else {
			remoteAnswers = records
		}
	}
	answers := MergeAnswers(localDraft.Answers, remoteAnswers)

	questions, stats, err := s.QuestionsForTarget(ctx, project, target)
	if err != nil {
		return ResumeResult{}, err
	}
	if len(questions) == 0 {
		err := fmt.Errorf("%w: no generated questions for target", survey.ErrCacheNotPopulated)
		s.logError(opResume, "cache_not_populated", err,
			zap.String("project", project.String()),
			zap.String("respondent", respondent.String()))
		return ResumeResult{}, newServiceError(opResume, "cache_not_populated", err)
	}

	return ResumeResult{
		Point:     Reconcile(questions, answeredSet(answers)),
		Questions: questions,
		Answers:   answers,
		Stats:     stats,
	}, nil
}

func (s *Service) fetchRemoteDraft(ctx context.Context, project survey.ProjectID, respondent survey.RespondentID) (RemoteDraft, bool) {
	if s.remote == nil {
		return RemoteDraft{}, false
	}
	remoteDrafts, err := s.remote.DraftResponses(ctx, project)
	if err != nil {
		s.logger.Warn("remote drafts unavailable, resuming from local state",
			zap.String("project", project.String()),
			zap.Error(err))
		return RemoteDraft{}, false
	}
	for _, candidate := range remoteDrafts {
		if candidate.RespondentID == respondent.String() {
			return candidate, true
		}
	}
	return RemoteDraft{}, false
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("session service error", attrs...)
}
