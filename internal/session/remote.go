package session

import (
	"context"

	"github.com/openharvest/fieldcache/internal/drafts"
	"github.com/openharvest/fieldcache/internal/survey"
)

// Page identifies one page of a remote listing.
type Page struct {
	Number int
	Size   int
}

// RemoteDraft is the server's record of an in-progress session, consumed
// during resume reconciliation when connectivity allows.
type RemoteDraft struct {
	DraftID          string              `json:"draftId"`
	ProjectID        string              `json:"projectId"`
	RespondentID     string              `json:"respondentId"`
	RespondentName   string              `json:"respondentName,omitempty"`
	Target           survey.TargetTriple `json:"target"`
	Status           string              `json:"status,omitempty"`
	UpdatedAtSeconds int64               `json:"updatedAtS,omitempty"`
}

// QuestionSource is the remote question-assignment API this core consumes
// as the authoritative seed for local caches. The transport behind it is
// the surrounding application's concern.
type QuestionSource interface {
	QuestionsForRespondent(ctx context.Context, project survey.ProjectID, target survey.TargetTriple, page Page) ([]survey.GeneratedQuestion, error)
}

// DraftSource is the remote draft-and-responses API consumed during
// resume reconciliation. Implementations live outside this module; tests
// substitute stubs.
type DraftSource interface {
	DraftResponses(ctx context.Context, project survey.ProjectID) ([]RemoteDraft, error)
	RespondentResponses(ctx context.Context, draftID string) ([]drafts.AnswerRecord, error)
}
