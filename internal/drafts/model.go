package drafts

import (
	"encoding/json"

	"github.com/openharvest/fieldcache/internal/survey"
)

// Status enumerates the lifecycle of an in-progress answer session.
type Status string

const (
	// StatusInProgress marks a draft that still has unanswered questions.
	StatusInProgress Status = "in_progress"
	// StatusCompleted marks a draft whose every question is answered but
	// which has not yet been submitted.
	StatusCompleted Status = "completed"
)

// Draft is the persisted in-progress answer session for one respondent:
// identity, the three assignment filters, the full answer map and
// timestamps. One draft exists per (project, respondent); saving replaces
// it whole.
type Draft struct {
	ProjectID           string              `json:"projectId"`
	RespondentID        string              `json:"respondentId"`
	RespondentName      string              `json:"respondentName,omitempty"`
	Target              survey.TargetTriple `json:"target"`
	Status              Status              `json:"status"`
	Answers             map[string]string   `json:"answers"`
	CreatedAtSeconds    int64               `json:"createdAtS"`
	LastAnswerAtSeconds int64               `json:"lastAnswerAtS"`
}

// AnswerRecord pairs a question id with its raw recorded value. Composite
// response types store the value JSON-encoded.
type AnswerRecord struct {
	QuestionID string `json:"questionId"`
	Value      string `json:"value"`
}

// DecodeAnswerValue interprets a stored answer value. Composite answers
// decode from JSON; a value that does not parse is returned as the raw
// string rather than dropped, so a malformed record never loses data.
func DecodeAnswerValue(raw string) any {
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return raw
	}
	return decoded
}
