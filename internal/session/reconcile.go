package session

import (
	"github.com/openharvest/fieldcache/internal/drafts"
	"github.com/openharvest/fieldcache/internal/survey"
)

// ResumePoint is the computed continuation state for an interrupted
// session: the index to resume at within the canonical question order,
// plus answered and total counts for progress display.
type ResumePoint struct {
	Index         int `json:"index"`
	AnsweredCount int `json:"answeredCount"`
	TotalCount    int `json:"totalCount"`
}

// Reconcile computes the resume point from the canonical question order
// and the set of already-answered question ids. Answers are not guaranteed
// to arrive in order (a respondent may skip and return), so the resume
// position is one past the last answered item in canonical order, clamped
// to the final question. With every question answered the resume point
// lands on the last question so the caller can present a review state.
func Reconcile(questions []survey.GeneratedQuestion, answered map[string]struct{}) ResumePoint {
	total := len(questions)
	if total == 0 {
		return ResumePoint{}
	}

	lastAnsweredIndex := -1
	answeredCount := 0
	for index := total - 1; index >= 0; index-- {
		if _, ok := answered[questions[index].ID]; !ok {
			continue
		}
		answeredCount++
		if index > lastAnsweredIndex {
			lastAnsweredIndex = index
		}
	}

	resumeIndex := lastAnsweredIndex + 1
	if resumeIndex > total-1 {
		resumeIndex = total - 1
	}

	return ResumePoint{
		Index:         resumeIndex,
		AnsweredCount: answeredCount,
		TotalCount:    total,
	}
}

// MergeAnswers combines locally drafted answers with remotely recorded
// response records. The remote value wins when both exist for the same
// question id, since the server is authoritative once reachable.
func MergeAnswers(local map[string]string, remote []drafts.AnswerRecord) map[string]string {
	merged := make(map[string]string, len(local)+len(remote))
	for questionID, value := range local {
		merged[questionID] = value
	}
	for _, record := range remote {
		if record.QuestionID == "" {
			continue
		}
		merged[record.QuestionID] = record.Value
	}
	return merged
}

func answeredSet(answers map[string]string) map[string]struct{} {
	set := make(map[string]struct{}, len(answers))
	for questionID := range answers {
		set[questionID] = struct{}{}
	}
	return set
}
