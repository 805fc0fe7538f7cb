package survey

// IdentityKey identifies one generated question within a respondent
// context. It is a comparable struct rather than a joined string so that
// commodity values containing a separator cannot collide.
type IdentityKey struct {
	ProjectID      string
	RespondentType string
	Commodity      string
	Country        string
	SourceRef      string
}

// Identity derives the deduplication key for a generated question. The
// source template id anchors the key; questions generated before template
// back-references existed fall back to the question text.
func (q GeneratedQuestion) Identity() IdentityKey {
	sourceRef := q.SourceTemplateID
	if sourceRef == "" {
		sourceRef = q.Text
	}
	return IdentityKey{
		ProjectID:      q.ProjectID,
		RespondentType: q.AssignedRespondentType,
		Commodity:      q.AssignedCommodity,
		Country:        q.AssignedCountry,
		SourceRef:      sourceRef,
	}
}

// Deduplicate collapses a generated-question collection to at most one
// record per identity key. The first occurrence wins; later duplicates are
// dropped. Order of the survivors is preserved.
func Deduplicate(questions []GeneratedQuestion) []GeneratedQuestion {
	if len(questions) == 0 {
		return questions
	}
	seen := make(map[IdentityKey]struct{}, len(questions))
	result := make([]GeneratedQuestion, 0, len(questions))
	for _, question := range questions {
		key := question.Identity()
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, question)
	}
	return result
}
