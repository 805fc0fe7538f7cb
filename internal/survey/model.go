package survey

import (
	"errors"
	"fmt"
	"strings"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidProjectID indicates that a project identifier is empty or exceeds storage bounds.
	ErrInvalidProjectID = errors.New("survey: invalid project id")
	// ErrInvalidRespondentID indicates that a respondent identifier is empty or exceeds storage bounds.
	ErrInvalidRespondentID = errors.New("survey: invalid respondent id")
	// ErrIncompleteTargetTriple indicates that one of the three assignment
	// dimensions is missing. Operations refuse to proceed on it because a
	// partial triple risks surfacing a respondent's data against the wrong
	// question set.
	ErrIncompleteTargetTriple = errors.New("survey: incomplete target triple")
	// ErrCacheNotPopulated indicates that the local question bank holds no
	// templates for a project, meaning a sync is needed. Distinct from a
	// populated bank where zero templates match.
	ErrCacheNotPopulated = errors.New("survey: question cache not populated")
)

// ProjectID represents a validated project identifier.
type ProjectID string

// NewProjectID validates raw input and returns a ProjectID.
func NewProjectID(rawInput string) (ProjectID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidProjectID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidProjectID, maxIdentifierLength)
	}
	return ProjectID(trimmed), nil
}

// String returns the underlying string identifier.
func (id ProjectID) String() string {
	return string(id)
}

// RespondentID represents a validated respondent identifier.
type RespondentID string

// NewRespondentID validates raw input and returns a RespondentID.
func NewRespondentID(rawInput string) (RespondentID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidRespondentID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidRespondentID, maxIdentifierLength)
	}
	return RespondentID(trimmed), nil
}

// String returns the underlying string identifier.
func (id RespondentID) String() string {
	return string(id)
}

// QuestionTemplate is a reusable question-bank entry with targeting
// metadata, authored server-side and read-only once cached locally.
type QuestionTemplate struct {
	ID                    string   `json:"id"`
	ProjectID             string   `json:"projectId"`
	Text                  string   `json:"text"`
	Category              string   `json:"category,omitempty"`
	ResponseType          string   `json:"responseType"`
	Required              bool     `json:"required"`
	Options               []string `json:"options,omitempty"`
	TargetRespondentTypes []string `json:"targetRespondentTypes,omitempty"`
	TargetCommodities     []string `json:"targetCommodities,omitempty"`
	TargetCountries       []string `json:"targetCountries,omitempty"`
	FollowUp              bool     `json:"followUp,omitempty"`
	ConditionalLogic      string   `json:"conditionalLogic,omitempty"`
	SectionHeader         string   `json:"sectionHeader,omitempty"`
	SectionPreamble       string   `json:"sectionPreamble,omitempty"`
	CreatedAtSeconds      int64    `json:"createdAtS,omitempty"`
	UpdatedAtSeconds      int64    `json:"updatedAtS,omitempty"`
}

// GeneratedQuestion is a template instantiated for one respondent context.
// Records are never mutated after creation; regeneration supersedes them.
type GeneratedQuestion struct {
	ID                     string   `json:"id"`
	ProjectID              string   `json:"projectId"`
	Text                   string   `json:"text"`
	Category               string   `json:"category,omitempty"`
	ResponseType           string   `json:"responseType"`
	Required               bool     `json:"required"`
	Options                []string `json:"options,omitempty"`
	AssignedRespondentType string   `json:"assignedRespondentType"`
	AssignedCommodity      string   `json:"assignedCommodity"`
	AssignedCountry        string   `json:"assignedCountry"`
	OrderIndex             int      `json:"orderIndex"`
	SourceTemplateID       string   `json:"sourceTemplateId,omitempty"`
	FollowUp               bool     `json:"followUp,omitempty"`
	ConditionalLogic       string   `json:"conditionalLogic,omitempty"`
	SectionHeader          string   `json:"sectionHeader,omitempty"`
	SectionPreamble        string   `json:"sectionPreamble,omitempty"`
	CreatedAtSeconds       int64    `json:"createdAtS,omitempty"`
}

// TargetTriple pins a question set to one respondent context. Commodity may
// be a comma-joined list when a respondent covers several commodities.
type TargetTriple struct {
	RespondentType string `json:"respondentType"`
	Commodity      string `json:"commodity"`
	Country        string `json:"country"`
}

// Validate reports an incomplete triple, naming every missing dimension.
func (t TargetTriple) Validate() error {
	var missing []string
	if strings.TrimSpace(t.RespondentType) == "" {
		missing = append(missing, "respondentType")
	}
	if strings.TrimSpace(t.Commodity) == "" {
		missing = append(missing, "commodity")
	}
	if strings.TrimSpace(t.Country) == "" {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteTargetTriple, strings.Join(missing, ", "))
	}
	return nil
}

// Commodities splits the comma-joined commodity list into trimmed values.
func (t TargetTriple) Commodities() []string {
	if strings.TrimSpace(t.Commodity) == "" {
		return nil
	}
	parts := strings.Split(t.Commodity, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
