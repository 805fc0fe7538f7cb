package cache

import (
	"github.com/openharvest/fieldcache/internal/survey"
)

// CompressedQuestion is the persisted wire form shared by the question
// bank and generated-question caches. Every optional field carries
// omitempty, so attributes that are empty at write time disappear from the
// stored payload entirely. Readers must treat an absent optional field as
// "use the caller-side default", never as "explicitly empty": compression
// is lossless for the fields it retains and fabricates nothing for the
// ones it drops. Timestamps are not retained.
type CompressedQuestion struct {
	ID                     string   `json:"id"`
	ProjectID              string   `json:"projectId"`
	Text                   string   `json:"text"`
	ResponseType           string   `json:"responseType"`
	Required               bool     `json:"required"`
	Category               string   `json:"category,omitempty"`
	Options                []string `json:"options,omitempty"`
	AssignedRespondentType string   `json:"assignedRespondentType,omitempty"`
	AssignedCommodity      string   `json:"assignedCommodity,omitempty"`
	AssignedCountry        string   `json:"assignedCountry,omitempty"`
	TargetRespondentTypes  []string `json:"targetRespondentTypes,omitempty"`
	TargetCommodities      []string `json:"targetCommodities,omitempty"`
	TargetCountries        []string `json:"targetCountries,omitempty"`
	OrderIndex             int      `json:"orderIndex,omitempty"`
	SourceTemplateID       string   `json:"sourceTemplateId,omitempty"`
	FollowUp               bool     `json:"followUp,omitempty"`
	ConditionalLogic       string   `json:"conditionalLogic,omitempty"`
	SectionHeader          string   `json:"sectionHeader,omitempty"`
	SectionPreamble        string   `json:"sectionPreamble,omitempty"`
}

// CompressTemplate strips a question-bank template to its essential fields.
func CompressTemplate(template survey.QuestionTemplate) CompressedQuestion {
	return CompressedQuestion{
		ID:                    template.ID,
		ProjectID:             template.ProjectID,
		Text:                  template.Text,
		ResponseType:          template.ResponseType,
		Required:              template.Required,
		Category:              template.Category,
		Options:               template.Options,
		TargetRespondentTypes: template.TargetRespondentTypes,
		TargetCommodities:     template.TargetCommodities,
		TargetCountries:       template.TargetCountries,
		FollowUp:              template.FollowUp,
		ConditionalLogic:      template.ConditionalLogic,
		SectionHeader:         template.SectionHeader,
		SectionPreamble:       template.SectionPreamble,
	}
}

// CompressGenerated strips a generated question to its essential fields.
func CompressGenerated(question survey.GeneratedQuestion) CompressedQuestion {
	return CompressedQuestion{
		ID:                     question.ID,
		ProjectID:              question.ProjectID,
		Text:                   question.Text,
		ResponseType:           question.ResponseType,
		Required:               question.Required,
		Category:               question.Category,
		Options:                question.Options,
		AssignedRespondentType: question.AssignedRespondentType,
		AssignedCommodity:      question.AssignedCommodity,
		AssignedCountry:        question.AssignedCountry,
		OrderIndex:             question.OrderIndex,
		SourceTemplateID:       question.SourceTemplateID,
		FollowUp:               question.FollowUp,
		ConditionalLogic:       question.ConditionalLogic,
		SectionHeader:          question.SectionHeader,
		SectionPreamble:        question.SectionPreamble,
	}
}

// Template restores a question-bank template from its compressed form.
// Dropped timestamps come back as zero values.
func (c CompressedQuestion) Template() survey.QuestionTemplate {
	return survey.QuestionTemplate{
		ID:                    c.ID,
		ProjectID:             c.ProjectID,
		Text:                  c.Text,
		ResponseType:          c.ResponseType,
		Required:              c.Required,
		Category:              c.Category,
		Options:               c.Options,
		TargetRespondentTypes: c.TargetRespondentTypes,
		TargetCommodities:     c.TargetCommodities,
		TargetCountries:       c.TargetCountries,
		FollowUp:              c.FollowUp,
		ConditionalLogic:      c.ConditionalLogic,
		SectionHeader:         c.SectionHeader,
		SectionPreamble:       c.SectionPreamble,
	}
}

// Generated restores a generated question from its compressed form.
func (c CompressedQuestion) Generated() survey.GeneratedQuestion {
	return survey.GeneratedQuestion{
		ID:                     c.ID,
		ProjectID:              c.ProjectID,
		Text:                   c.Text,
		ResponseType:           c.ResponseType,
		Required:               c.Required,
		Category:               c.Category,
		Options:                c.Options,
		AssignedRespondentType: c.AssignedRespondentType,
		AssignedCommodity:      c.AssignedCommodity,
		AssignedCountry:        c.AssignedCountry,
		OrderIndex:             c.OrderIndex,
		SourceTemplateID:       c.SourceTemplateID,
		FollowUp:               c.FollowUp,
		ConditionalLogic:       c.ConditionalLogic,
		SectionHeader:          c.SectionHeader,
		SectionPreamble:        c.SectionPreamble,
	}
}
