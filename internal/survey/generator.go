package survey

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// IDProvider issues identifiers for questions generated while offline.
type IDProvider interface {
	NewID() (string, error)
}

// GeneratorConfig carries the dependencies for a Generator.
type GeneratorConfig struct {
	IDProvider IDProvider
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Generator reproduces the server's question-assignment filter against a
// locally cached question bank, so enumerators can keep working without
// connectivity.
type Generator struct {
	idProvider IDProvider
	clock      func() time.Time
	logger     *zap.Logger
}

// NewGenerator validates dependencies and returns a Generator.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Generator{idProvider: cfg.IDProvider, clock: clock, logger: logger}, nil
}

// Generate instantiates every cached template matching the target triple
// that is not already covered by an existing generated question for that
// exact triple. Order indices continue from the highest existing index for
// the triple; existing order is never renumbered.
//
// An empty template slice reports ErrCacheNotPopulated so callers can
// distinguish "sync needed" from "zero templates match".
func (g *Generator) Generate(project ProjectID, target TargetTriple, templates []QuestionTemplate, existing []GeneratedQuestion) ([]GeneratedQuestion, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("%w: project %s", ErrCacheNotPopulated, project)
	}

	covered := make(map[IdentityKey]struct{}, len(existing))
	nextOrder := 1
	for _, question := range existing {
		if !matchesTriple(question, target) {
			continue
		}
		covered[question.Identity()] = struct{}{}
		if question.OrderIndex >= nextOrder {
			nextOrder = question.OrderIndex + 1
		}
	}

	generatedAt := g.clock().UTC().Unix()
	var generated []GeneratedQuestion
	for _, template := range templates {
		if !MatchesTarget(template, target) {
			continue
		}
		candidate := instantiate(template, project, target)
		if _, exists := covered[candidate.Identity()]; exists {
			continue
		}
		id, err := g.idProvider.NewID()
		if err != nil {
			return nil, fmt.Errorf("generate question id: %w", err)
		}
		candidate.ID = id
		candidate.OrderIndex = nextOrder
		candidate.CreatedAtSeconds = generatedAt
		nextOrder++
		covered[candidate.Identity()] = struct{}{}
		generated = append(generated, candidate)
	}

	g.logger.Debug("offline generation completed",
		zap.String("project", project.String()),
		zap.Int("templates", len(templates)),
		zap.Int("generated", len(generated)))

	return generated, nil
}

// MatchesTarget applies the server-side assignment filter to one template:
// the respondent type must be targeted, the country must be targeted, and
// at least one requested commodity must be targeted. An empty requested
// commodity list and an empty targeted-commodities set both mean "applies
// to all".
func MatchesTarget(template QuestionTemplate, target TargetTriple) bool {
	if !containsValue(template.TargetRespondentTypes, target.RespondentType) {
		return false
	}
	if !containsValue(template.TargetCountries, target.Country) {
		return false
	}
	requested := target.Commodities()
	if len(requested) == 0 || len(template.TargetCommodities) == 0 {
		return true
	}
	for _, commodity := range requested {
		if containsValue(template.TargetCommodities, commodity) {
			return true
		}
	}
	return false
}

func matchesTriple(question GeneratedQuestion, target TargetTriple) bool {
	return question.AssignedRespondentType == target.RespondentType &&
		question.AssignedCommodity == target.Commodity &&
		question.AssignedCountry == target.Country
}

func instantiate(template QuestionTemplate, project ProjectID, target TargetTriple) GeneratedQuestion {
	return GeneratedQuestion{
		ProjectID:              project.String(),
		Text:                   template.Text,
		Category:               template.Category,
		ResponseType:           template.ResponseType,
		Required:               template.Required,
		Options:                template.Options,
		AssignedRespondentType: target.RespondentType,
		AssignedCommodity:      target.Commodity,
		AssignedCountry:        target.Country,
		SourceTemplateID:       template.ID,
		FollowUp:               template.FollowUp,
		ConditionalLogic:       template.ConditionalLogic,
		SectionHeader:          template.SectionHeader,
		SectionPreamble:        template.SectionPreamble,
	}
}

func containsValue(values []string, wanted string) bool {
	for _, value := range values {
		if value == wanted {
			return true
		}
	}
	return false
}
