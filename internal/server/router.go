package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/openharvest/fieldcache/internal/drafts"
	"github.com/openharvest/fieldcache/internal/session"
	"github.com/openharvest/fieldcache/internal/survey"
)

var errMissingSessionService = errors.New("session service dependency required")

// Dependencies wires the local HTTP bridge the surrounding UI layer calls.
type Dependencies struct {
	Sessions *session.Service
	Logger   *zap.Logger
}

// NewHTTPHandler builds the gin handler for the local cache API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Sessions == nil {
		return nil, errMissingSessionService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{sessions: deps.Sessions, logger: logger}

	router.GET("/healthz", handler.handleHealth)

	projects := router.Group("/projects/:projectId")
	projects.PUT("/question-bank", handler.handleSeedQuestionBank)
	projects.GET("/question-bank", handler.handleQuestionBank)
	projects.POST("/questions/generate", handler.handleGenerate)
	projects.GET("/questions", handler.handleQuestions)
	projects.PUT("/drafts/:respondentId", handler.handleSaveDraft)
	projects.GET("/drafts/:respondentId", handler.handleGetDraft)
	projects.DELETE("/drafts/:respondentId", handler.handleDiscardDraft)
	projects.GET("/drafts/:respondentId/resume", handler.handleResume)

	return router, nil
}

type httpHandler struct {
	sessions *session.Service
	logger   *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) projectID(c *gin.Context) (survey.ProjectID, bool) {
	project, err := survey.NewProjectID(c.Param("projectId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_project_id"})
		return "", false
	}
	return project, true
}

func (h *httpHandler) respondentID(c *gin.Context) (survey.RespondentID, bool) {
	respondent, err := survey.NewRespondentID(c.Param("respondentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_respondent_id"})
		return "", false
	}
	return respondent, true
}

func (h *httpHandler) handleSeedQuestionBank(c *gin.Context) {
	project, ok := h.projectID(c)
	if !ok {
		return
	}
	var templates []survey.QuestionTemplate
	if err := c.ShouldBindJSON(&templates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.sessions.SeedQuestionBank(c.Request.Context(), project, templates); err != nil {
		h.renderServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cached": len(templates)})
}

type questionBankPayload struct {
	Templates      []survey.QuestionTemplate `json:"templates"`
	ExpectedChunks int                       `json:"expectedChunks"`
	LoadedChunks   int                       `json:"loadedChunks"`
	Complete       bool                      `json:"complete"`
}

func (h *httpHandler) handleQuestionBank(c *gin.Context) {
	project, ok := h.projectID(c)
	if !ok {
		return
	}
	templates, stats, err := h.sessions.QuestionBank(c.Request.Context(), project)
	if err != nil {
		h.renderServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, questionBankPayload{
		Templates:      templates,
		ExpectedChunks: stats.ExpectedChunks,
		LoadedChunks:   stats.LoadedChunks,
		Complete:       stats.Complete(),
	})
}

func (h *httpHandler) handleGenerate(c *gin.Context) {
	project, ok := h.projectID(c)
	if !ok {
		return
	}
	var target survey.TargetTriple
	if err := c.ShouldBindJSON(&target); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	generated, err := h.sessions.GenerateOffline(c.Request.Context(), project, target)
	if err != nil {
		h.renderServiceError(c, err)
		return
	}
	if generated == nil {
		generated = []survey.GeneratedQuestion{}
	}
	c.JSON(http.StatusOK, gin.H{"generated": generated})
}

func targetFromQuery(c *gin.Context) survey.TargetTriple {
	return survey.TargetTriple{
		RespondentType: c.Query("respondentType"),
		Commodity:      c.Query("commodity"),
		Country:        c.Query("country"),
	}
}

func (h *httpHandler) handleQuestions(c *gin.Context) {
	project, ok := h.projectID(c)
	if !ok {
		return
	}
	questions, stats, err := h.sessions.QuestionsForTarget(c.Request.Context(), project, targetFromQuery(c))
	if err != nil {
		h.renderServiceError(c, err)
		return
	}
	if questions == nil {
		questions = []survey.GeneratedQuestion{}
	}
	c.JSON(http.StatusOK, gin.H{
		"questions":      questions,
		"expectedChunks": stats.ExpectedChunks,
		"loadedChunks":   stats.LoadedChunks,
		"complete":       stats.Complete(),
	})
}

func (h *httpHandler) handleSaveDraft(c *gin.Context) {
	project, ok := h.projectID(c)
	if !ok {
		return
	}
	respondent, ok := h.respondentID(c)
	if !ok {
		return
	}
	var draft drafts.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	draft.ProjectID = project.String()
	draft.RespondentID = respondent.String()
	if err := h.sessions.SaveDraft(c.Request.Context(), draft); err != nil {
		h.renderServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": true})
}

func (h *httpHandler) handleGetDraft(c *gin.Context) {
	project, ok := h.projectID(c)
	if !ok {
		return
	}
	respondent, ok := h.respondentID(c)
	if !ok {
		return
	}
	draft, found, err := h.sessions.Draft(c.Request.Context(), project, respondent)
	if err != nil {
		h.renderServiceError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "draft_not_found"})
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *httpHandler) handleDiscardDraft(c *gin.Context) {
	project, ok := h.projectID(c)
	if !ok {
		return
	}
	respondent, ok := h.respondentID(c)
	if !ok {
		return
	}
	if err := h.sessions.DiscardDraft(c.Request.Context(), project, respondent); err != nil {
		h.renderServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"discarded": true})
}

type resumePayload struct {
	ResumeIndex   int                        `json:"resumeIndex"`
	AnsweredCount int                        `json:"answeredCount"`
	TotalCount    int                        `json:"totalCount"`
	Questions     []survey.GeneratedQuestion `json:"questions"`
	Complete      bool                       `json:"complete"`
}

func (h *httpHandler) handleResume(c *gin.Context) {
	project, ok := h.projectID(c)
	if !ok {
		return
	}
	respondent, ok := h.respondentID(c)
	if !ok {
		return
	}
	result, err := h.sessions.Resume(c.Request.Context(), project, respondent)
	if err != nil {
		h.renderServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resumePayload{
		ResumeIndex:   result.Point.Index,
		AnsweredCount: result.Point.AnsweredCount,
		TotalCount:    result.Point.TotalCount,
		Questions:     result.Questions,
		Complete:      result.Stats.Complete(),
	})
}

func (h *httpHandler) renderServiceError(c *gin.Context, err error) {
	var serviceErr *session.ServiceError
	code := "internal_error"
	if errors.As(err, &serviceErr) {
		code = serviceErr.Code()
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, survey.ErrIncompleteTargetTriple):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, survey.ErrCacheNotPopulated):
		status = http.StatusConflict
	case errors.Is(err, survey.ErrInvalidProjectID), errors.Is(err, survey.ErrInvalidRespondentID):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrDraftNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("code", code), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": code})
}
