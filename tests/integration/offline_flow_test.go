package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/openharvest/fieldcache/internal/cache"
	"github.com/openharvest/fieldcache/internal/drafts"
	"github.com/openharvest/fieldcache/internal/kvstore"
	"github.com/openharvest/fieldcache/internal/server"
	"github.com/openharvest/fieldcache/internal/session"
	"github.com/openharvest/fieldcache/internal/survey"
)

const (
	flowProjectID    = "project-ghana-2026"
	flowRespondentID = "resp-771"
	jsonContentType  = "application/json"
)

func TestOfflineSurveyFlow(testContext *testing.T) {
	gin.SetMode(gin.TestMode)

	backend, err := kvstore.OpenBadger(kvstore.BadgerConfig{InMemory: true, Logger: zap.NewNop()})
	if err != nil {
		testContext.Fatalf("failed to open badger: %v", err)
	}
	defer backend.Close()

	clock := func() time.Time { return time.Unix(1700000000, 0) }

	bank, err := cache.NewQuestionBankStore(cache.StoreConfig{Backend: backend, Clock: clock})
	if err != nil {
		testContext.Fatalf("failed to build bank store: %v", err)
	}
	generated, err := cache.NewGeneratedQuestionStore(cache.StoreConfig{Backend: backend, Clock: clock})
	if err != nil {
		testContext.Fatalf("failed to build generated store: %v", err)
	}
	draftStore, err := drafts.NewStore(drafts.StoreConfig{Backend: backend, Clock: clock})
	if err != nil {
		testContext.Fatalf("failed to build draft store: %v", err)
	}
	generator, err := survey.NewGenerator(survey.GeneratorConfig{IDProvider: survey.NewUUIDProvider(), Clock: clock})
	if err != nil {
		testContext.Fatalf("failed to build generator: %v", err)
	}
	sessions, err := session.NewService(session.ServiceConfig{
		Bank:      bank,
		Generated: generated,
		Drafts:    draftStore,
		Generator: generator,
		Clock:     clock,
		Logger:    zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("failed to build session service: %v", err)
	}
	handler, err := server.NewHTTPHandler(server.Dependencies{Sessions: sessions, Logger: zap.NewNop()})
	if err != nil {
		testContext.Fatalf("failed to build handler: %v", err)
	}

	testServer := httptest.NewServer(handler)
	defer testServer.Close()

	templates := make([]map[string]any, 0, 5)
	for index := 0; index < 5; index++ {
		templates = append(templates, map[string]any{
			"id":                    fmt.Sprintf("tpl-%d", index),
			"projectId":             flowProjectID,
			"text":                  fmt.Sprintf("Survey question %d", index),
			"responseType":          "text",
			"targetRespondentTypes": []string{"farmer"},
			"targetCommodities":     []string{"cocoa"},
			"targetCountries":       []string{"GH"},
		})
	}
	seedBody, _ := json.Marshal(templates)
	seedReq, _ := http.NewRequest(http.MethodPut,
		testServer.URL+"/projects/"+flowProjectID+"/question-bank", bytes.NewReader(seedBody))
	seedReq.Header.Set("Content-Type", jsonContentType)
	seedPut, err := http.DefaultClient.Do(seedReq)
	if err != nil {
		testContext.Fatalf("seed request failed: %v", err)
	}
	defer seedPut.Body.Close()
	if seedPut.StatusCode != http.StatusOK {
		testContext.Fatalf("unexpected seed status: %d", seedPut.StatusCode)
	}

	generateBody, _ := json.Marshal(map[string]string{
		"respondentType": "farmer",
		"commodity":      "cocoa",
		"country":        "GH",
	})
	generateResp, err := http.Post(
		testServer.URL+"/projects/"+flowProjectID+"/questions/generate", jsonContentType, bytes.NewReader(generateBody))
	if err != nil {
		testContext.Fatalf("generate request failed: %v", err)
	}
	defer generateResp.Body.Close()
	if generateResp.StatusCode != http.StatusOK {
		testContext.Fatalf("unexpected generate status: %d", generateResp.StatusCode)
	}
	var generatePayload struct {
		Generated []struct {
			ID         string `json:"id"`
			OrderIndex int    `json:"orderIndex"`
		} `json:"generated"`
	}
	if err := json.NewDecoder(generateResp.Body).Decode(&generatePayload); err != nil {
		testContext.Fatalf("failed to decode generate response: %v", err)
	}
	if len(generatePayload.Generated) != 5 {
		testContext.Fatalf("expected 5 generated questions, got %d", len(generatePayload.Generated))
	}
	if generatePayload.Generated[0].OrderIndex != 1 {
		testContext.Fatalf("expected order indices to start at 1, got %d", generatePayload.Generated[0].OrderIndex)
	}

	draftBody, _ := json.Marshal(map[string]any{
		"respondentName": "Ama Mensah",
		"target": map[string]string{
			"respondentType": "farmer",
			"commodity":      "cocoa",
			"country":        "GH",
		},
		"answers": map[string]string{
			generatePayload.Generated[0].ID: "two hectares",
			generatePayload.Generated[1].ID: "yes",
		},
	})
	draftReq, _ := http.NewRequest(http.MethodPut,
		testServer.URL+"/projects/"+flowProjectID+"/drafts/"+flowRespondentID, bytes.NewReader(draftBody))
	draftReq.Header.Set("Content-Type", jsonContentType)
	draftResp, err := http.DefaultClient.Do(draftReq)
	if err != nil {
		testContext.Fatalf("draft save failed: %v", err)
	}
	defer draftResp.Body.Close()
	if draftResp.StatusCode != http.StatusOK {
		testContext.Fatalf("unexpected draft save status: %d", draftResp.StatusCode)
	}

	resumeResp, err := http.Get(
		testServer.URL + "/projects/" + flowProjectID + "/drafts/" + flowRespondentID + "/resume")
	if err != nil {
		testContext.Fatalf("resume request failed: %v", err)
	}
	defer resumeResp.Body.Close()
	if resumeResp.StatusCode != http.StatusOK {
		testContext.Fatalf("unexpected resume status: %d", resumeResp.StatusCode)
	}
	var resumePayload struct {
		ResumeIndex   int  `json:"resumeIndex"`
		AnsweredCount int  `json:"answeredCount"`
		TotalCount    int  `json:"totalCount"`
		Complete      bool `json:"complete"`
	}
	if err := json.NewDecoder(resumeResp.Body).Decode(&resumePayload); err != nil {
		testContext.Fatalf("failed to decode resume response: %v", err)
	}
	if resumePayload.ResumeIndex != 2 {
		testContext.Fatalf("expected resume index 2, got %d", resumePayload.ResumeIndex)
	}
	if resumePayload.AnsweredCount != 2 || resumePayload.TotalCount != 5 {
		testContext.Fatalf("unexpected resume counts: %+v", resumePayload)
	}
	if !resumePayload.Complete {
		testContext.Fatalf("expected complete cache read")
	}

	// A second generation pass for the same triple adds nothing.
	repeatResp, err := http.Post(
		testServer.URL+"/projects/"+flowProjectID+"/questions/generate", jsonContentType, bytes.NewReader(generateBody))
	if err != nil {
		testContext.Fatalf("repeat generate failed: %v", err)
	}
	defer repeatResp.Body.Close()
	var repeatPayload struct {
		Generated []json.RawMessage `json:"generated"`
	}
	if err := json.NewDecoder(repeatResp.Body).Decode(&repeatPayload); err != nil {
		testContext.Fatalf("failed to decode repeat response: %v", err)
	}
	if len(repeatPayload.Generated) != 0 {
		testContext.Fatalf("expected idempotent generation, got %d new questions", len(repeatPayload.Generated))
	}

	discardReq, _ := http.NewRequest(http.MethodDelete,
		testServer.URL+"/projects/"+flowProjectID+"/drafts/"+flowRespondentID, nil)
	discardResp, err := http.DefaultClient.Do(discardReq)
	if err != nil {
		testContext.Fatalf("discard request failed: %v", err)
	}
	defer discardResp.Body.Close()
	if discardResp.StatusCode != http.StatusOK {
		testContext.Fatalf("unexpected discard status: %d", discardResp.StatusCode)
	}

	afterDiscard, err := http.Get(
		testServer.URL + "/projects/" + flowProjectID + "/drafts/" + flowRespondentID + "/resume")
	if err != nil {
		testContext.Fatalf("post-discard resume failed: %v", err)
	}
	defer afterDiscard.Body.Close()
	if afterDiscard.StatusCode != http.StatusNotFound {
		testContext.Fatalf("expected 404 after discard, got %d", afterDiscard.StatusCode)
	}
}
