package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aslaburda/aslp_backend/metrics"
	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/repositories"
	"github.com/aslaburda/aslp_backend/security"
	"github.com/aslaburda/aslp_backend/utils"
)

const maxCompletionBody = 1 << 20

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// SEOResult is the structured answer of GenerateSEO.
type SEOResult struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// ContentResult is generated content, with the draft page when one was saved.
type ContentResult struct {
	Content string       `json:"content"`
	Page    *models.Page `json:"page,omitempty"`
}

// SiteDiagnostics are the facts collected before asking the model for advice.
type SiteDiagnostics struct {
	Apps            int64           `json:"apps"`
	Listings        int64           `json:"listings"`
	PublishedPages  int             `json:"published_pages"`
	DuplicateTitles int             `json:"duplicate_titles"`
	MissingPages    []string        `json:"missing_pages"`
	Features        map[string]bool `json:"features"`
	AIConfigured    bool            `json:"ai_configured"`
}

type DebugReport struct {
	Diagnostics SiteDiagnostics `json:"diagnostics"`
	Analysis    string          `json:"analysis"`
}

// AIAgentService talks to an OpenAI-compatible chat completions endpoint
// configured in the global settings.
type AIAgentService struct {
	client   *http.Client
	pages    repositories.PageRepository
	apps     repositories.AppRepository
	listings repositories.ListingRepository
	tools    *ToolsService
	log      *zap.Logger
	now      func() time.Time
}

func NewAIAgentService(client *http.Client, pages repositories.PageRepository, apps repositories.AppRepository, listings repositories.ListingRepository, tools *ToolsService, log *zap.Logger) *AIAgentService {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &AIAgentService{client: client, pages: pages, apps: apps, listings: listings, tools: tools, log: log, now: time.Now}
}

// complete sends messages to the configured endpoint and returns the first
// choice. Transport and provider errors are logged and reported as upstream
// failures without their detail.
func (s *AIAgentService) complete(ctx context.Context, settings models.GlobalSettings, messages []chatMessage) (string, error) {
	if !settings.AIConfigured() {
		return "", models.ErrUpstream("AI provider is not configured", nil)
	}
	defer metrics.TrackAI()()

	payload, err := json.Marshal(chatRequest{Model: settings.AIModel, Messages: messages, Temperature: 0.7})
	if err != nil {
		return "", models.ErrPersistence(fmt.Errorf("marshal chat request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, settings.AIAPIEndpoint, bytes.NewReader(payload))
	if err != nil {
		return "", models.ErrUpstream("AI provider is not configured", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+settings.AIAPIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("AI request failed", zap.String("endpoint", settings.AIAPIEndpoint), zap.Error(err))
		return "", models.ErrUpstream("AI provider unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCompletionBody))
	if err != nil {
		return "", models.ErrUpstream("AI provider unreachable", err)
	}
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		s.log.Warn("AI response not understood", zap.Int("status", resp.StatusCode), zap.Error(err))
		return "", models.ErrUpstream("AI provider returned an invalid response", err)
	}
	if resp.StatusCode >= 300 || parsed.Error != nil {
		detail := resp.Status
		if parsed.Error != nil {
			detail = parsed.Error.Message
		}
		s.log.Warn("AI provider error", zap.Int("status", resp.StatusCode), zap.String("detail", detail))
		return "", models.ErrUpstream("AI provider returned an error", fmt.Errorf("status %d: %s", resp.StatusCode, detail))
	}
	if len(parsed.Choices) == 0 {
		return "", models.ErrUpstream("AI provider returned no answer", nil)
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// Chat answers a free-form admin question.
func (s *AIAgentService) Chat(ctx context.Context, settings models.GlobalSettings, message string) (string, error) {
	return s.complete(ctx, settings, []chatMessage{
		{Role: "system", Content: "You are an assistant for administrators of a progressive web app builder and business directory."},
		{Role: "user", Content: message},
	})
}

// GenerateSEO asks for a title, meta description and keywords as JSON.
func (s *AIAgentService) GenerateSEO(ctx context.Context, settings models.GlobalSettings, title, content string) (*SEOResult, error) {
	prompt := fmt.Sprintf("Write SEO metadata for the page below. Reply with only a JSON object with keys "+
		"\"title\" (max 60 characters), \"description\" (max 160 characters) and \"keywords\" (array of strings).\n\nTitle: %s\n\nContent:\n%s", title, content)
	answer, err := s.complete(ctx, settings, []chatMessage{
		{Role: "system", Content: "You are an SEO specialist. You answer in strict JSON."},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, err
	}
	var out SEOResult
	if err := json.Unmarshal([]byte(stripCodeFence(answer)), &out); err != nil {
		s.log.Warn("SEO answer is not JSON", zap.String("answer", answer))
		return nil, models.ErrUpstream("AI provider returned an invalid response", err)
	}
	return &out, nil
}

// stripCodeFence removes a markdown code fence around a model answer.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

// CreateContent drafts content on a topic and optionally saves it as a
// draft page titled after the topic.
func (s *AIAgentService) CreateContent(ctx context.Context, settings models.GlobalSettings, p security.Principal, topic, contentType string, save bool) (*ContentResult, error) {
	if contentType == "" {
		contentType = "page"
	}
	prompt := fmt.Sprintf("Write the content of a %s about: %s. Use simple HTML paragraphs and headings.", contentType, topic)
	content, err := s.complete(ctx, settings, []chatMessage{
		{Role: "system", Content: "You are a copywriter for small business websites."},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, err
	}
	result := &ContentResult{Content: content}
	if !save {
		return result, nil
	}

	now := s.now().UTC()
	page := &models.Page{
		Title:     topic,
		Slug:      fmt.Sprintf("%s-%d", utils.Slugify(topic), now.Unix()),
		Content:   content,
		Status:    models.PageStatusDraft,
		AuthorID:  p.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.pages.CreatePage(ctx, page); err != nil {
		s.log.Error("draft page not saved", zap.String("topic", topic), zap.Error(err))
		return nil, models.ErrPersistence(err)
	}
	result.Page = page
	return result, nil
}

// Diagnose collects site facts without calling the provider.
func (s *AIAgentService) Diagnose(ctx context.Context, settings models.GlobalSettings) (SiteDiagnostics, error) {
	d := SiteDiagnostics{Features: settings.Features, AIConfigured: settings.AIConfigured()}
	var err error
	if d.Apps, err = s.apps.CountApps(ctx); err != nil {
		return d, models.ErrPersistence(err)
	}
	if d.Listings, err = s.listings.CountListings(ctx); err != nil {
		return d, models.ErrPersistence(err)
	}
	pages, err := s.pages.ListPublishedPages(ctx)
	if err != nil {
		return d, models.ErrPersistence(err)
	}
	d.PublishedPages = len(pages)
	d.DuplicateTitles = len(duplicateGroups(pages))
	if s.tools != nil {
		if d.MissingPages, err = s.tools.MissingPages(ctx); err != nil {
			return d, err
		}
	}
	return d, nil
}

// DebugSite collects diagnostics and asks the model to interpret them.
func (s *AIAgentService) DebugSite(ctx context.Context, settings models.GlobalSettings) (*DebugReport, error) {
	d, err := s.Diagnose(ctx, settings)
	if err != nil {
		return nil, err
	}
	facts, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, models.ErrPersistence(err)
	}
	analysis, err := s.complete(ctx, settings, []chatMessage{
		{Role: "system", Content: "You review the health of a web app builder site and list concrete fixes."},
		{Role: "user", Content: "Here are the site diagnostics:\n" + string(facts) + "\nWhat problems do you see and how should they be fixed?"},
	})
	if err != nil {
		return nil, err
	}
	return &DebugReport{Diagnostics: d, Analysis: analysis}, nil
}
