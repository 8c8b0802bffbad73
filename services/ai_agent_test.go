package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/repositories/memory"
)

// completionServer answers every chat request with answer, recording requests.
func completionServer(t *testing.T, status int, answer string, seen *[]chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if seen != nil {
			*seen = append(*seen, req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status >= 300 {
			_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
			return
		}
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": answer}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func aiSettings(endpoint string) models.GlobalSettings {
	s := allEnabled()
	s.AIAPIEndpoint = endpoint
	s.AIAPIKey = "sk-test"
	s.AIModel = "test-model"
	return s
}

func newAIAgent(store *memory.Store) *AIAgentService {
	return NewAIAgentService(nil, store, store, store, NewToolsService(store, zap.NewNop()), zap.NewNop())
}

func TestAIAgent_NotConfigured(t *testing.T) {
	svc := newAIAgent(memory.New())
	_, err := svc.Chat(context.Background(), allEnabled(), "hello")
	appErr := assertKind(t, err, models.KindUpstream)
	assert.Equal(t, "AI provider is not configured", appErr.Message)
}

func TestAIAgent_Chat(t *testing.T) {
	var seen []chatRequest
	srv := completionServer(t, http.StatusOK, "  Hello admin  ", &seen)
	svc := newAIAgent(memory.New())

	answer, err := svc.Chat(context.Background(), aiSettings(srv.URL), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello admin", answer)
	require.Len(t, seen, 1)
	assert.Equal(t, "test-model", seen[0].Model)
	assert.Equal(t, "user", seen[0].Messages[len(seen[0].Messages)-1].Role)
}

func TestAIAgent_ProviderError(t *testing.T) {
	srv := completionServer(t, http.StatusTooManyRequests, "", nil)
	svc := newAIAgent(memory.New())

	_, err := svc.Chat(context.Background(), aiSettings(srv.URL), "hello")
	appErr := assertKind(t, err, models.KindUpstream)
	assert.Equal(t, "AI provider returned an error", appErr.Message)
}

func TestAIAgent_GenerateSEOStripsCodeFence(t *testing.T) {
	answer := "```json\n{\"title\":\"Best Bakery\",\"description\":\"Fresh bread daily\",\"keywords\":[\"bakery\",\"bread\"]}\n```"
	srv := completionServer(t, http.StatusOK, answer, nil)
	svc := newAIAgent(memory.New())

	seo, err := svc.GenerateSEO(context.Background(), aiSettings(srv.URL), "Bakery", "We bake bread.")
	require.NoError(t, err)
	assert.Equal(t, "Best Bakery", seo.Title)
	assert.Equal(t, []string{"bakery", "bread"}, seo.Keywords)
}

func TestAIAgent_GenerateSEOInvalidAnswer(t *testing.T) {
	srv := completionServer(t, http.StatusOK, "I cannot do that", nil)
	svc := newAIAgent(memory.New())

	_, err := svc.GenerateSEO(context.Background(), aiSettings(srv.URL), "Bakery", "")
	assertKind(t, err, models.KindUpstream)
}

func TestAIAgent_CreateContentSavesDraft(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	admin := adminPrincipal(t, store)
	srv := completionServer(t, http.StatusOK, "<p>Spring menu</p>", nil)
	svc := newAIAgent(store)

	result, err := svc.CreateContent(ctx, aiSettings(srv.URL), admin, "Spring Menu", "", true)
	require.NoError(t, err)
	assert.Equal(t, "<p>Spring menu</p>", result.Content)
	require.NotNil(t, result.Page)
	assert.Equal(t, models.PageStatusDraft, result.Page.Status)
	assert.Equal(t, admin.UserID, result.Page.AuthorID)

	published, err := store.ListPublishedPages(ctx)
	require.NoError(t, err)
	assert.Empty(t, published)

	result, err = svc.CreateContent(ctx, aiSettings(srv.URL), admin, "Other", "post", false)
	require.NoError(t, err)
	assert.Nil(t, result.Page)
}

func TestAIAgent_DiagnoseWithoutProvider(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.SeedPage(models.Page{ID: 1, Title: "About", Status: models.PageStatusPublish})
	store.SeedPage(models.Page{ID: 2, Title: "About", Status: models.PageStatusPublish})
	svc := newAIAgent(store)

	d, err := svc.Diagnose(ctx, allEnabled())
	require.NoError(t, err)
	assert.Equal(t, 2, d.PublishedPages)
	assert.Equal(t, 1, d.DuplicateTitles)
	assert.Len(t, d.MissingPages, len(RequiredPages))
	assert.False(t, d.AIConfigured)

	_, err = svc.DebugSite(ctx, allEnabled())
	assertKind(t, err, models.KindUpstream)
}
